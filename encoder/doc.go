// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package encoder records the output of a render graph to an encoded clip.
//
// A Bridge owns one recording session at a time. It renders into the input
// surface of a VideoEncoder on its own render thread, sharing the context
// of an on-screen thread so that the on-screen output texture can be drawn
// again without copying. Encoded buffers are drained by one goroutine per
// encoder and written to a Muxer:
//
//	bridge := encoder.NewBridge(platform, codecs, compositor)
//	err := bridge.Start(ctx, encoder.Config{
//	    SharedContext: host.SharedContext(),
//	    Path:          "clip",
//	    Mime:          encoder.MimeMJPEG,
//	    Width:         1280,
//	    Height:        720,
//	})
//	...
//	err = bridge.Stop(ctx)
//
// # Tracks
//
// Tracks are added lazily, when an encoder reports its output format. The
// muxer starts once every expected track has been added; samples produced
// before that are dropped. Timestamps written to the muxer are relative to
// the first sample of each track.
//
// # Codecs
//
// Encoders and muxers come from a Codecs factory. The encoder/software
// package provides pure-Go implementations.
package encoder
