// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package stream pushes encoded samples to a live destination.
//
// A [Pusher] sits behind an encoder.Bridge as its sample and parameter set
// sink. It forwards samples to a [Sink] while connected, resends the H.264
// parameter sets ahead of every key frame and reconnects with [Backoff]
// after a failed open or write.
//
//	sink := stream.NewRTPSink("127.0.0.1:5004", encoder.MimeAVC)
//	p := stream.NewPusher(sink)
//	bridge := encoder.NewBridge(platform, codecs, r,
//		encoder.WithSampleSink(p),
//		encoder.WithParameterSetSink(p))
//	_ = p.Start(ctx)
//
// [RTPSink] packetises video and audio into RTP over UDP with
// github.com/pion/rtp.
package stream
