// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software provides pure-Go codecs for encoder.Bridge.
//
// The video encoder turns every frame presented to its input surface into
// a JPEG access unit (encoder.MimeMJPEG). The audio encoder passes PCM
// through unchanged (encoder.MimeRawAudio). DirMuxer writes the samples of
// each track into a directory together with an index.toml describing them.
package software
