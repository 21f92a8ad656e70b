// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"context"

	"github.com/gogpu/videomaker/encoder"
)

// Sink is a live destination. A Pusher calls it from one goroutine at a
// time and reopens it after Close.
type Sink interface {
	// Open connects. It may block until ctx is done.
	Open(ctx context.Context) error

	// WriteParameterSets sends SPS and PPS ahead of the next key frame.
	WriteParameterSets(sps, pps []byte) error

	WriteVideo(s encoder.Sample) error
	WriteAudio(s encoder.Sample) error

	Close() error
}
