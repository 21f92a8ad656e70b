// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/videomaker/encoder"
)

var _ encoder.AudioEncoder = (*AudioEncoder)(nil)

// AudioEncoder passes PCM through as encoded audio samples.
type AudioEncoder struct {
	format encoder.Format
	opts   options
	queue  *outputQueue

	mu       sync.Mutex
	started  bool
	ended    bool
	released bool
}

// NewAudioEncoder returns an encoder for f. Only encoder.MimeRawAudio is
// supported, and the sample layout must be complete.
func NewAudioEncoder(f encoder.Format, opts ...Option) (*AudioEncoder, error) {
	if f.Mime != encoder.MimeRawAudio {
		return nil, fmt.Errorf("%w: %q", encoder.ErrUnsupportedMime, f.Mime)
	}
	if f.SampleRate <= 0 || f.Channels <= 0 || f.BitsPerSample <= 0 || f.MaxInputSize <= 0 {
		return nil, fmt.Errorf("%w: rate=%d channels=%d bits=%d max=%d",
			ErrInvalidFormat, f.SampleRate, f.Channels, f.BitsPerSample, f.MaxInputSize)
	}
	return &AudioEncoder{format: f, opts: newOptions(opts), queue: newOutputQueue()}, nil
}

// Start implements encoder.AudioEncoder.
func (e *AudioEncoder) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.released:
		return encoder.ErrReleased
	case e.started:
		return ErrAlreadyStarted
	}
	e.started = true
	e.queue.push(encoder.Buffer{Flags: encoder.FlagFormatChanged, Format: e.format})
	return nil
}

// Queue implements encoder.AudioEncoder.
func (e *AudioEncoder) Queue(pcm []byte, pts int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.released:
		return encoder.ErrReleased
	case !e.started:
		return ErrNotStarted
	case e.ended:
		return encoder.ErrEndOfStream
	case len(pcm) > e.format.MaxInputSize:
		return fmt.Errorf("%w: %d > %d", ErrInputTooLarge, len(pcm), e.format.MaxInputSize)
	}
	e.queue.push(encoder.Buffer{Data: bytes.Clone(pcm), PTS: pts, Flags: encoder.FlagKeyFrame})
	return nil
}

// Dequeue implements encoder.AudioEncoder.
func (e *AudioEncoder) Dequeue(ctx context.Context) (encoder.Buffer, error) {
	return e.queue.pop(ctx)
}

// SignalEndOfStream implements encoder.AudioEncoder.
func (e *AudioEncoder) SignalEndOfStream() {
	e.mu.Lock()
	e.ended = true
	e.mu.Unlock()
	e.queue.finish()
}

// Release implements encoder.AudioEncoder.
func (e *AudioEncoder) Release() {
	e.mu.Lock()
	e.released = true
	e.mu.Unlock()
	e.queue.release()
}
