// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/gogpu/videomaker/encoder"
	"github.com/gogpu/videomaker/gpucore"
)

var (
	_ encoder.VideoEncoder = (*VideoEncoder)(nil)
	_ gpucore.NativeWindow = (*inputSurface)(nil)
)

// VideoEncoder encodes every presented frame as a JPEG key frame.
type VideoEncoder struct {
	format encoder.Format
	opts   options
	queue  *outputQueue
	input  *inputSurface

	mu       sync.Mutex
	started  bool
	ended    bool
	released bool
	start    time.Time
	frames   int
}

// NewVideoEncoder returns an encoder for f. Only encoder.MimeMJPEG is
// supported.
func NewVideoEncoder(f encoder.Format, opts ...Option) (*VideoEncoder, error) {
	if f.Mime != encoder.MimeMJPEG {
		return nil, fmt.Errorf("%w: %q", encoder.ErrUnsupportedMime, f.Mime)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidFormat, f.Width, f.Height)
	}
	e := &VideoEncoder{
		format: f,
		opts:   newOptions(opts),
		queue:  newOutputQueue(),
	}
	e.input = &inputSurface{enc: e}
	return e, nil
}

// InputSurface implements encoder.VideoEncoder.
func (e *VideoEncoder) InputSurface() gpucore.NativeWindow {
	return e.input
}

// Start implements encoder.VideoEncoder. The output format is reported
// right away.
func (e *VideoEncoder) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.released:
		return encoder.ErrReleased
	case e.started:
		return ErrAlreadyStarted
	}
	e.started = true
	e.start = e.opts.clock()
	e.queue.push(encoder.Buffer{Flags: encoder.FlagFormatChanged, Format: e.format})
	return nil
}

// Dequeue implements encoder.VideoEncoder.
func (e *VideoEncoder) Dequeue(ctx context.Context) (encoder.Buffer, error) {
	return e.queue.pop(ctx)
}

// SignalEndOfStream implements encoder.VideoEncoder.
func (e *VideoEncoder) SignalEndOfStream() {
	e.mu.Lock()
	e.ended = true
	frames := e.frames
	e.mu.Unlock()
	e.queue.finish()
	e.opts.logger.Debug("software: video end of stream", "frames", frames)
}

// Release implements encoder.VideoEncoder.
func (e *VideoEncoder) Release() {
	e.mu.Lock()
	e.released = true
	e.mu.Unlock()
	e.queue.release()
}

// Frames returns the number of encoded frames.
func (e *VideoEncoder) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// encode is called by the input surface on the render thread. Frames
// before Start and after end of stream are dropped.
func (e *VideoEncoder) encode(frame *image.RGBA) error {
	e.mu.Lock()
	switch {
	case e.released:
		e.mu.Unlock()
		return encoder.ErrReleased
	case !e.started || e.ended:
		e.mu.Unlock()
		return nil
	}
	pts := e.opts.clock().Sub(e.start).Microseconds()
	e.mu.Unlock()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(e.opts.quality)); err != nil {
		return fmt.Errorf("software: encode frame: %w", err)
	}
	if !e.queue.push(encoder.Buffer{Data: buf.Bytes(), PTS: pts, Flags: encoder.FlagKeyFrame}) {
		return nil
	}

	e.mu.Lock()
	e.frames++
	e.mu.Unlock()
	return nil
}

// inputSurface is the drawable of a VideoEncoder.
type inputSurface struct {
	enc *VideoEncoder
}

func (s *inputSurface) Size() (width, height int) {
	return s.enc.format.Width, s.enc.format.Height
}

func (s *inputSurface) Present(frame *image.RGBA) error {
	return s.enc.encode(frame)
}
