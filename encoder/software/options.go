// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/encoder"
)

// Codec errors.
var (
	ErrNotStarted     = errors.New("software: not started")
	ErrAlreadyStarted = errors.New("software: already started")
	ErrStopped        = errors.New("software: muxer stopped")
	ErrInputTooLarge  = errors.New("software: input larger than max input size")
	ErrInvalidFormat  = errors.New("software: invalid format")
	ErrUnknownTrack   = errors.New("software: unknown track")
)

// DefaultQuality is the JPEG quality of encoded frames.
const DefaultQuality = 90

// Option configures the codecs of this package.
type Option func(*options)

type options struct {
	quality int
	clock   func() time.Time
	logger  *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{quality: DefaultQuality, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = videomaker.Logger()
	}
	return o
}

// WithQuality sets the JPEG quality, 1 to 100. Other values are ignored.
func WithQuality(q int) Option {
	return func(o *options) {
		if q >= 1 && q <= 100 {
			o.quality = q
		}
	}
}

// WithClock sets the clock frame timestamps are taken from.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithLogger sets the logger used instead of videomaker.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Codecs implements encoder.Codecs with the codecs of this package.
type Codecs struct {
	opts []Option
}

var _ encoder.Codecs = (*Codecs)(nil)

// NewCodecs returns a factory passing opts to every codec it creates.
func NewCodecs(opts ...Option) *Codecs {
	return &Codecs{opts: opts}
}

// NewVideoEncoder implements encoder.Codecs.
func (c *Codecs) NewVideoEncoder(f encoder.Format) (encoder.VideoEncoder, error) {
	e, err := NewVideoEncoder(f, c.opts...)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// NewAudioEncoder implements encoder.Codecs.
func (c *Codecs) NewAudioEncoder(f encoder.Format) (encoder.AudioEncoder, error) {
	e, err := NewAudioEncoder(f, c.opts...)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// NewMuxer implements encoder.Codecs.
func (c *Codecs) NewMuxer(path string) (encoder.Muxer, error) {
	return NewDirMuxer(path, c.opts...), nil
}
