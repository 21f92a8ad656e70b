// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/videomaker/gpucore"
)

// ErrInvalidRenderMode is returned for RenderMode values other than
// Continuous and OnDemand.
var ErrInvalidRenderMode = errors.New("renderloop: invalid render mode")

// DefaultFrameInterval is the continuous frame budget, about 60 frames per
// second.
const DefaultFrameInterval = 16 * time.Millisecond

// RenderMode selects how the loop paces frames.
type RenderMode int

// Render modes.
const (
	// Continuous redraws once per frame interval.
	Continuous RenderMode = iota

	// OnDemand redraws only after RequestRender or a resize.
	OnDemand
)

// String returns "continuous" or "on-demand".
func (m RenderMode) String() string {
	switch m {
	case Continuous:
		return "continuous"
	case OnDemand:
		return "on-demand"
	default:
		return fmt.Sprintf("RenderMode(%d)", int(m))
	}
}

// Validate returns ErrInvalidRenderMode for unknown modes.
func (m RenderMode) Validate() error {
	if m != Continuous && m != OnDemand {
		return fmt.Errorf("%w: %d", ErrInvalidRenderMode, int(m))
	}
	return nil
}

// ParseRenderMode parses the names returned by RenderMode.String.
func ParseRenderMode(s string) (RenderMode, error) {
	switch s {
	case "continuous":
		return Continuous, nil
	case "on-demand", "ondemand":
		return OnDemand, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRenderMode, s)
	}
}

// Option configures a Thread.
type Option func(*options)

type options struct {
	shared     gpucore.ContextID
	mode       RenderMode
	interval   time.Duration
	doubleDraw bool
	after      <-chan struct{}
	logger     *slog.Logger
}

func defaultOptions() options {
	return options{
		shared:     gpucore.InvalidID,
		mode:       Continuous,
		interval:   DefaultFrameInterval,
		doubleDraw: true,
	}
}

// WithSharedContext makes the thread's context share objects with id.
func WithSharedContext(id gpucore.ContextID) Option {
	return func(o *options) { o.shared = id }
}

// WithRenderMode sets the initial pacing. Invalid modes are ignored.
func WithRenderMode(m RenderMode) Option {
	return func(o *options) {
		if m.Validate() == nil {
			o.mode = m
		}
	}
}

// WithFrameInterval sets the continuous frame budget. Non-positive values
// are ignored.
func WithFrameInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithDoubleDraw enables or disables the extra draw on the first frame and
// the extra present after a resize.
func WithDoubleDraw(enabled bool) Option {
	return func(o *options) { o.doubleDraw = enabled }
}

// WithStartAfter delays context creation until ch is closed. A thread
// that replaces another passes the predecessor's Done channel, so the two
// never use a renderer at the same time.
func WithStartAfter(ch <-chan struct{}) Option {
	return func(o *options) { o.after = ch }
}

// WithLogger sets the logger used instead of videomaker.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
