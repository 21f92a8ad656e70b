// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package encoder

import (
	"log/slog"
	"time"

	"github.com/gogpu/videomaker/renderloop"
)

// Recording defaults.
const (
	DefaultFrameRate      = 30
	DefaultIFrameInterval = 1 // seconds
	DefaultAudioBitRate   = 96000
	DefaultPCMQueueSize   = 16
)

// Sample is an encoded buffer with a timestamp relative to the start of
// its track.
type Sample struct {
	Data []byte
	PTS  time.Duration
	Key  bool
}

// SampleSink receives every sample written to the muxer. Calls are made
// from the drain goroutines; video and audio may arrive concurrently.
type SampleSink interface {
	VideoSample(s Sample)
	AudioSample(s Sample)
}

// ParameterSetSink receives the H.264 parameter sets of a recording, once,
// at its first key frame.
type ParameterSetSink interface {
	ParameterSets(sps, pps []byte)
}

// Option configures a Bridge.
type Option func(*options)

type options struct {
	mode       renderloop.RenderMode
	interval   time.Duration
	queueSize  int
	params     ParameterSetSink
	samples    SampleSink
	onTime     func(time.Duration)
	onState    func(State)
	doubleDraw bool
	logger     *slog.Logger
}

func defaultOptions() options {
	return options{
		mode:       renderloop.Continuous,
		interval:   time.Second / DefaultFrameRate,
		queueSize:  DefaultPCMQueueSize,
		doubleDraw: true,
	}
}

// WithRenderMode sets the pacing of the encoder render thread. Invalid
// modes are ignored.
func WithRenderMode(m renderloop.RenderMode) Option {
	return func(o *options) {
		if m.Validate() == nil {
			o.mode = m
		}
	}
}

// WithFrameInterval sets the continuous frame budget of the encoder render
// thread. The default matches DefaultFrameRate.
func WithFrameInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithDoubleDraw enables or disables the extra draw passes of the encoder
// render thread.
func WithDoubleDraw(enabled bool) Option {
	return func(o *options) { o.doubleDraw = enabled }
}

// WithPCMQueueSize sets how many WriteAudio buffers may wait for the audio
// encoder before WriteAudio blocks.
func WithPCMQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithParameterSetSink forwards the parameter sets of each recording.
func WithParameterSetSink(s ParameterSetSink) Option {
	return func(o *options) { o.params = s }
}

// WithSampleSink forwards every written sample.
func WithSampleSink(s SampleSink) Option {
	return func(o *options) { o.samples = s }
}

// OnVideoTime sets a listener for the encoded video duration. It is called
// after every written video sample.
func OnVideoTime(fn func(time.Duration)) Option {
	return func(o *options) { o.onTime = fn }
}

// OnStateChange sets a listener for state transitions.
func OnStateChange(fn func(State)) Option {
	return func(o *options) { o.onState = fn }
}

// WithLogger sets the logger used instead of videomaker.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
