// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package encoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
	"github.com/gogpu/videomaker/renderloop"
)

// Bridge errors.
var (
	ErrNoSharedContext    = errors.New("encoder: no shared context")
	ErrInvalidDimensions  = errors.New("encoder: invalid dimensions")
	ErrInvalidAudioConfig = errors.New("encoder: incomplete audio config")
	ErrNoOutput           = errors.New("encoder: no output path")
	ErrNoRenderer         = errors.New("encoder: no renderer")
	ErrAlreadyRunning     = errors.New("encoder: already recording")
	ErrNotRunning         = errors.New("encoder: not recording")
	ErrNoAudio            = errors.New("encoder: recording has no audio track")
)

// State is the recording state of a Bridge.
type State int32

// Bridge states.
const (
	StateIdle State = iota
	StateRecording
	StateStopping
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// AudioConfig describes the PCM passed to WriteAudio.
type AudioConfig struct {
	// Mime is the audio encoder type. Empty means MimeAAC.
	Mime string

	SampleRate    int
	Channels      int
	BitsPerSample int

	// MaxInputSize is the largest buffer handed to the audio encoder.
	// Larger WriteAudio buffers are split.
	MaxInputSize int
}

func (c AudioConfig) bytesPerSecond() int {
	return c.SampleRate * c.Channels * c.BitsPerSample / 8
}

// Config describes one recording.
type Config struct {
	// SharedContext is the context of the render thread whose textures
	// the recording draws.
	SharedContext gpucore.ContextID

	// Path is handed to Codecs.NewMuxer.
	Path string

	// Mime is the video encoder type.
	Mime string

	Width  int
	Height int

	// Audio enables an audio track fed by WriteAudio.
	Audio *AudioConfig
}

// validate checks cfg and fills in defaults.
func (c Config) validate() (Config, error) {
	switch {
	case c.SharedContext == gpucore.InvalidID:
		return c, ErrNoSharedContext
	case !IsVideoMime(c.Mime):
		return c, fmt.Errorf("%w: %q", ErrUnsupportedMime, c.Mime)
	case c.Width <= 0 || c.Height <= 0:
		return c, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, c.Width, c.Height)
	case c.Path == "":
		return c, ErrNoOutput
	}
	if c.Audio == nil {
		return c, nil
	}
	a := *c.Audio
	if a.Mime == "" {
		a.Mime = MimeAAC
	}
	if !IsAudioMime(a.Mime) {
		return c, fmt.Errorf("%w: %q", ErrUnsupportedMime, a.Mime)
	}
	if a.SampleRate <= 0 || a.Channels <= 0 || a.BitsPerSample <= 0 || a.MaxInputSize <= 0 || a.bytesPerSecond() <= 0 {
		return c, fmt.Errorf("%w: rate=%d channels=%d bits=%d max=%d",
			ErrInvalidAudioConfig, a.SampleRate, a.Channels, a.BitsPerSample, a.MaxInputSize)
	}
	c.Audio = &a
	return c, nil
}

// Bridge records the frames of a renderer to an encoder.
//
// All methods are safe for concurrent use.
type Bridge struct {
	platform gpucore.Platform
	codecs   Codecs
	renderer render.Renderer
	opts     options
	logger   *slog.Logger

	mu    sync.Mutex
	state State
	sess  *session

	videoTime atomic.Int64 // microseconds
}

// NewBridge returns an idle bridge that renders r with platform into
// encoders made by codecs.
func NewBridge(platform gpucore.Platform, codecs Codecs, r render.Renderer, opts ...Option) *Bridge {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = videomaker.Logger()
	}
	return &Bridge{
		platform: platform,
		codecs:   codecs,
		renderer: r,
		opts:     o,
		logger:   o.logger,
	}
}

// Start begins a recording.
//
// The video encoder is configured with a bit rate of width*height*4,
// DefaultFrameRate and DefaultIFrameInterval, the audio encoder with
// DefaultAudioBitRate. A render thread sharing cfg.SharedContext draws
// into the encoder's input surface.
func (b *Bridge) Start(ctx context.Context, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.renderer == nil {
		return ErrNoRenderer
	}
	cfg, err := cfg.validate()
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return ErrAlreadyRunning
	}
	s, err := b.open(ctx, cfg)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	b.sess = s
	b.state = StateRecording
	b.videoTime.Store(0)
	b.mu.Unlock()

	b.logger.Info("encoder: recording started",
		"path", cfg.Path, "mime", cfg.Mime, "width", cfg.Width, "height", cfg.Height, "audio", cfg.Audio != nil)
	b.notify(StateRecording)
	return nil
}

// open creates and starts the codecs, the render thread and the drains.
func (b *Bridge) open(ctx context.Context, cfg Config) (*session, error) {
	s := &session{
		cfg:      cfg,
		opts:     b.opts,
		logger:   b.logger,
		bridge:   b,
		expected: 1,
		quit:     make(chan struct{}),
	}
	ok := false
	defer func() {
		if !ok {
			s.release()
		}
	}()

	var err error
	if s.muxer, err = b.codecs.NewMuxer(cfg.Path); err != nil {
		return nil, fmt.Errorf("encoder: create muxer: %w", err)
	}
	s.video, err = b.codecs.NewVideoEncoder(Format{
		Mime:           cfg.Mime,
		Width:          cfg.Width,
		Height:         cfg.Height,
		FrameRate:      DefaultFrameRate,
		IFrameInterval: DefaultIFrameInterval,
		BitRate:        cfg.Width * cfg.Height * 4,
	})
	if err != nil {
		return nil, fmt.Errorf("encoder: create video encoder: %w", err)
	}
	if a := cfg.Audio; a != nil {
		s.audio, err = b.codecs.NewAudioEncoder(Format{
			Mime:          a.Mime,
			SampleRate:    a.SampleRate,
			Channels:      a.Channels,
			BitsPerSample: a.BitsPerSample,
			MaxInputSize:  a.MaxInputSize,
			BitRate:       DefaultAudioBitRate,
		})
		if err != nil {
			return nil, fmt.Errorf("encoder: create audio encoder: %w", err)
		}
		s.expected = 2
		s.bytesPerSecond = int64(a.bytesPerSecond())
		s.pcm = make(chan pcmChunk, b.opts.queueSize)
	}

	if err := s.video.Start(); err != nil {
		return nil, fmt.Errorf("encoder: start video encoder: %w", err)
	}
	if s.audio != nil {
		if err := s.audio.Start(); err != nil {
			return nil, fmt.Errorf("encoder: start audio encoder: %w", err)
		}
	}

	s.thread = renderloop.New(b.platform, s.video.InputSurface(), b.renderer,
		renderloop.WithSharedContext(cfg.SharedContext),
		renderloop.WithRenderMode(b.opts.mode),
		renderloop.WithFrameInterval(b.opts.interval),
		renderloop.WithDoubleDraw(b.opts.doubleDraw),
		renderloop.WithLogger(b.logger),
	)
	s.thread.OnWindowResize(cfg.Width, cfg.Height)
	if err := s.thread.Start(); err != nil {
		return nil, fmt.Errorf("encoder: start render thread: %w", err)
	}

	// Drains outlive the Start call, so only its values are kept.
	drainCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	g, gctx := errgroup.WithContext(drainCtx)
	s.group = g

	video := &track{kind: "video", video: true}
	g.Go(func() error { return s.drain(gctx, video, s.video) })
	if s.audio != nil {
		audio := &track{kind: "audio"}
		g.Go(func() error { return s.drain(gctx, audio, s.audio) })
		g.Go(func() error { return s.feed(gctx) })
	}
	ok = true
	return s, nil
}

// Stop ends the recording and returns once the container is finished or
// ctx is done. Stopping an idle bridge is a no-op.
//
// The render thread exits first, then both encoders are signalled end of
// stream, the PCM queue is closed and the drains are awaited. If ctx ends
// early the drains are cancelled and everything is released anyway.
func (b *Bridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	s := b.sess
	if s == nil || b.state != StateRecording {
		b.mu.Unlock()
		return nil
	}
	b.state = StateStopping
	b.mu.Unlock()
	b.notify(StateStopping)

	err := s.stop(ctx)

	b.mu.Lock()
	b.sess = nil
	b.state = StateIdle
	b.mu.Unlock()

	b.logger.Info("encoder: recording stopped", "path", s.cfg.Path, "duration", b.EncodedDuration())
	b.notify(StateIdle)
	return err
}

// WriteAudio queues PCM for the audio encoder. It blocks while the queue
// is full and returns ErrNotRunning if the recording stops meanwhile.
func (b *Bridge) WriteAudio(pcm []byte) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.writeAudio(pcm)
}

// Resize changes the encoded frame size and redraws.
func (b *Bridge) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	s, err := b.session()
	if err != nil {
		return err
	}
	b.logger.Info("encoder: video size changed", "width", width, "height", height)
	s.thread.OnWindowResize(width, height)
	// A thread still bringing its context up draws the new size anyway.
	_ = s.thread.RequestRender()
	return nil
}

// RequestRender asks an on-demand encoder thread for one more frame.
func (b *Bridge) RequestRender() error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.thread.RequestRender()
}

// State returns the recording state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Thread returns the render thread of the current recording, or nil.
func (b *Bridge) Thread() *renderloop.Thread {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return nil
	}
	return b.sess.thread
}

// EncodedDuration returns the timestamp of the last written video sample.
func (b *Bridge) EncodedDuration() time.Duration {
	return time.Duration(b.videoTime.Load()) * time.Microsecond
}

func (b *Bridge) session() (*session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateRecording {
		return nil, ErrNotRunning
	}
	return b.sess, nil
}

func (b *Bridge) notify(st State) {
	if fn := b.opts.onState; fn != nil {
		fn(st)
	}
}
