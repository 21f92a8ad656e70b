// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command vmk renders images through a filter and watermark pipeline on
// the software backend, saves a snapshot and optionally records or
// streams the result.
//
// Usage:
//
//	vmk -config vmk.toml [-in img[,img...]] [-filter gray] [-out dir] [-frames n] [-encode] [-stream host:port]
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/backend"
	"github.com/gogpu/videomaker/backend/software"
	"github.com/gogpu/videomaker/encoder"
	encsw "github.com/gogpu/videomaker/encoder/software"
	"github.com/gogpu/videomaker/filter"
	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/integration/ggcanvas"
	"github.com/gogpu/videomaker/renderloop"
	"github.com/gogpu/videomaker/shader"
	"github.com/gogpu/videomaker/source"
	"github.com/gogpu/videomaker/stream"
	"github.com/gogpu/videomaker/surface"
)

const (
	frameTimeout = 5 * time.Second
	stopTimeout  = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "vmk:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	level, _ := cfg.logLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	videomaker.SetLogger(logger)

	if err := os.MkdirAll(cfg.Out, 0o755); err != nil {
		return err
	}
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	return p.run(ctx, logger)
}

// pipeline is source → filter → watermark → compositor, plus a second
// compositor that draws the same texture into the encoder.
type pipeline struct {
	cfg    Config
	mode   renderloop.RenderMode
	src    *source.Image
	chain  *filter.Chain
	screen *filter.Compositor
	record *filter.Compositor
}

func newPipeline(cfg Config) (*pipeline, error) {
	mode, _ := renderloop.ParseRenderMode(cfg.Mode)
	name, _ := shader.ParseName(cfg.Filter)

	src := source.NewImage()
	switch len(cfg.Inputs) {
	case 0:
		if err := src.SetImage(testPattern(cfg.Width, cfg.Height)); err != nil {
			return nil, err
		}
	default:
		src.SetImages(cfg.Inputs)
		if err := src.ShowIndex(0); err != nil {
			return nil, err
		}
	}

	stage, err := filter.New(name)
	if err != nil {
		return nil, err
	}
	mark, err := newWatermark(cfg.Watermark)
	if err != nil {
		return nil, err
	}

	record := filter.NewCompositor()
	screen := filter.NewCompositor(filter.WithScreenTextureListener(record.SetInputTexture))
	return &pipeline{
		cfg:    cfg,
		mode:   mode,
		src:    src,
		chain:  filter.NewChain(src, stage, mark, screen),
		screen: screen,
		record: record,
	}, nil
}

func newWatermark(cfg WatermarkConfig) (*filter.Watermark, error) {
	w := filter.NewWatermark()
	corner, err := filter.ParseCorner(cfg.Corner)
	if err != nil {
		return nil, err
	}
	place := filter.Placement{Corner: corner, MarginX: cfg.MarginX, MarginY: cfg.MarginY}
	if cfg.Text != "" {
		style := ggcanvas.TextStyle{
			Size:       float64(cfg.TextSize),
			Background: color.RGBA{A: 128},
			Padding:    4,
		}
		if err := w.SetTextMark(cfg.Text, style, place); err != nil {
			return nil, err
		}
	}
	if cfg.Image != "" {
		img, err := imaging.Open(cfg.Image)
		if err != nil {
			return nil, fmt.Errorf("watermark image: %w", err)
		}
		// Stack the image mark next to the text mark.
		size := cfg.TextSize
		if size <= 0 {
			size = ggcanvas.DefaultTextSize
		}
		imgPlace := place
		imgPlace.MarginY += 2 * size
		if err := w.SetImageMark(img, imgPlace); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// testPattern draws colour bars with gg for runs without an input.
func testPattern(w, h int) image.Image {
	dc := gg.NewContext(w, h)
	const bars = 8
	bw := float64(w) / bars
	for i := range bars {
		dc.SetColor(gg.HSL(float64(i)*360/bars, 0.7, 0.5))
		dc.DrawRectangle(float64(i)*bw, 0, bw+1, float64(h))
		_ = dc.Fill()
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(float64(w)/2, float64(h)/2, float64(min(w, h))/6)
	_ = dc.Fill()
	return dc.Image()
}

func (p *pipeline) run(ctx context.Context, logger *slog.Logger) error {
	cfg := p.cfg
	platform, err := backend.Lookup(cfg.Backend)
	if err != nil {
		return err
	}
	win := software.NewWindow(cfg.Width, cfg.Height)
	presented := make(chan struct{}, 1)
	win.OnPresent(func(*image.RGBA) {
		select {
		case presented <- struct{}{}:
		default:
		}
	})

	host := surface.NewHost(platform,
		surface.WithRenderer(p.chain),
		surface.WithRenderMode(p.mode),
		surface.WithFrameInterval(cfg.frameInterval()),
		surface.WithLogger(logger),
	)
	defer host.Close()
	if err := host.SurfaceCreated(win); err != nil {
		return err
	}
	if err := host.SurfaceChanged(cfg.Width, cfg.Height); err != nil {
		return err
	}
	th := host.Thread()
	shared, err := waitRunning(ctx, th)
	if err != nil {
		return err
	}

	var rec *recording
	if cfg.Encode.Enabled {
		if rec, err = p.startRecording(ctx, platform, shared, logger); err != nil {
			return err
		}
		defer rec.stop(logger)
	}

	for i := range cfg.Frames {
		if i > 0 && p.src.Len() > 1 && i%max(cfg.FramesPerImage, 1) == 0 {
			if err := p.src.Next(); err != nil {
				logger.Warn("vmk: next image", "error", err)
			}
		}
		if p.mode == renderloop.OnDemand {
			_ = host.RequestRender()
		}
		if err := awaitFrame(ctx, presented, th); err != nil {
			return err
		}
		if rec != nil {
			rec.frame(p.mode, logger)
		}
	}

	if err := p.saveSnapshot(ctx, host); err != nil {
		return err
	}
	if rec != nil {
		return rec.stop(logger)
	}
	return nil
}

// waitRunning waits until th has a context and accepts render requests,
// and returns the context for sharing.
func waitRunning(ctx context.Context, th *renderloop.Thread) (gpucore.ContextID, error) {
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	timeout := time.After(frameTimeout)
	for {
		switch th.State() {
		case renderloop.StateRunning:
			return th.SharedContext(), nil
		case renderloop.StateExited:
			if err := th.Err(); err != nil {
				return gpucore.InvalidID, err
			}
			return gpucore.InvalidID, renderloop.ErrExited
		}
		select {
		case <-tick.C:
		case <-timeout:
			return gpucore.InvalidID, errors.New("render context not created")
		case <-ctx.Done():
			return gpucore.InvalidID, ctx.Err()
		}
	}
}

func awaitFrame(ctx context.Context, presented <-chan struct{}, th *renderloop.Thread) error {
	select {
	case <-presented:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(frameTimeout):
		if err := th.Err(); err != nil {
			return err
		}
		return errors.New("no frame presented")
	}
}

func (p *pipeline) saveSnapshot(ctx context.Context, host *surface.Host) error {
	type shot struct {
		img *image.RGBA
		err error
	}
	ch := make(chan shot, 1)
	p.screen.RequestSnapshot(func(img *image.RGBA, err error) { ch <- shot{img, err} })
	_ = host.RequestRender()

	var s shot
	select {
	case s = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(frameTimeout):
		return errors.New("snapshot timed out")
	}
	if s.err != nil {
		return fmt.Errorf("snapshot: %w", s.err)
	}
	path := filepath.Join(p.cfg.Out, p.cfg.Snapshot)
	if err := filter.SaveSnapshot(path, s.img); err != nil {
		return err
	}
	videomaker.Logger().Info("vmk: snapshot saved", "path", path, "size", s.img.Rect.Size())
	return nil
}

// recording is an encoder bridge with an optional RTP push.
type recording struct {
	bridge  *encoder.Bridge
	pusher  *stream.Pusher
	dir     string
	silence []byte
	stopped bool
}

func (p *pipeline) startRecording(ctx context.Context, platform gpucore.Platform,
	shared gpucore.ContextID, logger *slog.Logger) (*recording, error) {
	cfg := p.cfg
	rec := &recording{dir: filepath.Join(cfg.Out, cfg.Encode.Dir)}

	opts := []encoder.Option{
		encoder.WithRenderMode(p.mode),
		encoder.WithFrameInterval(cfg.frameInterval()),
		encoder.WithLogger(logger),
	}
	if cfg.Stream.Addr != "" {
		sink := stream.NewRTPSink(cfg.Stream.Addr, encoder.MimeMJPEG,
			stream.WithAudioClockRate(uint32(cfg.Encode.SampleRate)),
			stream.WithRTPLogger(logger))
		rec.pusher = stream.NewPusher(sink, stream.WithLogger(logger))
		opts = append(opts, encoder.WithSampleSink(rec.pusher), encoder.WithParameterSetSink(rec.pusher))
		if err := rec.pusher.Start(ctx); err != nil {
			return nil, err
		}
	}

	codecs := encsw.NewCodecs(encsw.WithQuality(cfg.Encode.Quality), encsw.WithLogger(logger))
	rec.bridge = encoder.NewBridge(platform, codecs, p.record, opts...)
	bc := encoder.Config{
		SharedContext: shared,
		Path:          rec.dir,
		Mime:          encoder.MimeMJPEG,
		Width:         cfg.Width,
		Height:        cfg.Height,
	}
	if cfg.Encode.SilentAudio {
		const bytesPerSample = 2
		bc.Audio = &encoder.AudioConfig{
			Mime:          encoder.MimeRawAudio,
			SampleRate:    cfg.Encode.SampleRate,
			Channels:      1,
			BitsPerSample: 8 * bytesPerSample,
			MaxInputSize:  4096,
		}
		perFrame := int64(cfg.Encode.SampleRate) * cfg.frameInterval().Microseconds() / 1_000_000
		rec.silence = make([]byte, perFrame*bytesPerSample)
	}
	if err := rec.bridge.Start(ctx, bc); err != nil {
		if rec.pusher != nil {
			_ = rec.pusher.Stop()
		}
		return nil, err
	}
	return rec, nil
}

// frame follows one presented screen frame.
func (r *recording) frame(mode renderloop.RenderMode, logger *slog.Logger) {
	if mode == renderloop.OnDemand {
		_ = r.bridge.RequestRender()
	}
	if len(r.silence) > 0 {
		if err := r.bridge.WriteAudio(r.silence); err != nil {
			logger.Warn("vmk: write audio", "error", err)
		}
	}
}

func (r *recording) stop(logger *slog.Logger) error {
	if r.stopped {
		return nil
	}
	r.stopped = true

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	err := r.bridge.Stop(ctx)
	if r.pusher != nil {
		if perr := r.pusher.Stop(); perr != nil && !errors.Is(perr, stream.ErrNotPushing) {
			err = errors.Join(err, perr)
		}
		logger.Info("vmk: stream finished", "stats", r.pusher.Stats())
	}
	if err != nil {
		return err
	}

	idx, err := encsw.ReadIndex(r.dir)
	if err != nil {
		return err
	}
	for _, t := range idx.Tracks {
		logger.Info("vmk: track written", "dir", r.dir, "mime", t.Mime, "samples", len(t.Samples))
	}
	return nil
}
