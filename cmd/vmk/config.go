// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/videomaker/backend"
	"github.com/gogpu/videomaker/filter"
	"github.com/gogpu/videomaker/renderloop"
	"github.com/gogpu/videomaker/shader"
)

// Config is the vmk.toml layout.
type Config struct {
	Backend         string   `toml:"backend"`
	Width           int      `toml:"width"`
	Height          int      `toml:"height"`
	Inputs          []string `toml:"inputs"`
	Filter          string   `toml:"filter"`
	Out             string   `toml:"out"`
	Frames          int      `toml:"frames"`
	FramesPerImage  int      `toml:"frames_per_image"`
	Mode            string   `toml:"mode"`
	FrameIntervalMS int      `toml:"frame_interval_ms"`
	Snapshot        string   `toml:"snapshot"`
	LogLevel        string   `toml:"log_level"`

	Watermark WatermarkConfig `toml:"watermark"`
	Encode    EncodeConfig    `toml:"encode"`
	Stream    StreamConfig    `toml:"stream"`
}

// WatermarkConfig places an optional text and image mark.
type WatermarkConfig struct {
	Text     string `toml:"text"`
	TextSize int    `toml:"text_size"`
	Image    string `toml:"image"`
	Corner   string `toml:"corner"`
	MarginX  int    `toml:"margin_x"`
	MarginY  int    `toml:"margin_y"`
}

// EncodeConfig enables recording the composited frames.
type EncodeConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	Quality int    `toml:"quality"`

	// SilentAudio records a silent PCM track alongside the video.
	SilentAudio bool `toml:"silent_audio"`
	SampleRate  int  `toml:"sample_rate"`
}

// StreamConfig pushes the recording as RTP.
type StreamConfig struct {
	Addr string `toml:"addr"`
}

func defaultConfig() Config {
	return Config{
		Backend:         backend.BackendSoftware,
		Width:           640,
		Height:          360,
		Filter:          string(shader.Normal),
		Out:             "vmk-out",
		Frames:          60,
		FramesPerImage:  30,
		Mode:            "continuous",
		FrameIntervalMS: 33,
		Snapshot:        "snapshot.png",
		LogLevel:        "info",
		Watermark: WatermarkConfig{
			Corner:  filter.RightBottom.String(),
			MarginX: 16,
			MarginY: 16,
		},
		Encode: EncodeConfig{
			Dir:        "clip",
			Quality:    85,
			SampleRate: 44100,
		},
	}
}

// decodeConfig overlays the TOML in r on cfg. Unknown keys are errors.
func decodeConfig(r io.Reader, cfg *Config) error {
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			var keys []string
			for _, e := range serr.Errors {
				keys = append(keys, strings.Join(e.Key(), "."))
			}
			return fmt.Errorf("config: unknown keys %s", strings.Join(keys, ", "))
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("config %d:%d: %w", row, col, err)
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// loadConfig builds the configuration from defaults, the -config file and
// explicitly set flags, in that order.
func loadConfig(args []string) (Config, error) {
	fs := flag.NewFlagSet("vmk", flag.ContinueOnError)
	var (
		path   = fs.String("config", "", "TOML config file")
		in     = fs.String("in", "", "input image, or a comma separated slideshow")
		filt   = fs.String("filter", "", "filter: "+strings.Join(filterNames(), ", "))
		out    = fs.String("out", "", "output directory")
		frames = fs.Int("frames", 0, "frames to render")
		encode = fs.Bool("encode", false, "record the frames")
		addr   = fs.String("stream", "", "push the recording as RTP to host:port")
	)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	if *path != "" {
		f, err := os.Open(*path)
		if err != nil {
			return Config{}, err
		}
		defer f.Close()
		if err := decodeConfig(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", *path, err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.Inputs = strings.Split(*in, ",")
		case "filter":
			cfg.Filter = *filt
		case "out":
			cfg.Out = *out
		case "frames":
			cfg.Frames = *frames
		case "encode":
			cfg.Encode.Enabled = *encode
		case "stream":
			cfg.Stream.Addr = *addr
		}
	})
	return cfg, cfg.validate()
}

func filterNames() []string {
	var names []string
	for _, n := range shader.Names() {
		names = append(names, string(n))
	}
	return names
}

func (c Config) validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("invalid size %dx%d", c.Width, c.Height)
	case c.Frames <= 0:
		return fmt.Errorf("frames must be positive, got %d", c.Frames)
	case c.FrameIntervalMS <= 0:
		return fmt.Errorf("frame_interval_ms must be positive, got %d", c.FrameIntervalMS)
	case c.Out == "":
		return errors.New("no output directory")
	case c.Stream.Addr != "" && !c.Encode.Enabled:
		return errors.New("streaming needs encode to be enabled")
	case !backend.IsRegistered(c.Backend):
		return fmt.Errorf("%w: %q (have %s)", backend.ErrBackendNotAvailable, c.Backend, strings.Join(backend.Available(), ", "))
	}
	if _, err := shader.ParseName(c.Filter); err != nil {
		return err
	}
	if _, err := renderloop.ParseRenderMode(c.Mode); err != nil {
		return err
	}
	if _, err := filter.ParseCorner(c.Watermark.Corner); err != nil {
		return err
	}
	if _, err := filter.SnapshotFormatFromPath(c.Snapshot); err != nil {
		return err
	}
	if _, err := c.logLevel(); err != nil {
		return err
	}
	return nil
}

func (c Config) frameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

func (c Config) logLevel() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}
