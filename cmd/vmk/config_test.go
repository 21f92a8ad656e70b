// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
width = 320
height = 240
inputs = ["a.jpg", "b.jpg"]
filter = "gray"
frames = 10
mode = "on-demand"
frame_interval_ms = 40
snapshot = "shot.bmp"

[watermark]
text = "vmk"
corner = "left-top"

[encode]
enabled = true
silent_audio = true
sample_rate = 8000
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vmk.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	cfg, err := loadConfig([]string{"-config", writeConfig(t, sampleConfig)})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 240 || cfg.Filter != "gray" || cfg.Frames != 10 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !slices.Equal(cfg.Inputs, []string{"a.jpg", "b.jpg"}) {
		t.Errorf("Inputs = %v", cfg.Inputs)
	}
	if cfg.frameInterval() != 40*time.Millisecond {
		t.Errorf("frameInterval() = %v", cfg.frameInterval())
	}
	if cfg.Watermark.Corner != "left-top" || cfg.Watermark.MarginX != 16 {
		t.Errorf("Watermark = %+v", cfg.Watermark)
	}
	if !cfg.Encode.Enabled || !cfg.Encode.SilentAudio || cfg.Encode.SampleRate != 8000 || cfg.Encode.Quality != 85 {
		t.Errorf("Encode = %+v", cfg.Encode)
	}
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	cfg, err := loadConfig([]string{"-config", path, "-filter", "reverse", "-in", "x.png", "-frames", "3", "-out", "dir"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Filter != "reverse" || cfg.Frames != 3 || cfg.Out != "dir" || !slices.Equal(cfg.Inputs, []string{"x.png"}) {
		t.Errorf("cfg = %+v", cfg)
	}
	// Flags that are not given keep the file value.
	if !cfg.Encode.Enabled {
		t.Error("encode reset by flags")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Filter != "normal" || cfg.Mode != "continuous" || cfg.Encode.Enabled {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		args []string
		want string
	}{
		{"unknown key", "colour = 1\n", nil, "colour"},
		{"bad filter", "", []string{"-filter", "sepia"}, "sepia"},
		{"bad mode", "mode = \"sometimes\"\n", nil, "sometimes"},
		{"bad corner", "[watermark]\ncorner = \"middle\"\n", nil, "middle"},
		{"bad snapshot", "snapshot = \"x.gif\"\n", nil, ".gif"},
		{"bad level", "log_level = \"loud\"\n", nil, "loud"},
		{"zero frames", "", []string{"-frames", "0"}, "frames"},
		{"unknown backend", "backend = \"vulkan\"\n", nil, "vulkan"},
		{"stream without encode", "", []string{"-stream", "127.0.0.1:5004"}, "encode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-config", writeConfig(t, tt.body)}, tt.args...)
			_, err := loadConfig(args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("loadConfig() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestRunWritesSnapshotAndClip(t *testing.T) {
	out := t.TempDir()
	path := writeConfig(t, `
width = 64
height = 32
frames = 4
frame_interval_ms = 5
log_level = "error"

[watermark]
text = "vmk"

[encode]
silent_audio = true
sample_rate = 8000
`)
	if err := run(t.Context(), []string{"-config", path, "-out", out, "-encode", "-filter", "gray"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "snapshot.png")); err != nil {
		t.Errorf("snapshot missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "clip", "index.toml")); err != nil {
		t.Errorf("clip index missing: %v", err)
	}
}
