// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software_test

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	backend "github.com/gogpu/videomaker/backend/software"
	"github.com/gogpu/videomaker/encoder"
	"github.com/gogpu/videomaker/encoder/software"
	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
	"github.com/gogpu/videomaker/renderloop"
)

// clearRenderer clears the surface to a fixed color.
type clearRenderer struct {
	dev gpucore.Device
}

func (r *clearRenderer) OnContextCreated(dev gpucore.Device) error {
	r.dev = dev
	dev.SetClearColor(color.RGBA{R: 200, G: 40, B: 40, A: 255})
	return nil
}

func (r *clearRenderer) OnSurfaceChanged(w, h int) error {
	r.dev.Viewport(0, 0, w, h)
	return nil
}

func (r *clearRenderer) OnDrawFrame() error {
	r.dev.Clear()
	return nil
}

func (r *clearRenderer) OnContextDestroy() { r.dev = nil }

func TestRecordToDirectory(t *testing.T) {
	p := backend.New()
	primary := renderloop.New(p, backend.NewWindow(4, 4), render.RendererFunc(func() error { return nil }),
		renderloop.WithRenderMode(renderloop.OnDemand))
	if err := primary.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		primary.RequestExit(nil)
		<-primary.Done()
	}()
	deadline := time.Now().Add(5 * time.Second)
	for primary.SharedContext() == gpucore.InvalidID {
		if time.Now().After(deadline) {
			t.Fatal("primary context not created")
		}
		time.Sleep(time.Millisecond)
	}

	dir := filepath.Join(t.TempDir(), "rec")
	b := encoder.NewBridge(p, software.NewCodecs(software.WithQuality(50)), &clearRenderer{},
		encoder.WithFrameInterval(5*time.Millisecond))
	err := b.Start(context.Background(), encoder.Config{
		SharedContext: primary.SharedContext(),
		Path:          dir,
		Mime:          encoder.MimeMJPEG,
		Width:         16,
		Height:        8,
		Audio: &encoder.AudioConfig{
			Mime:          encoder.MimeRawAudio,
			SampleRate:    8000,
			Channels:      1,
			BitsPerSample: 16,
			MaxInputSize:  320,
		},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	deadline = time.Now().Add(5 * time.Second)
	for b.EncodedDuration() < 20*time.Millisecond {
		if time.Now().After(deadline) {
			t.Fatal("no video encoded")
		}
		time.Sleep(time.Millisecond)
	}
	// Video samples are written, so the muxer is running.
	for range 5 {
		if err := b.WriteAudio(make([]byte, 320)); err != nil {
			t.Fatalf("WriteAudio() error = %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	idx, err := software.ReadIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(idx.Tracks) != 2 {
		t.Fatalf("index has %d tracks, want 2", len(idx.Tracks))
	}
	var video, audio *software.IndexTrack
	for i := range idx.Tracks {
		switch idx.Tracks[i].Mime {
		case encoder.MimeMJPEG:
			video = &idx.Tracks[i]
		case encoder.MimeRawAudio:
			audio = &idx.Tracks[i]
		}
	}
	if video == nil || audio == nil {
		t.Fatalf("tracks = %+v", idx.Tracks)
	}
	if len(video.Samples) == 0 || video.Samples[0].PTS != 0 || video.Width != 16 {
		t.Errorf("video track = %+v", video)
	}
	if len(audio.Samples) != 5 || audio.Samples[4].PTS != 80_000 {
		t.Errorf("audio samples = %+v", audio.Samples)
	}
	data, err := os.ReadFile(filepath.Join(dir, video.Samples[0].File))
	if err != nil || len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
		t.Errorf("first frame is not a JPEG: %v", err)
	}
}
