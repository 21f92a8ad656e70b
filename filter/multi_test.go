// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/videomaker/gpucore"
)

func TestMultiImageRegions(t *testing.T) {
	r := newRig(t, 8, 8)
	m := NewMultiImage()
	screen := NewCompositor()
	chain := NewChain(m, screen)

	drawn := 0
	m.SetOnNewImagesDrawn(func() { drawn++ })
	colors := []color.RGBA{red, green, blue, white, yellow}
	imgs := make([]image.Image, len(colors))
	for i, c := range colors {
		imgs[i] = solid(2, 2, c)
	}
	m.SetImages(imgs)

	if err := chain.OnContextCreated(r.dev); err != nil {
		t.Fatalf("OnContextCreated() error = %v", err)
	}
	defer chain.OnContextDestroy()
	_ = chain.OnSurfaceChanged(8, 8)
	for range 2 {
		if err := chain.OnDrawFrame(); err != nil {
			t.Fatalf("OnDrawFrame() error = %v", err)
		}
	}
	frame := r.present()

	tests := []struct {
		name string
		at   image.Point
		want color.RGBA
	}{
		{"top-left", image.Pt(1, 1), red},
		{"top-right", image.Pt(6, 1), green},
		{"bottom-left", image.Pt(1, 6), blue},
		{"bottom-right", image.Pt(6, 6), white},
		{"centre", image.Pt(3, 3), yellow},
		{"centre-2", image.Pt(4, 4), yellow},
	}
	for _, tt := range tests {
		if got := frame.RGBAAt(tt.at.X, tt.at.Y); got != tt.want {
			t.Errorf("%s pixel %v = %v, want %v", tt.name, tt.at, got, tt.want)
		}
	}
	if drawn != 1 {
		t.Errorf("new-images callback ran %d times, want 1", drawn)
	}
}

func TestMultiImageWrapsAround(t *testing.T) {
	r := newRig(t, 8, 8)
	m := NewMultiImage()
	screen := NewCompositor()
	chain := NewChain(m, screen)

	imgs := make([]image.Image, 6)
	for i := range imgs {
		imgs[i] = solid(2, 2, blue)
	}
	imgs[5] = solid(2, 2, red) // index 5 lands on region 0
	m.SetImages(imgs)

	_ = chain.OnContextCreated(r.dev)
	defer chain.OnContextDestroy()
	_ = chain.OnSurfaceChanged(8, 8)
	_ = chain.OnDrawFrame()
	if got := r.present().RGBAAt(1, 1); got != red {
		t.Errorf("top-left after wrap = %v, want red", got)
	}
}

func TestMultiImageClear(t *testing.T) {
	r := newRig(t, 8, 8)
	m := NewMultiImage()
	m.SetImages([]image.Image{solid(2, 2, red), nil})
	if err := m.OnContextCreated(r.dev); err != nil {
		t.Fatalf("OnContextCreated() error = %v", err)
	}
	defer m.OnContextDestroy()
	_ = m.OnSurfaceChanged(8, 8)
	_ = m.OnDrawFrame()
	if len(m.textures) != 1 {
		t.Fatalf("uploaded %d textures, want 1 (nil skipped)", len(m.textures))
	}
	tex := m.textures[0]

	m.Clear()
	_ = m.OnDrawFrame()
	if len(m.textures) != 0 || r.alive(tex) {
		t.Error("Clear() did not free the image textures")
	}

	m.SetInputTexture(42)
	if m.InputTexture() != gpucore.InvalidID {
		t.Error("MultiImage should ignore input textures")
	}
}
