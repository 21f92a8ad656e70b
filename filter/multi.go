// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
	"github.com/gogpu/videomaker/shader"
)

// MultiImageRegions is the number of regions images cycle through.
const MultiImageRegions = 5

// multiRegions holds the top-left, top-right, bottom-left and bottom-right
// quarters and the centre 1/16 of the viewport, followed by the texture
// coordinates.
var multiRegions = func() []float32 {
	regions := [MultiImageRegions][8]float32{
		render.RegionPositions(-1, 0, 0, 1),
		render.RegionPositions(0, 0, 1, 1),
		render.RegionPositions(-1, -1, 0, 0),
		render.RegionPositions(0, -1, 1, 0),
		render.RegionPositions(-0.25, -0.25, 0.25, 0.25),
	}
	buf := make([]float32, 0, MultiImageRegions*8+8)
	for _, r := range regions {
		buf = append(buf, r[:]...)
	}
	return append(buf, render.QuadTexCoords[:]...)
}()

const multiTexOffset = MultiImageRegions * 8

// MultiImage is a source stage that draws several images into one target.
// Image i lands in region i mod MultiImageRegions; later images draw over
// earlier ones sharing a region.
//
// It has no input texture: SetInputTexture is ignored.
type MultiImage struct {
	*Stage

	mu      sync.Mutex
	images  []*image.RGBA
	changed bool
	onDrawn func()

	// Render thread only.
	textures  []gpucore.TextureID
	regionBuf gpucore.BufferID
}

// NewMultiImage returns an empty multi-image stage. It clears on every
// draw.
func NewMultiImage() *MultiImage {
	m := &MultiImage{Stage: NewStage(shader.MustSource(shader.Normal))}
	m.SetClearOnDraw(true)
	return m
}

// SetInputTexture implements Filter. MultiImage has no input.
func (m *MultiImage) SetInputTexture(gpucore.TextureID) {}

// SetImages replaces the images. They are uploaded on the next frame.
func (m *MultiImage) SetImages(imgs []image.Image) {
	converted := make([]*image.RGBA, 0, len(imgs))
	for _, img := range imgs {
		if img == nil {
			continue
		}
		b := img.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
		converted = append(converted, dst)
	}

	m.mu.Lock()
	m.images = converted
	m.changed = true
	m.mu.Unlock()
}

// Clear removes every image.
func (m *MultiImage) Clear() {
	m.SetImages(nil)
}

// SetOnNewImagesDrawn registers fn to run on the render thread after the
// first frame that shows a new set of images.
func (m *MultiImage) SetOnNewImagesDrawn(fn func()) {
	m.mu.Lock()
	m.onDrawn = fn
	m.mu.Unlock()
}

// OnContextCreated implements render.Renderer.
func (m *MultiImage) OnContextCreated(dev gpucore.Device) error {
	if err := m.Stage.OnContextCreated(dev); err != nil {
		return err
	}
	buf, err := dev.CreateBuffer(multiRegions)
	if err != nil {
		return fmt.Errorf("filter: multi-image: create buffer: %w", err)
	}
	m.regionBuf = buf

	m.mu.Lock()
	m.changed = len(m.images) > 0
	m.mu.Unlock()
	return nil
}

// OnDrawFrame implements render.Renderer.
func (m *MultiImage) OnDrawFrame() error {
	if m.dev == nil || m.target == nil {
		return nil
	}
	changed, err := m.upload()
	if err != nil {
		return err
	}
	if len(m.textures) == 0 {
		return nil
	}

	if err := m.target.Bind(); err != nil {
		return fmt.Errorf("filter: multi-image: %w", err)
	}
	if m.clear.Load() {
		m.dev.SetClearColor(opaqueBlack)
		m.dev.Clear()
	}
	m.dev.SetBlendMode(gpucore.BlendNone)
	for i, tex := range m.textures {
		off := (i % MultiImageRegions) * 8
		if err = drawQuad(m.dev, m.program, tex, m.regionBuf, off, multiTexOffset, m.matrix); err != nil {
			break
		}
	}
	if uerr := m.target.Unbind(); err == nil {
		err = uerr
	}
	if err != nil {
		return fmt.Errorf("filter: multi-image: draw: %w", err)
	}

	if changed {
		m.mu.Lock()
		fn := m.onDrawn
		m.mu.Unlock()
		if fn != nil {
			fn()
		}
	}
	return nil
}

func (m *MultiImage) upload() (bool, error) {
	m.mu.Lock()
	imgs, changed := m.images, m.changed
	m.changed = false
	m.mu.Unlock()
	if !changed {
		return false, nil
	}

	m.deleteTextures()
	for _, img := range imgs {
		tex, err := m.dev.CreateTexture(img.Rect.Dx(), img.Rect.Dy(), gpucore.DefaultTextureFormat)
		if err != nil {
			return false, fmt.Errorf("filter: multi-image: upload: %w", err)
		}
		m.textures = append(m.textures, tex)
		if err := m.dev.WriteTexture(tex, img); err != nil {
			return false, fmt.Errorf("filter: multi-image: upload: %w", err)
		}
	}
	return true, nil
}

func (m *MultiImage) deleteTextures() {
	for _, tex := range m.textures {
		m.dev.DeleteTexture(tex)
	}
	m.textures = m.textures[:0]
}

// OnContextDestroy implements render.Renderer. The images are kept and
// uploaded again in the next context.
func (m *MultiImage) OnContextDestroy() {
	if m.dev != nil {
		m.deleteTextures()
		m.dev.DeleteBuffer(m.regionBuf)
	}
	m.textures = nil
	m.regionBuf = gpucore.InvalidID
	m.Stage.OnContextDestroy()
}
