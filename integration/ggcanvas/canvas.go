// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ggcanvas

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gg"
	"github.com/gogpu/videomaker/gpucore"
)

// Common errors returned by Canvas operations.
var (
	// ErrCanvasClosed is returned when operations are attempted on a closed canvas.
	ErrCanvasClosed = errors.New("ggcanvas: canvas is closed")

	// ErrInvalidDimensions is returned when width or height is invalid.
	ErrInvalidDimensions = errors.New("ggcanvas: invalid dimensions")

	// ErrNilDevice is returned when Flush is called without a device.
	ErrNilDevice = errors.New("ggcanvas: nil device")

	// ErrTextureCreationFailed is returned when texture creation fails.
	ErrTextureCreationFailed = errors.New("ggcanvas: texture creation failed")
)

// Canvas wraps gg.Context and keeps a texture in sync with its pixels.
//
// Canvas is NOT safe for concurrent use.
type Canvas struct {
	ctx         *gg.Context
	texture     gpucore.TextureID
	oldTexture  gpucore.TextureID // awaiting deferred destruction
	dirty       bool
	sizeChanged bool
	width       int
	height      int
	closed      bool
}

// New creates a width x height canvas with default gg.Context settings.
func New(width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	return &Canvas{
		ctx:    gg.NewContext(width, height),
		width:  width,
		height: height,
		dirty:  true,
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(width, height int) *Canvas {
	c, err := New(width, height)
	if err != nil {
		panic(err)
	}
	return c
}

// Context returns the gg drawing context, or nil if the canvas is closed.
//
// After drawing directly, call MarkDirty so the next Flush uploads.
func (c *Canvas) Context() *gg.Context {
	if c.closed {
		return nil
	}
	return c.ctx
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int {
	return c.width
}

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int {
	return c.height
}

// Size returns width and height as a convenience.
func (c *Canvas) Size() (width, height int) {
	return c.width, c.height
}

// MarkDirty flags the canvas for upload on the next Flush.
func (c *Canvas) MarkDirty() {
	c.dirty = true
}

// Draw calls fn with the gg context and marks the canvas as dirty.
func (c *Canvas) Draw(fn func(*gg.Context)) error {
	if c.closed {
		return ErrCanvasClosed
	}
	fn(c.ctx)
	c.dirty = true
	return nil
}

// IsDirty reports whether the canvas has changes not yet uploaded.
func (c *Canvas) IsDirty() bool {
	return c.dirty
}

// Resize changes canvas dimensions. This clears the canvas.
func (c *Canvas) Resize(width, height int) error {
	if c.closed {
		return ErrCanvasClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if c.width == width && c.height == height {
		return nil
	}

	if err := c.ctx.Resize(width, height); err != nil {
		return fmt.Errorf("ggcanvas: context resize failed: %w", err)
	}

	c.width = width
	c.height = height
	c.sizeChanged = true
	c.dirty = true
	return nil
}

// Image returns a copy of the canvas pixels.
func (c *Canvas) Image() (*image.RGBA, error) {
	if c.closed {
		return nil, ErrCanvasClosed
	}
	_ = c.ctx.FlushGPU()
	return c.ctx.ResizeTarget().ToImage(), nil
}

// Flush uploads the canvas to its texture on dev if dirty and returns the
// texture id. The texture is created on the first call.
//
// After a Resize a new texture is created, and the previous one is deleted
// only once the new one holds the current pixels.
func (c *Canvas) Flush(dev gpucore.Device) (gpucore.TextureID, error) {
	if c.closed {
		return gpucore.InvalidID, ErrCanvasClosed
	}
	if dev == nil {
		return gpucore.InvalidID, ErrNilDevice
	}

	if c.sizeChanged {
		if c.texture != gpucore.InvalidID {
			if c.oldTexture != gpucore.InvalidID {
				dev.DeleteTexture(c.oldTexture)
			}
			c.oldTexture = c.texture
			c.texture = gpucore.InvalidID
		}
		c.sizeChanged = false
	}

	if !c.dirty && c.texture != gpucore.InvalidID {
		return c.texture, nil
	}

	// An accelerator failure leaves the CPU-rendered pixels in place.
	_ = c.ctx.FlushGPU()
	img := c.ctx.ResizeTarget().ToImage()

	if c.texture == gpucore.InvalidID {
		tex, err := dev.CreateTexture(c.width, c.height, gpucore.DefaultTextureFormat)
		if err != nil {
			return gpucore.InvalidID, fmt.Errorf("%w: %w", ErrTextureCreationFailed, err)
		}
		c.texture = tex
	}
	if err := dev.WriteTexture(c.texture, img); err != nil {
		return gpucore.InvalidID, fmt.Errorf("ggcanvas: texture update failed: %w", err)
	}

	if c.oldTexture != gpucore.InvalidID {
		dev.DeleteTexture(c.oldTexture)
		c.oldTexture = gpucore.InvalidID
	}
	c.dirty = false
	return c.texture, nil
}

// Texture returns the current texture without flushing, or InvalidID
// before the first Flush.
func (c *Canvas) Texture() gpucore.TextureID {
	return c.texture
}

// ReleaseTextures deletes the textures on dev but keeps the drawing, so
// the next Flush uploads again. Use it when the owning context is
// destroyed while the canvas outlives it.
func (c *Canvas) ReleaseTextures(dev gpucore.Device) {
	if dev != nil {
		if c.oldTexture != gpucore.InvalidID {
			dev.DeleteTexture(c.oldTexture)
		}
		if c.texture != gpucore.InvalidID {
			dev.DeleteTexture(c.texture)
		}
	}
	c.oldTexture = gpucore.InvalidID
	c.texture = gpucore.InvalidID
	c.sizeChanged = false
	c.dirty = true
}

// Close releases the textures on dev and the gg context. dev may be nil
// when no texture was ever flushed. Close is idempotent.
func (c *Canvas) Close(dev gpucore.Device) error {
	if c.closed {
		return nil
	}
	c.ReleaseTextures(dev)
	c.closed = true

	if c.ctx != nil {
		_ = c.ctx.Close()
		c.ctx = nil
	}
	return nil
}
