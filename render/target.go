// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/videomaker/gpucore"
)

// Target errors.
var (
	// ErrInvalidDimensions is returned when width or height is not positive.
	ErrInvalidDimensions = errors.New("render: invalid dimensions")

	// ErrTargetReleased is returned when a released target is used.
	ErrTargetReleased = errors.New("render: target released")
)

// TextureChangeListener is told the id of a newly attached texture.
type TextureChangeListener func(id gpucore.TextureID)

// Target is an off-screen framebuffer bound to a backing texture.
//
// The backing texture is reallocated on every Resize. The previous texture
// is deleted only after the new one is attached and the framebuffer is
// complete, so a consumer never samples a freed texture in between.
//
// Target is NOT safe for concurrent use; it belongs to the render thread
// of its device.
type Target struct {
	dev      gpucore.Device
	fbo      gpucore.FramebufferID
	texture  gpucore.TextureID
	width    int
	height   int
	listener TextureChangeListener
	released bool
}

// NewTarget creates a framebuffer with no backing texture. Call Resize
// before drawing.
func NewTarget(dev gpucore.Device) (*Target, error) {
	fbo, err := dev.CreateFramebuffer()
	if err != nil {
		return nil, fmt.Errorf("render: create framebuffer: %w", err)
	}
	return &Target{dev: dev, fbo: fbo}, nil
}

// SetListener registers fn to be told the new texture id after each
// successful Resize. Pass nil to remove the listener.
func (t *Target) SetListener(fn TextureChangeListener) {
	t.listener = fn
}

// Resize attaches a new width x height texture.
//
// If the framebuffer is incomplete with the new texture, the new texture is
// deleted, the previous one stays attached and the error is returned.
func (t *Target) Resize(width, height int) error {
	if t.released {
		return ErrTargetReleased
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}

	old := t.texture
	tex, err := t.dev.CreateTexture(width, height, gpucore.DefaultTextureFormat)
	if err != nil {
		return fmt.Errorf("render: create target texture: %w", err)
	}

	if err := t.dev.AttachTexture(t.fbo, tex); err != nil {
		t.dev.DeleteTexture(tex)
		return fmt.Errorf("render: attach target texture: %w", err)
	}
	if err := t.dev.CheckFramebuffer(t.fbo); err != nil {
		t.dev.DeleteTexture(tex)
		err = fmt.Errorf("render: resize to %dx%d: %w", width, height, err)
		if old != gpucore.InvalidID {
			if rerr := t.dev.AttachTexture(t.fbo, old); rerr != nil {
				err = errors.Join(err, fmt.Errorf("render: restore target texture %d: %w", old, rerr))
			}
		}
		return err
	}

	if old != gpucore.InvalidID {
		t.dev.DeleteTexture(old)
	}
	t.texture = tex
	t.width = width
	t.height = height

	if t.listener != nil {
		t.listener(tex)
	}
	return nil
}

// Bind directs rendering to the target and sets the viewport to its size.
func (t *Target) Bind() error {
	if t.released {
		return ErrTargetReleased
	}
	if err := t.dev.BindFramebuffer(t.fbo); err != nil {
		return err
	}
	t.dev.Viewport(0, 0, t.width, t.height)
	return nil
}

// Unbind restores rendering to the window surface.
func (t *Target) Unbind() error {
	return t.dev.BindFramebuffer(gpucore.DefaultFramebuffer)
}

// TextureID returns the attached texture, or InvalidID before the first
// Resize.
func (t *Target) TextureID() gpucore.TextureID {
	return t.texture
}

// FramebufferID returns the framebuffer handle.
func (t *Target) FramebufferID() gpucore.FramebufferID {
	return t.fbo
}

// Size returns the current texture dimensions.
func (t *Target) Size() (width, height int) {
	return t.width, t.height
}

// Release deletes the texture and framebuffer. Safe to call multiple times.
func (t *Target) Release() {
	if t.released {
		return
	}
	t.released = true
	if t.texture != gpucore.InvalidID {
		t.dev.DeleteTexture(t.texture)
		t.texture = gpucore.InvalidID
	}
	t.dev.DeleteFramebuffer(t.fbo)
	t.fbo = gpucore.InvalidID
}
