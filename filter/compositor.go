// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
	"github.com/gogpu/videomaker/shader"
)

// ScreenTextureListener is told every texture the compositor is asked to
// show.
type ScreenTextureListener func(id gpucore.TextureID)

// SnapshotFunc receives a frame read back by RequestSnapshot.
type SnapshotFunc func(img *image.RGBA, err error)

// CompositorOption configures a Compositor.
type CompositorOption func(*Compositor)

// WithProgram draws with a built-in program other than shader.Normal, for
// example to apply a last effect while presenting.
func WithProgram(name shader.Name) CompositorOption {
	return func(c *Compositor) {
		c.source = shader.MustSource(name)
	}
}

// WithScreenTextureListener sets the ScreenTextureListener.
func WithScreenTextureListener(fn ScreenTextureListener) CompositorOption {
	return func(c *Compositor) {
		c.screenListener = fn
	}
}

// WithClearOnDraw makes every frame start with a clear.
func WithClearOnDraw(clear bool) CompositorOption {
	return func(c *Compositor) {
		c.clear.Store(clear)
	}
}

// Compositor draws its input texture to the default framebuffer, which is
// the presentable surface of the render thread.
//
// It has no render target: OutputTextureID is always InvalidID. After
// every surface change the next frame is cleared once, so bars left by a
// previous size never show.
type Compositor struct {
	source gpucore.ProgramSource

	input atomic.Uint64
	clear atomic.Bool

	mu             sync.Mutex
	screenListener ScreenTextureListener
	snapshots      []SnapshotFunc

	// Render thread only.
	dev        gpucore.Device
	program    gpucore.ProgramID
	buffer     gpucore.BufferID
	width      int
	height     int
	forceClear bool
}

// NewCompositor returns a compositor using shader.Normal.
func NewCompositor(opts ...CompositorOption) *Compositor {
	c := &Compositor{source: shader.MustSource(shader.Normal)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetInputTexture implements Filter and notifies the
// ScreenTextureListener.
func (c *Compositor) SetInputTexture(id gpucore.TextureID) {
	c.input.Store(uint64(id))

	c.mu.Lock()
	fn := c.screenListener
	c.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

// InputTexture returns the texture shown on the next frame.
func (c *Compositor) InputTexture() gpucore.TextureID {
	return gpucore.TextureID(c.input.Load())
}

// OutputTextureID implements Filter. The compositor draws to the surface,
// so it never has an output texture.
func (c *Compositor) OutputTextureID() gpucore.TextureID {
	return gpucore.InvalidID
}

// SetTextureChangeListener implements Filter. The listener is never
// called.
func (c *Compositor) SetTextureChangeListener(render.TextureChangeListener) {}

// SetScreenTextureListener replaces the ScreenTextureListener.
func (c *Compositor) SetScreenTextureListener(fn ScreenTextureListener) {
	c.mu.Lock()
	c.screenListener = fn
	c.mu.Unlock()
}

// SetClearOnDraw makes every frame start with a clear.
func (c *Compositor) SetClearOnDraw(clear bool) {
	c.clear.Store(clear)
}

// OnContextCreated implements render.Renderer.
func (c *Compositor) OnContextCreated(dev gpucore.Device) error {
	prog, err := dev.CreateProgram(c.source)
	if err != nil {
		return fmt.Errorf("filter: compositor: create program: %w", err)
	}
	buf, err := dev.CreateBuffer(render.QuadBuffer())
	if err != nil {
		dev.DeleteProgram(prog)
		return fmt.Errorf("filter: compositor: create buffer: %w", err)
	}
	c.dev = dev
	c.program = prog
	c.buffer = buf
	return nil
}

// OnSurfaceChanged implements render.Renderer.
func (c *Compositor) OnSurfaceChanged(width, height int) error {
	if c.dev == nil {
		return ErrNotCreated
	}
	c.width, c.height = width, height
	c.forceClear = true
	return nil
}

// OnDrawFrame implements render.Renderer.
func (c *Compositor) OnDrawFrame() error {
	if c.dev == nil {
		return ErrNotCreated
	}
	if err := c.dev.BindFramebuffer(gpucore.DefaultFramebuffer); err != nil {
		return fmt.Errorf("filter: compositor: %w", err)
	}
	c.dev.Viewport(0, 0, c.width, c.height)

	if c.clear.Load() || c.forceClear {
		c.dev.SetClearColor(opaqueBlack)
		c.dev.Clear()
		c.forceClear = false
	}

	in := c.InputTexture()
	if in == gpucore.InvalidID {
		return nil
	}
	c.dev.SetBlendMode(gpucore.BlendNone)
	if err := drawQuad(c.dev, c.program, in, c.buffer, 0, render.QuadTexCoordOffset, render.Identity()); err != nil {
		return fmt.Errorf("filter: compositor: draw: %w", err)
	}

	c.serveSnapshots()
	return nil
}

// OnContextDestroy implements render.Renderer. Pending snapshot requests
// fail with ErrNotCreated.
func (c *Compositor) OnContextDestroy() {
	if c.dev != nil {
		c.dev.DeleteBuffer(c.buffer)
		c.dev.DeleteProgram(c.program)
		c.dev = nil
	}
	c.buffer = gpucore.InvalidID
	c.program = gpucore.InvalidID

	c.mu.Lock()
	pending := c.snapshots
	c.snapshots = nil
	c.mu.Unlock()
	for _, fn := range pending {
		fn(nil, ErrNotCreated)
	}
}

// Snapshot reads back the frame drawn to the surface. It must run on the
// render thread after OnDrawFrame; other goroutines use RequestSnapshot.
func (c *Compositor) Snapshot() (*image.RGBA, error) {
	if c.dev == nil {
		return nil, ErrNotCreated
	}
	if c.width <= 0 || c.height <= 0 {
		return nil, fmt.Errorf("filter: compositor: snapshot before surface size is known")
	}
	if err := c.dev.BindFramebuffer(gpucore.DefaultFramebuffer); err != nil {
		return nil, err
	}
	img, err := c.dev.ReadPixels(0, 0, c.width, c.height)
	if err != nil {
		return nil, fmt.Errorf("filter: compositor: read pixels: %w", err)
	}
	return toRGBA(img, render.SurfaceFormat(c.dev)), nil
}

// RequestSnapshot asks for the next drawn frame. fn runs on the render
// thread right after that frame is drawn, or with ErrNotCreated if the
// context goes away first.
func (c *Compositor) RequestSnapshot(fn SnapshotFunc) {
	c.mu.Lock()
	c.snapshots = append(c.snapshots, fn)
	c.mu.Unlock()
}

func (c *Compositor) serveSnapshots() {
	c.mu.Lock()
	pending := c.snapshots
	c.snapshots = nil
	c.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	img, err := c.Snapshot()
	if err != nil {
		videomaker.Logger().Warn("filter: snapshot failed", "error", err)
	}
	for i, fn := range pending {
		if i > 0 && img != nil {
			// Each receiver owns its image.
			img = cloneRGBA(img)
		}
		fn(img, err)
	}
}

// toRGBA converts pixels read from a surface of the given format to RGBA
// order in place.
func toRGBA(img *image.RGBA, format gputypes.TextureFormat) *image.RGBA {
	if format == gputypes.TextureFormatBGRA8Unorm {
		for i := 0; i+3 < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}
