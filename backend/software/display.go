// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/videomaker/gpucore"
)

// softwareConfig is the only config the display offers.
var softwareConfig = gpucore.Config{
	ID:      1,
	Attribs: gpucore.DefaultConfigAttribs,
	Format:  gputypes.TextureFormatRGBA8Unorm,
}

// Display implements gpucore.Display.
type Display struct {
	platform *Platform

	// nextID is shared by every object of the display so handles are
	// unique across share groups.
	nextID atomic.Uint64

	mu       sync.Mutex
	refs     int
	contexts map[gpucore.ContextID]*glContext
	surfaces map[gpucore.SurfaceID]*windowSurface
}

type glContext struct {
	id      gpucore.ContextID
	group   *shareGroup
	device  *Device
	current bool
	lost    atomic.Bool
}

type windowSurface struct {
	id   gpucore.SurfaceID
	win  gpucore.NativeWindow
	back *image.RGBA
	ctx  *glContext
}

func newDisplay(p *Platform) *Display {
	d := &Display{
		platform: p,
		contexts: make(map[gpucore.ContextID]*glContext),
		surfaces: make(map[gpucore.SurfaceID]*windowSurface),
	}
	d.nextID.Store(1)
	return d
}

// newID returns a new unique resource ID.
func (d *Display) newID() uint64 {
	return d.nextID.Add(1) - 1
}

func (d *Display) acquire() {
	d.mu.Lock()
	d.refs++
	d.mu.Unlock()
}

func (d *Display) initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refs > 0
}

// ChooseConfig implements gpucore.Display.
func (d *Display) ChooseConfig(attribs gpucore.ConfigAttribs) (gpucore.Config, error) {
	if !d.initialized() {
		return gpucore.Config{}, gpucore.ErrNotInitialized
	}
	want := attribs
	have := softwareConfig.Attribs
	if want.RedSize > have.RedSize || want.GreenSize > have.GreenSize ||
		want.BlueSize > have.BlueSize || want.AlphaSize > have.AlphaSize ||
		want.DepthSize > have.DepthSize || want.StencilSize > have.StencilSize {
		return gpucore.Config{}, fmt.Errorf("%w: no config matches %+v", gpucore.ErrBadConfig, attribs)
	}
	return softwareConfig, nil
}

// CreateContext implements gpucore.Display.
func (d *Display) CreateContext(cfg gpucore.Config, share gpucore.ContextID) (gpucore.ContextID, error) {
	if cfg.ID != softwareConfig.ID {
		return gpucore.InvalidID, gpucore.ErrBadConfig
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refs == 0 {
		return gpucore.InvalidID, gpucore.ErrNotInitialized
	}

	var group *shareGroup
	if share != gpucore.InvalidID {
		parent, ok := d.contexts[share]
		if !ok || parent.lost.Load() {
			return gpucore.InvalidID, fmt.Errorf("%w: share context %d", gpucore.ErrBadContext, share)
		}
		group = parent.group
	} else {
		group = newShareGroup()
	}
	group.retain()

	ctx := &glContext{
		id:    gpucore.ContextID(d.newID()),
		group: group,
	}
	ctx.device = newDevice(d, ctx)
	d.contexts[ctx.id] = ctx

	d.platform.logger().Debug("software: context created",
		"context", ctx.id, "share", share)
	return ctx.id, nil
}

// CreateWindowSurface implements gpucore.Display.
func (d *Display) CreateWindowSurface(cfg gpucore.Config, win gpucore.NativeWindow) (gpucore.SurfaceID, error) {
	if cfg.ID != softwareConfig.ID {
		return gpucore.InvalidID, gpucore.ErrBadConfig
	}
	if win == nil {
		return gpucore.InvalidID, gpucore.ErrBadNativeWindow
	}
	w, h := win.Size()
	if w <= 0 || h <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: size %dx%d", gpucore.ErrBadNativeWindow, w, h)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refs == 0 {
		return gpucore.InvalidID, gpucore.ErrNotInitialized
	}
	s := &windowSurface{
		id:   gpucore.SurfaceID(d.newID()),
		win:  win,
		back: image.NewRGBA(image.Rect(0, 0, w, h)),
	}
	d.surfaces[s.id] = s
	return s.id, nil
}

// MakeCurrent implements gpucore.Display.
func (d *Display) MakeCurrent(surface gpucore.SurfaceID, ctxID gpucore.ContextID) (gpucore.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, ok := d.contexts[ctxID]
	if !ok {
		return nil, gpucore.ErrBadContext
	}
	s, ok := d.surfaces[surface]
	if !ok {
		return nil, gpucore.ErrBadSurface
	}
	if ctx.current && s.ctx != ctx {
		return nil, fmt.Errorf("%w: context %d is current elsewhere", gpucore.ErrBadAccess, ctxID)
	}
	if s.ctx != nil && s.ctx != ctx {
		return nil, fmt.Errorf("%w: surface %d is bound to context %d", gpucore.ErrBadAccess, surface, s.ctx.id)
	}
	if ctx.lost.Load() {
		return nil, gpucore.ErrContextLost
	}

	ctx.current = true
	s.ctx = ctx
	ctx.device.surface = s
	return ctx.device, nil
}

// SwapBuffers implements gpucore.Display.
func (d *Display) SwapBuffers(surface gpucore.SurfaceID) error {
	d.mu.Lock()
	s, ok := d.surfaces[surface]
	d.mu.Unlock()
	if !ok {
		return gpucore.ErrBadSurface
	}
	if s.ctx == nil {
		return gpucore.ErrBadCurrentSurface
	}
	if s.ctx.lost.Load() {
		return gpucore.ErrContextLost
	}

	frame := storageToImage(s.back, s.back.Bounds())
	if err := s.win.Present(frame); err != nil {
		return fmt.Errorf("%w: %w", gpucore.ErrBadSurface, err)
	}

	// Window surfaces follow their native window's size, picked up at the
	// next frame the way platform surfaces are.
	if w, h := s.win.Size(); w > 0 && h > 0 && (w != s.back.Rect.Dx() || h != s.back.Rect.Dy()) {
		s.back = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return nil
}

// ReleaseCurrent implements gpucore.Display.
func (d *Display) ReleaseCurrent(ctxID gpucore.ContextID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx, ok := d.contexts[ctxID]
	if !ok {
		return
	}
	ctx.current = false
	if s := ctx.device.surface; s != nil && s.ctx == ctx {
		s.ctx = nil
	}
	ctx.device.surface = nil
}

// DestroySurface implements gpucore.Display.
func (d *Display) DestroySurface(surface gpucore.SurfaceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.surfaces[surface]
	if !ok {
		return
	}
	if s.ctx != nil && s.ctx.device.surface == s {
		s.ctx.device.surface = nil
	}
	delete(d.surfaces, surface)
}

// DestroyContext implements gpucore.Display.
func (d *Display) DestroyContext(ctxID gpucore.ContextID) {
	d.mu.Lock()
	ctx, ok := d.contexts[ctxID]
	if ok {
		delete(d.contexts, ctxID)
	}
	d.mu.Unlock()
	if !ok {
		return
	}

	ctx.device.releaseFramebuffers()
	if ctx.group.release() {
		d.platform.logger().Debug("software: share group released", "context", ctxID)
	}
}

// Terminate implements gpucore.Display.
func (d *Display) Terminate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refs > 0 {
		d.refs--
	}
}

// LoseContext simulates a context loss. Subsequent draws and presents on
// the context fail with gpucore.ErrContextLost.
func (d *Display) LoseContext(ctxID gpucore.ContextID) {
	d.mu.Lock()
	ctx, ok := d.contexts[ctxID]
	d.mu.Unlock()
	if ok {
		ctx.lost.Store(true)
	}
}

// Stats reports live objects, for leak checks.
type Stats struct {
	Contexts int
	Surfaces int
	Textures int
}

// Stats returns the number of live contexts, surfaces and textures.
// Textures are counted once per share group.
func (d *Display) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Stats{Contexts: len(d.contexts), Surfaces: len(d.surfaces)}
	seen := make(map[*shareGroup]bool)
	for _, ctx := range d.contexts {
		if seen[ctx.group] {
			continue
		}
		seen[ctx.group] = true
		st.Textures += ctx.group.textureCount()
	}
	return st
}

var _ gpucore.Display = (*Display)(nil)
