// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
	"github.com/gogpu/videomaker/renderloop"
)

// Host errors.
var (
	ErrNoRenderThread = errors.New("surface: no render thread")
	ErrAlreadyCreated = errors.New("surface: surface already created")
	ErrNoRenderer     = errors.New("surface: no renderer")
	ErrNoWindow       = errors.New("surface: no native window")
	ErrClosed         = errors.New("surface: host closed")
)

// HostOption configures a Host.
type HostOption func(*hostOptions)

type hostOptions struct {
	renderer   render.Renderer
	mode       renderloop.RenderMode
	doubleDraw bool
	interval   time.Duration
	logger     *slog.Logger
}

// WithRenderer sets the renderer every render thread of the host drives.
func WithRenderer(r render.Renderer) HostOption {
	return func(o *hostOptions) { o.renderer = r }
}

// WithRenderMode sets the initial pacing. Invalid modes are ignored.
func WithRenderMode(m renderloop.RenderMode) HostOption {
	return func(o *hostOptions) {
		if m.Validate() == nil {
			o.mode = m
		}
	}
}

// WithDoubleDraw enables or disables the extra draw passes of new render
// threads.
func WithDoubleDraw(enabled bool) HostOption {
	return func(o *hostOptions) { o.doubleDraw = enabled }
}

// WithFrameInterval sets the continuous frame budget of new render threads.
func WithFrameInterval(d time.Duration) HostOption {
	return func(o *hostOptions) { o.interval = d }
}

// WithLogger sets the logger used instead of videomaker.Logger().
func WithLogger(l *slog.Logger) HostOption {
	return func(o *hostOptions) { o.logger = l }
}

// Host owns at most one render thread at a time for one surface.
//
// All methods are safe for concurrent use.
type Host struct {
	platform gpucore.Platform
	handle   Handle
	logger   *slog.Logger

	mu         sync.Mutex
	opts       hostOptions
	thread     *renderloop.Thread
	threadGen  uint64
	gen        uint64
	created    bool
	closed     bool
	importedID gpucore.ContextID
	importWin  gpucore.NativeWindow
}

// NewHost returns a host that renders with platform. The host is
// registered until Close.
func NewHost(platform gpucore.Platform, opts ...HostOption) *Host {
	o := hostOptions{
		mode:       renderloop.Continuous,
		doubleDraw: true,
		interval:   renderloop.DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = videomaker.Logger()
	}
	h := &Host{
		platform:   platform,
		logger:     o.logger,
		opts:       o,
		importedID: gpucore.InvalidID,
	}
	h.handle = globalRegistry.Register(h)
	return h
}

// Handle returns the weak reference render threads use for this host.
func (h *Host) Handle() Handle {
	return h.handle
}

// SetRenderer replaces the renderer used by the next SurfaceCreated.
func (h *Host) SetRenderer(r render.Renderer) {
	h.mu.Lock()
	h.opts.renderer = r
	h.mu.Unlock()
}

// Renderer returns the renderer. It survives surface destruction so that a
// re-created surface keeps rendering the same scene.
func (h *Host) Renderer() render.Renderer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opts.renderer
}

// ImportSharedContext makes the host's render threads share objects with
// the context id. If win is not nil it is used whenever SurfaceCreated gets
// a nil window, which lets an off-screen host (an encoder input) render
// without a platform view.
//
// The import must happen before the first SurfaceCreated. Later calls
// return ErrAlreadyCreated and change nothing.
func (h *Host) ImportSharedContext(id gpucore.ContextID, win gpucore.NativeWindow) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.created {
		h.logger.Warn("surface: shared context imported after create, ignored",
			"host", h.handle, "context", id)
		return ErrAlreadyCreated
	}
	h.importedID = id
	h.importWin = win
	return nil
}

// SharedContext exports the context of the current render thread, or
// InvalidID if there is none yet.
func (h *Host) SharedContext() gpucore.ContextID {
	h.mu.Lock()
	th := h.thread
	h.mu.Unlock()
	if th == nil {
		return gpucore.InvalidID
	}
	return th.SharedContext()
}

// Thread returns the current render thread, or nil.
func (h *Host) Thread() *renderloop.Thread {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.thread
}

// Generation returns the number of SurfaceCreated calls so far.
func (h *Host) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen
}

// SurfaceCreated starts a render thread on win. A thread still running
// from an earlier create is superseded and asked to exit.
func (h *Host) SurfaceCreated(win gpucore.NativeWindow) error {
	old, oldGen, err := h.startThread(win)
	if old != nil {
		h.logger.Debug("surface: superseding render thread", "host", h.handle, "generation", oldGen)
		old.RequestExit(h.exitCallback(old, oldGen, nil))
	}
	return err
}

// startThread builds and starts the new thread under the host lock and
// returns the thread it replaced.
func (h *Host) startThread(win gpucore.NativeWindow) (old *renderloop.Thread, oldGen uint64, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed:
		return nil, 0, ErrClosed
	case h.opts.renderer == nil:
		return nil, 0, ErrNoRenderer
	}
	if win == nil {
		win = h.importWin
	}
	if win == nil {
		return nil, 0, ErrNoWindow
	}

	h.gen++
	h.created = true
	opts := []renderloop.Option{
		renderloop.WithSharedContext(h.importedID),
		renderloop.WithRenderMode(h.opts.mode),
		renderloop.WithDoubleDraw(h.opts.doubleDraw),
		renderloop.WithFrameInterval(h.opts.interval),
		renderloop.WithLogger(h.logger),
	}
	if h.thread != nil {
		opts = append(opts, renderloop.WithStartAfter(h.thread.Done()))
	}
	th := renderloop.New(h.platform, win, h.opts.renderer, opts...)
	if err := th.Start(); err != nil {
		return nil, 0, fmt.Errorf("surface: start render thread: %w", err)
	}
	old, oldGen = h.thread, h.threadGen
	h.thread = th
	h.threadGen = h.gen
	// A thread that stops on its own, a failed bring-up or a lost
	// context, is cleared like a destroyed one.
	go func(gen uint64) {
		<-th.Done()
		if h.Thread() == th {
			h.exitCallback(th, gen, nil)()
		}
	}(h.gen)
	h.logger.Info("surface: created", "host", h.handle, "generation", h.gen, "shared", h.importedID)
	return old, oldGen, nil
}

// SurfaceChanged forwards a new surface size to the render thread.
func (h *Host) SurfaceChanged(width, height int) error {
	h.mu.Lock()
	th := h.thread
	h.mu.Unlock()
	if th == nil {
		h.logger.Warn("surface: change without render thread", "host", h.handle)
		return ErrNoRenderThread
	}
	if th.State() == renderloop.StateExited {
		h.logger.Warn("surface: change on exited render thread", "host", h.handle, "error", th.Err())
		return fmt.Errorf("%w: %w", ErrNoRenderThread, renderloop.ErrExited)
	}
	th.OnWindowResize(width, height)
	return nil
}

// SurfaceDestroyed stops the render thread and returns once it has
// released its context. The renderer is kept for the next SurfaceCreated.
func (h *Host) SurfaceDestroyed() error {
	h.mu.Lock()
	th, gen := h.thread, h.threadGen
	if th == nil {
		h.mu.Unlock()
		return ErrNoRenderThread
	}
	h.mu.Unlock()

	// RequestExit runs the callback inline once the thread has exited, so
	// it must not be called with h.mu held.
	exited := make(chan struct{})
	th.RequestExit(h.exitCallback(th, gen, exited))
	<-exited
	return nil
}

// exitCallback returns the exit callback of th. It reaches the host
// through its handle and clears the host state only if th is still the
// current thread of generation gen.
func (h *Host) exitCallback(th *renderloop.Thread, gen uint64, exited chan struct{}) func() {
	handle := h.handle
	return func() {
		if exited != nil {
			defer close(exited)
		}
		host, ok := Lookup(handle)
		if !ok {
			return
		}
		host.mu.Lock()
		defer host.mu.Unlock()
		if host.thread != th || host.threadGen != gen {
			host.logger.Debug("surface: stale exit ignored", "host", handle, "generation", gen, "current", host.gen)
			return
		}
		host.thread = nil
		if err := th.Err(); err != nil {
			host.logger.Warn("surface: render thread failed", "host", handle, "error", err)
		}
		host.logger.Info("surface: destroyed", "host", handle, "generation", gen)
	}
}

// RequestRender asks an on-demand render thread for one more frame. It
// fails with ErrNoRenderThread before a thread exists and with
// renderloop.ErrNotRunning while the thread has no running context.
func (h *Host) RequestRender() error {
	h.mu.Lock()
	th := h.thread
	h.mu.Unlock()
	if th == nil {
		h.logger.Warn("surface: render requested without render thread", "host", h.handle)
		return ErrNoRenderThread
	}
	if err := th.RequestRender(); err != nil {
		h.logger.Warn("surface: render request rejected", "host", h.handle, "error", err)
		return err
	}
	return nil
}

// SetRenderMode sets the pacing of the current and future render threads.
func (h *Host) SetRenderMode(m renderloop.RenderMode) error {
	if err := m.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	h.opts.mode = m
	th := h.thread
	h.mu.Unlock()
	if th != nil {
		return th.SetRenderMode(m)
	}
	return nil
}

// Close destroys the surface if needed and unregisters the host. It is
// safe to call more than once.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	th := h.thread
	h.mu.Unlock()

	if th != nil {
		if err := h.SurfaceDestroyed(); err != nil && !errors.Is(err, ErrNoRenderThread) {
			return err
		}
	}
	globalRegistry.Unregister(h.handle)
	return nil
}
