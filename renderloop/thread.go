// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/display"
	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
)

// Thread errors.
var (
	ErrAlreadyStarted = errors.New("renderloop: thread already started")
	ErrExited         = errors.New("renderloop: thread exited")
	ErrNilRenderer    = errors.New("renderloop: nil renderer")
	ErrNotRunning     = errors.New("renderloop: thread not running")
	ErrPanic          = errors.New("renderloop: panic in render loop")
)

// State is the run state of a Thread.
type State int32

// Thread states. A thread only moves forward through them.
const (
	StateCreated State = iota
	StateRunning
	StateExitRequested
	StateExited
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExitRequested:
		return "exit-requested"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Thread renders frames to one native window on a dedicated goroutine.
//
// All methods are safe for concurrent use. The renderer's methods are only
// ever called from the thread's goroutine, in the order created, then
// (changed, draw)*, then destroy.
type Thread struct {
	platform   gpucore.Platform
	win        gpucore.NativeWindow
	renderer   render.Renderer
	shared     gpucore.ContextID
	interval   time.Duration
	doubleDraw bool
	after      <-chan struct{}
	logger     *slog.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	state     State
	started   bool
	mode      RenderMode
	resize    bool
	width     int
	height    int
	requested bool
	callbacks []func()
	err       error

	exitCh chan struct{}
	done   chan struct{}

	context atomic.Uint64
	frames  atomic.Uint64

	// Loop goroutine only.
	drawn bool
}

// New returns a thread that will render r to win. Nothing happens until
// Start.
func New(platform gpucore.Platform, win gpucore.NativeWindow, r render.Renderer, opts ...Option) *Thread {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = videomaker.Logger()
	}
	t := &Thread{
		platform:   platform,
		win:        win,
		renderer:   r,
		shared:     o.shared,
		interval:   o.interval,
		doubleDraw: o.doubleDraw,
		after:      o.after,
		logger:     o.logger,
		mode:       o.mode,
		exitCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Start launches the render goroutine.
func (t *Thread) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.started:
		return ErrAlreadyStarted
	case t.state == StateExited:
		return ErrExited
	case t.renderer == nil:
		return ErrNilRenderer
	}
	t.started = true
	go t.run()
	return nil
}

// OnWindowResize schedules OnSurfaceChanged(width, height) for the next
// iteration and wakes the loop.
func (t *Thread) OnWindowResize(width, height int) {
	t.mu.Lock()
	t.resize = true
	t.width, t.height = width, height
	t.cond.Broadcast()
	t.mu.Unlock()
}

// RequestRender wakes an on-demand loop for one more frame. It returns
// ErrNotRunning unless the context exists and the loop is running.
func (t *Thread) RequestRender() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		return fmt.Errorf("%w: %v", ErrNotRunning, t.state)
	}
	t.requested = true
	t.cond.Broadcast()
	return nil
}

// SetRenderMode switches the pacing from the next iteration on.
func (t *Thread) SetRenderMode(m RenderMode) error {
	if err := m.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	t.mode = m
	t.cond.Broadcast()
	t.mu.Unlock()
	return nil
}

// RenderMode returns the current pacing.
func (t *Thread) RenderMode() RenderMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// RequestExit asks the loop to stop and calls cb once the context has been
// released. If the thread has already exited, cb runs before RequestExit
// returns. Every non-nil cb passed is called exactly once.
//
// A started thread always brings its context up, so an exit requested
// before that still sees OnContextCreated followed by OnContextDestroy.
// A thread that was never started exits immediately without creating a
// context; its renderer's OnContextDestroy still runs, on the caller's
// goroutine.
func (t *Thread) RequestExit(cb func()) {
	t.mu.Lock()
	switch {
	case t.state == StateExited:
		t.mu.Unlock()
		if cb != nil {
			cb()
		}
		return
	case !t.started:
		t.state = StateExited
		close(t.exitCh)
		close(t.done)
		t.mu.Unlock()
		t.logger.Debug("renderloop: exited before start")
		if t.renderer != nil {
			t.destroyRenderer()
		}
		if cb != nil {
			cb()
		}
		return
	}

	if cb != nil {
		t.callbacks = append(t.callbacks, cb)
	}
	if t.state != StateExitRequested {
		t.state = StateExitRequested
		close(t.exitCh)
	}
	t.cond.Broadcast()
	t.mu.Unlock()
}

// State returns the run state.
func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the error that stopped the thread, or nil.
func (t *Thread) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed after the thread has exited and its callbacks have run.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// SharedContext returns the id of the thread's context, for threads that
// want to share its objects. It is InvalidID until the context exists and
// after it is destroyed.
func (t *Thread) SharedContext() gpucore.ContextID {
	return gpucore.ContextID(t.context.Load())
}

// Frames returns the number of successful presents.
func (t *Thread) Frames() uint64 {
	return t.frames.Load()
}

func (t *Thread) exitRequested() bool {
	select {
	case <-t.exitCh:
		return true
	default:
		return false
	}
}

func (t *Thread) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var ctx *display.Context
	defer func() {
		if r := recover(); r != nil {
			t.fail(fmt.Errorf("%w: %v", ErrPanic, r))
		}
		t.release(ctx)
	}()

	// Done must stay ordered after the predecessor's, so the wait is not
	// cut short by an exit request. The context is brought up even when
	// exit was requested meanwhile, keeping created and destroyed paired.
	if t.after != nil {
		<-t.after
	}

	var err error
	ctx, err = display.Create(t.platform, t.win, t.shared, display.WithLogger(t.logger))
	if err != nil {
		t.fail(err)
		return
	}
	t.context.Store(uint64(ctx.ID()))

	if err := t.renderer.OnContextCreated(ctx.Device()); err != nil {
		t.fail(fmt.Errorf("renderloop: context created: %w", err))
		return
	}

	t.mu.Lock()
	if t.state == StateCreated {
		t.state = StateRunning
	}
	t.mu.Unlock()
	t.logger.Info("renderloop: running", "context", ctx.ID(), "shared", t.shared)

	for {
		resize, width, height, ok := t.await()
		if !ok {
			return
		}
		if err := t.frame(ctx, resize, width, height); err != nil {
			t.fail(err)
			return
		}
	}
}

// await blocks in on-demand mode until there is something to draw. It
// returns ok=false once exit is requested.
func (t *Thread) await() (resize bool, width, height int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.state != StateExitRequested && t.drawn && t.mode == OnDemand && !t.resize && !t.requested {
		t.cond.Wait()
	}
	if t.state == StateExitRequested {
		return false, 0, 0, false
	}
	resize, width, height = t.resize, t.width, t.height
	t.resize = false
	t.requested = false
	return resize, width, height, true
}

func (t *Thread) frame(ctx *display.Context, resize bool, width, height int) error {
	start := time.Now()

	if resize {
		t.logger.Debug("renderloop: surface changed", "width", width, "height", height)
		if err := t.renderer.OnSurfaceChanged(width, height); err != nil {
			return fmt.Errorf("renderloop: surface changed: %w", err)
		}
		if err := t.drawAndPresent(ctx); err != nil {
			return err
		}
		if !t.doubleDraw {
			t.pace(start)
			return nil
		}
	}

	if err := t.drawAndPresent(ctx); err != nil {
		return err
	}
	t.pace(start)
	return nil
}

func (t *Thread) drawAndPresent(ctx *display.Context) error {
	if err := t.renderer.OnDrawFrame(); err != nil {
		return fmt.Errorf("renderloop: draw: %w", err)
	}
	if !t.drawn {
		t.mu.Lock()
		t.drawn = true
		t.mu.Unlock()
		if t.doubleDraw {
			if err := t.renderer.OnDrawFrame(); err != nil {
				return fmt.Errorf("renderloop: draw: %w", err)
			}
		}
	}

	err := ctx.Present()
	switch display.Classify(err) {
	case display.FaultNone:
		t.frames.Add(1)
	case display.FaultContextLost:
		return fmt.Errorf("renderloop: %w", err)
	default:
		t.logger.Warn("renderloop: present failed, continuing", "error", err)
	}
	return nil
}

// pace sleeps for the rest of the frame interval in continuous mode.
func (t *Thread) pace(frameStart time.Time) {
	if t.RenderMode() != Continuous {
		return
	}
	wait := t.interval - time.Since(frameStart)
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-t.exitCh:
	}
}

// fail records err unless exit was already requested.
func (t *Thread) fail(err error) {
	if t.exitRequested() {
		t.logger.Debug("renderloop: error after exit request ignored", "error", err)
		return
	}
	t.mu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.mu.Unlock()
	t.logger.Error("renderloop: thread failed", "error", err)
}

// release runs the renderer's OnContextDestroy on every exit, including a
// failed bring-up, then destroys the context.
func (t *Thread) release(ctx *display.Context) {
	t.destroyRenderer()
	if ctx != nil {
		ctx.Destroy()
	}
	t.context.Store(uint64(gpucore.InvalidID))

	t.mu.Lock()
	t.state = StateExited
	cbs := t.callbacks
	t.callbacks = nil
	if !t.exitRequested() {
		close(t.exitCh)
	}
	t.mu.Unlock()

	t.logger.Info("renderloop: exited", "frames", t.frames.Load())
	for _, cb := range cbs {
		cb()
	}
	close(t.done)
}

func (t *Thread) destroyRenderer() {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("renderloop: panic in context destroy", "panic", r)
		}
	}()
	t.renderer.OnContextDestroy()
}
