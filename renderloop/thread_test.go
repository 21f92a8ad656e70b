// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"errors"
	"image"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/videomaker/backend/software"
	"github.com/gogpu/videomaker/display"
	"github.com/gogpu/videomaker/gpucore"
)

// recorder is a render.Renderer that records its lifecycle.
type recorder struct {
	mu      sync.Mutex
	events  []string
	sizes   []image.Point
	draws   atomic.Int64
	created func(gpucore.Device)
	draw    func(n int64) error
}

func (r *recorder) log(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) OnContextCreated(dev gpucore.Device) error {
	r.log("created")
	if r.created != nil {
		r.created(dev)
	}
	return nil
}

func (r *recorder) OnSurfaceChanged(width, height int) error {
	r.log("changed")
	r.mu.Lock()
	r.sizes = append(r.sizes, image.Pt(width, height))
	r.mu.Unlock()
	return nil
}

func (r *recorder) OnDrawFrame() error {
	n := r.draws.Add(1)
	if r.draw != nil {
		return r.draw(n)
	}
	return nil
}

func (r *recorder) OnContextDestroy() {
	r.log("destroyed")
}

func (r *recorder) count(e string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.events {
		if got == e {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitDone(t *testing.T, th *Thread) {
	t.Helper()
	select {
	case <-th.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("thread did not exit")
	}
}

func stop(t *testing.T, th *Thread) {
	t.Helper()
	th.RequestExit(nil)
	waitDone(t, th)
}

func TestOnDemandDrawCount(t *testing.T) {
	r := &recorder{}
	th := New(software.New(), software.NewWindow(8, 8), r, WithRenderMode(OnDemand))
	if err := th.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer stop(t, th)

	waitFor(t, "first frame", func() bool { return th.Frames() == 1 })
	time.Sleep(30 * time.Millisecond)
	if got := r.draws.Load(); got != 2 {
		t.Fatalf("draws after first frame = %d, want 2", got)
	}

	for want := int64(3); want <= 5; want++ {
		if err := th.RequestRender(); err != nil {
			t.Fatalf("RequestRender() error = %v", err)
		}
		waitFor(t, "requested frame", func() bool { return th.Frames() == uint64(want-1) })
		time.Sleep(10 * time.Millisecond)
		if got := r.draws.Load(); got != want {
			t.Fatalf("draws = %d, want %d", got, want)
		}
	}
	if th.State() != StateRunning {
		t.Errorf("State() = %v, want running", th.State())
	}
}

func TestResizeDrawsAgain(t *testing.T) {
	tests := []struct {
		name       string
		doubleDraw bool
		frames     uint64
		draws      int64
	}{
		{"double draw", true, 2, 3},
		{"single draw", false, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			th := New(software.New(), software.NewWindow(8, 8), r,
				WithRenderMode(OnDemand), WithDoubleDraw(tt.doubleDraw))
			th.OnWindowResize(4, 6)
			if err := th.Start(); err != nil {
				t.Fatal(err)
			}
			defer stop(t, th)

			waitFor(t, "resize frames", func() bool { return th.Frames() == tt.frames })
			time.Sleep(20 * time.Millisecond)
			if got := r.draws.Load(); got != tt.draws {
				t.Errorf("draws = %d, want %d", got, tt.draws)
			}
			r.mu.Lock()
			sizes := slices.Clone(r.sizes)
			r.mu.Unlock()
			if len(sizes) != 1 || sizes[0] != image.Pt(4, 6) {
				t.Errorf("OnSurfaceChanged sizes = %v, want [(4,6)]", sizes)
			}
		})
	}
}

func TestExitCallbackOnce(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		r := &recorder{}
		th := New(software.New(), software.NewWindow(4, 4), r)
		var n atomic.Int32
		th.RequestExit(func() { n.Add(1) })
		if n.Load() != 1 {
			t.Fatalf("callback count = %d, want 1", n.Load())
		}
		th.RequestExit(func() { n.Add(1) })
		if n.Load() != 2 {
			t.Errorf("second callback count = %d, want 2", n.Load())
		}
		if err := th.Start(); !errors.Is(err, ErrExited) {
			t.Errorf("Start() after exit error = %v, want ErrExited", err)
		}
		if r.count("created") != 0 || r.count("destroyed") != 1 {
			t.Errorf("renderer events = %v, want [destroyed]", r.events)
		}
	})

	t.Run("while running", func(t *testing.T) {
		r := &recorder{}
		th := New(software.New(), software.NewWindow(4, 4), r)
		if err := th.Start(); err != nil {
			t.Fatal(err)
		}
		waitFor(t, "first frame", func() bool { return th.Frames() > 0 })

		var first, second atomic.Int32
		th.RequestExit(func() { first.Add(1) })
		th.RequestExit(func() { second.Add(1) })
		waitDone(t, th)
		if first.Load() != 1 || second.Load() != 1 {
			t.Errorf("callbacks = %d, %d, want 1, 1", first.Load(), second.Load())
		}

		var after atomic.Int32
		th.RequestExit(func() { after.Add(1) })
		if after.Load() != 1 {
			t.Errorf("callback after exit = %d, want 1 (synchronous)", after.Load())
		}
		if first.Load() != 1 {
			t.Errorf("first callback fired again: %d", first.Load())
		}
		if r.count("created") != 1 || r.count("destroyed") != 1 {
			t.Errorf("created, destroyed = %d, %d, want 1, 1", r.count("created"), r.count("destroyed"))
		}
		if th.State() != StateExited {
			t.Errorf("State() = %v, want exited", th.State())
		}
		if th.Err() != nil {
			t.Errorf("Err() = %v, want nil", th.Err())
		}
	})
}

func TestExitBeforeFirstDraw(t *testing.T) {
	r := &recorder{}
	var th *Thread
	var n atomic.Int32
	r.created = func(gpucore.Device) { th.RequestExit(func() { n.Add(1) }) }
	th = New(software.New(), software.NewWindow(4, 4), r)
	if err := th.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, th)

	if got := r.draws.Load(); got != 0 {
		t.Errorf("draws = %d, want 0", got)
	}
	if n.Load() != 1 {
		t.Errorf("callback count = %d, want 1", n.Load())
	}
	if r.count("destroyed") != 1 {
		t.Errorf("destroyed = %d, want 1", r.count("destroyed"))
	}
}

func TestExitWhileWaitingToStart(t *testing.T) {
	r := &recorder{}
	gate := make(chan struct{})
	th := New(software.New(), software.NewWindow(4, 4), r, WithStartAfter(gate))
	if err := th.Start(); err != nil {
		t.Fatal(err)
	}
	if err := th.RequestRender(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("RequestRender() before context error = %v, want ErrNotRunning", err)
	}

	var n atomic.Int32
	th.RequestExit(func() { n.Add(1) })
	close(gate)
	waitDone(t, th)

	if n.Load() != 1 {
		t.Errorf("callback count = %d, want 1", n.Load())
	}
	r.mu.Lock()
	events := slices.Clone(r.events)
	r.mu.Unlock()
	if want := []string{"created", "destroyed"}; !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if got := r.draws.Load(); got != 0 {
		t.Errorf("draws = %d, want 0", got)
	}
	if th.Err() != nil {
		t.Errorf("Err() = %v, want nil", th.Err())
	}
	if err := th.RequestRender(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("RequestRender() after exit error = %v, want ErrNotRunning", err)
	}
}

func TestContinuousPacing(t *testing.T) {
	const interval = 20 * time.Millisecond
	win := software.NewWindow(4, 4)
	var (
		mu    sync.Mutex
		times []time.Time
	)
	win.OnPresent(func(*image.RGBA) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
	})

	th := New(software.New(), win, &recorder{}, WithFrameInterval(interval))
	if err := th.Start(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "six frames", func() bool { return th.Frames() >= 6 })
	stop(t, th)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < interval-5*time.Millisecond {
			t.Errorf("present gap %d = %v, want at least about %v", i, gap, interval)
		}
	}
}

func TestPaceNeverSleepsNegative(t *testing.T) {
	th := New(software.New(), software.NewWindow(4, 4), &recorder{}, WithFrameInterval(time.Second))
	start := time.Now()
	th.pace(start.Add(-2 * time.Second))
	if d := time.Since(start); d > 100*time.Millisecond {
		t.Errorf("late frame slept %v, want no sleep", d)
	}

	th.RequestExit(nil)
	start = time.Now()
	th.pace(time.Now())
	if d := time.Since(start); d > 100*time.Millisecond {
		t.Errorf("pace after exit slept %v, want immediate wake", d)
	}
}

func TestContextLostExits(t *testing.T) {
	p := software.New()
	r := &recorder{}
	var th *Thread
	r.draw = func(n int64) error {
		if n == 4 {
			p.Display().LoseContext(th.SharedContext())
		}
		return nil
	}
	th = New(p, software.NewWindow(4, 4), r, WithFrameInterval(time.Millisecond))
	if err := th.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, th)

	if err := th.Err(); !errors.Is(err, display.ErrContextLost) {
		t.Errorf("Err() = %v, want ErrContextLost", err)
	}
	if r.count("destroyed") != 1 {
		t.Errorf("destroyed = %d, want 1", r.count("destroyed"))
	}
	if st := p.Display().Stats(); st.Contexts != 0 || st.Surfaces != 0 {
		t.Errorf("leaked %+v", st)
	}
}

func TestSurfaceFaultContinues(t *testing.T) {
	win := software.NewWindow(4, 4)
	win.SetPresentError(gpucore.ErrBadNativeWindow)
	th := New(software.New(), win, &recorder{}, WithFrameInterval(time.Millisecond))
	if err := th.Start(); err != nil {
		t.Fatal(err)
	}
	defer stop(t, th)

	time.Sleep(20 * time.Millisecond)
	if th.Frames() != 0 || th.State() != StateRunning {
		t.Fatalf("Frames, State = %d, %v, want 0, running", th.Frames(), th.State())
	}
	win.SetPresentError(nil)
	waitFor(t, "recovered frames", func() bool { return th.Frames() > 0 })
}

func TestErrors(t *testing.T) {
	t.Run("swallowed after exit request", func(t *testing.T) {
		r := &recorder{}
		var th *Thread
		r.draw = func(int64) error {
			th.RequestExit(nil)
			return errors.New("draw failed")
		}
		th = New(software.New(), software.NewWindow(4, 4), r)
		_ = th.Start()
		waitDone(t, th)
		if th.Err() != nil {
			t.Errorf("Err() = %v, want nil", th.Err())
		}
	})

	t.Run("draw error is fatal", func(t *testing.T) {
		boom := errors.New("draw failed")
		r := &recorder{draw: func(int64) error { return boom }}
		th := New(software.New(), software.NewWindow(4, 4), r)
		_ = th.Start()
		waitDone(t, th)
		if !errors.Is(th.Err(), boom) {
			t.Errorf("Err() = %v, want %v", th.Err(), boom)
		}
		if r.count("destroyed") != 1 {
			t.Errorf("destroyed = %d, want 1", r.count("destroyed"))
		}
	})

	t.Run("panic recovered", func(t *testing.T) {
		r := &recorder{draw: func(int64) error { panic("bad frame") }}
		th := New(software.New(), software.NewWindow(4, 4), r)
		_ = th.Start()
		waitDone(t, th)
		if !errors.Is(th.Err(), ErrPanic) {
			t.Errorf("Err() = %v, want ErrPanic", th.Err())
		}
		if r.count("destroyed") != 1 {
			t.Errorf("destroyed = %d, want 1", r.count("destroyed"))
		}
	})

	t.Run("bring-up failure", func(t *testing.T) {
		r := &recorder{}
		th := New(nil, software.NewWindow(4, 4), r)
		_ = th.Start()
		waitDone(t, th)
		if !errors.Is(th.Err(), display.ErrNoDisplay) {
			t.Errorf("Err() = %v, want ErrNoDisplay", th.Err())
		}
		if r.count("created") != 0 || r.count("destroyed") != 1 {
			t.Errorf("renderer events = %v, want [destroyed]", r.events)
		}
		if err := th.RequestRender(); !errors.Is(err, ErrNotRunning) {
			t.Errorf("RequestRender() after failed bring-up error = %v, want ErrNotRunning", err)
		}
	})
}

func TestStartTwice(t *testing.T) {
	th := New(software.New(), software.NewWindow(4, 4), &recorder{})
	if err := th.Start(); err != nil {
		t.Fatal(err)
	}
	defer stop(t, th)
	if err := th.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
	if err := New(software.New(), software.NewWindow(4, 4), nil).Start(); !errors.Is(err, ErrNilRenderer) {
		t.Errorf("Start() with nil renderer error = %v, want ErrNilRenderer", err)
	}
}

func TestSharedContextLifetime(t *testing.T) {
	th := New(software.New(), software.NewWindow(4, 4), &recorder{}, WithRenderMode(OnDemand))
	if th.SharedContext() != gpucore.InvalidID {
		t.Error("SharedContext() before start is valid")
	}
	_ = th.Start()
	waitFor(t, "context", func() bool { return th.SharedContext() != gpucore.InvalidID })
	stop(t, th)
	if th.SharedContext() != gpucore.InvalidID {
		t.Error("SharedContext() after exit is still valid")
	}
}

func TestRenderMode(t *testing.T) {
	th := New(software.New(), software.NewWindow(4, 4), &recorder{}, WithRenderMode(RenderMode(9)))
	if th.RenderMode() != Continuous {
		t.Errorf("invalid option mode = %v, want continuous", th.RenderMode())
	}
	if err := th.SetRenderMode(RenderMode(-1)); !errors.Is(err, ErrInvalidRenderMode) {
		t.Errorf("SetRenderMode(-1) error = %v, want ErrInvalidRenderMode", err)
	}
	if err := th.SetRenderMode(OnDemand); err != nil || th.RenderMode() != OnDemand {
		t.Errorf("SetRenderMode(OnDemand) = %v, mode %v", err, th.RenderMode())
	}

	for _, m := range []RenderMode{Continuous, OnDemand} {
		got, err := ParseRenderMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseRenderMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseRenderMode("sometimes"); !errors.Is(err, ErrInvalidRenderMode) {
		t.Errorf("ParseRenderMode(sometimes) error = %v", err)
	}
}

func TestSwitchToContinuousWakes(t *testing.T) {
	r := &recorder{}
	th := New(software.New(), software.NewWindow(4, 4), r,
		WithRenderMode(OnDemand), WithFrameInterval(time.Millisecond))
	_ = th.Start()
	defer stop(t, th)

	waitFor(t, "first frame", func() bool { return th.Frames() == 1 })
	if err := th.SetRenderMode(Continuous); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "continuous frames", func() bool { return th.Frames() >= 5 })
}

func TestStartAfterPredecessor(t *testing.T) {
	r := &recorder{}
	p := software.New()
	first := New(p, software.NewWindow(4, 4), r, WithRenderMode(OnDemand))
	_ = first.Start()
	waitFor(t, "first frame", func() bool { return first.Frames() > 0 })

	second := New(p, software.NewWindow(4, 4), r, WithRenderMode(OnDemand), WithStartAfter(first.Done()))
	_ = second.Start()
	time.Sleep(20 * time.Millisecond)
	if got := r.count("created"); got != 1 {
		t.Fatalf("successor created a context before predecessor exited: %d", got)
	}

	// Exiting the successor while it waits does not let a third thread
	// overtake the first.
	third := New(p, software.NewWindow(4, 4), r, WithRenderMode(OnDemand), WithStartAfter(second.Done()))
	_ = third.Start()
	second.RequestExit(nil)
	select {
	case <-second.Done():
		t.Fatal("successor finished before its predecessor")
	case <-time.After(20 * time.Millisecond):
	}

	first.RequestExit(nil)
	waitDone(t, second)
	waitFor(t, "third frame", func() bool { return third.Frames() > 0 })
	stop(t, third)

	r.mu.Lock()
	events := slices.Clone(r.events)
	r.mu.Unlock()
	// The second thread still brings its context up after the first has
	// released its own, then exits.
	want := []string{"created", "destroyed", "created", "destroyed", "created", "destroyed"}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}
