// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package display

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/videomaker/backend/software"
	"github.com/gogpu/videomaker/gpucore"
)

// stepPlatform wraps the software display and fails one bring-up step.
type stepPlatform struct {
	inner   *software.Platform
	failAt  string
	openErr error
	calls   []string
}

func (p *stepPlatform) Name() string { return "step" }

func (p *stepPlatform) OpenDisplay() (gpucore.Display, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	d, err := p.inner.OpenDisplay()
	if err != nil {
		return nil, err
	}
	return &stepDisplay{Display: d, p: p}, nil
}

type stepDisplay struct {
	gpucore.Display
	p *stepPlatform
}

func (d *stepDisplay) record(step string) error {
	d.p.calls = append(d.p.calls, step)
	if d.p.failAt == step {
		return fmt.Errorf("%s: %w", step, gpucore.ErrBadAlloc)
	}
	return nil
}

func (d *stepDisplay) ChooseConfig(a gpucore.ConfigAttribs) (gpucore.Config, error) {
	if err := d.record("config"); err != nil {
		return gpucore.Config{}, err
	}
	return d.Display.ChooseConfig(a)
}

func (d *stepDisplay) CreateContext(cfg gpucore.Config, share gpucore.ContextID) (gpucore.ContextID, error) {
	if err := d.record("context"); err != nil {
		return gpucore.InvalidID, err
	}
	return d.Display.CreateContext(cfg, share)
}

func (d *stepDisplay) CreateWindowSurface(cfg gpucore.Config, win gpucore.NativeWindow) (gpucore.SurfaceID, error) {
	if err := d.record("surface"); err != nil {
		return gpucore.InvalidID, err
	}
	return d.Display.CreateWindowSurface(cfg, win)
}

func (d *stepDisplay) MakeCurrent(s gpucore.SurfaceID, c gpucore.ContextID) (gpucore.Device, error) {
	if err := d.record("current"); err != nil {
		return nil, err
	}
	return d.Display.MakeCurrent(s, c)
}

func (d *stepDisplay) Terminate() {
	d.p.calls = append(d.p.calls, "terminate")
	d.Display.Terminate()
}

func TestCreateAndDestroy(t *testing.T) {
	p := software.New()
	win := software.NewWindow(8, 8)

	c, err := Create(p, win, gpucore.InvalidID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.Device() == nil || c.ID() == gpucore.InvalidID {
		t.Fatal("Create() returned context without device or id")
	}
	if err := c.Present(); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if win.Presents() != 1 {
		t.Errorf("window presents = %d, want 1", win.Presents())
	}

	c.Destroy()
	c.Destroy()
	if st := p.Display().Stats(); st.Contexts != 0 || st.Surfaces != 0 {
		t.Errorf("Stats() after Destroy = %+v, want no contexts or surfaces", st)
	}
	if err := c.Present(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Present() after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestCreateFailures(t *testing.T) {
	tests := []struct {
		step string
		want error
	}{
		{"config", ErrBadConfig},
		{"context", ErrContextCreationFailed},
		{"surface", ErrSurfaceCreationFailed},
		{"current", ErrMakeCurrentFailed},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			inner := software.New()
			p := &stepPlatform{inner: inner, failAt: tt.step}
			_, err := Create(p, software.NewWindow(4, 4), gpucore.InvalidID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Create() error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, gpucore.ErrBadAlloc) {
				t.Errorf("Create() error = %v, should wrap the platform error", err)
			}
			if st := inner.Display().Stats(); st.Contexts != 0 || st.Surfaces != 0 {
				t.Errorf("partial bring-up leaked %+v", st)
			}
			if last := p.calls[len(p.calls)-1]; last != "terminate" {
				t.Errorf("last call = %q, want terminate", last)
			}
		})
	}
}

func TestCreateNoDisplay(t *testing.T) {
	p := &stepPlatform{openErr: gpucore.ErrBadDisplay}
	if _, err := Create(p, software.NewWindow(4, 4), gpucore.InvalidID); !errors.Is(err, ErrNoDisplay) {
		t.Errorf("Create() error = %v, want ErrNoDisplay", err)
	}
	if _, err := Create(nil, software.NewWindow(4, 4), gpucore.InvalidID); !errors.Is(err, ErrNoDisplay) {
		t.Errorf("Create(nil) error = %v, want ErrNoDisplay", err)
	}
}

func TestCreateSharedWithStaleContext(t *testing.T) {
	_, err := Create(software.New(), software.NewWindow(4, 4), gpucore.ContextID(12345))
	if !errors.Is(err, ErrContextCreationFailed) || !errors.Is(err, gpucore.ErrBadContext) {
		t.Errorf("Create(stale share) error = %v, want ErrContextCreationFailed wrapping ErrBadContext", err)
	}
}

func TestPresentClassification(t *testing.T) {
	p := software.New()
	win := software.NewWindow(4, 4)
	c, err := Create(p, win, gpucore.InvalidID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer c.Destroy()

	win.SetPresentError(errors.New("window detached"))
	err = c.Present()
	if !errors.Is(err, ErrSurfaceBad) || Classify(err) != FaultSurfaceBad {
		t.Errorf("Present() error = %v (fault %v), want surface-bad", err, Classify(err))
	}

	win.SetPresentError(nil)
	p.Display().LoseContext(c.ID())
	err = c.Present()
	if !errors.Is(err, ErrContextLost) || Classify(err) != FaultContextLost {
		t.Errorf("Present() error = %v (fault %v), want context-lost", err, Classify(err))
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Fault
	}{
		{nil, FaultNone},
		{gpucore.ErrContextLost, FaultContextLost},
		{gpucore.ErrBadNativeWindow, FaultSurfaceBad},
		{gpucore.ErrBadAlloc, FaultOther},
		{errors.New("other"), FaultOther},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	if FaultContextLost.String() != "context-lost" {
		t.Errorf("FaultContextLost.String() = %q", FaultContextLost.String())
	}
}
