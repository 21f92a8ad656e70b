// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package display

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
)

// Bring-up errors. Each wraps the platform error that caused it.
var (
	ErrNoDisplay             = errors.New("display: no display")
	ErrBadConfig             = errors.New("display: no matching config")
	ErrContextCreationFailed = errors.New("display: context creation failed")
	ErrSurfaceCreationFailed = errors.New("display: window surface creation failed")
	ErrMakeCurrentFailed     = errors.New("display: make current failed")
)

// Present errors.
var (
	ErrContextLost   = errors.New("display: context lost")
	ErrSurfaceBad    = errors.New("display: surface bad")
	ErrPresentFailed = errors.New("display: present failed")
)

// ErrDestroyed is returned by Present after Destroy.
var ErrDestroyed = errors.New("display: context destroyed")

// Fault classifies a present error.
type Fault int

// Present faults.
const (
	FaultNone Fault = iota
	FaultContextLost
	FaultSurfaceBad
	FaultOther
)

// String returns the fault name.
func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultContextLost:
		return "context-lost"
	case FaultSurfaceBad:
		return "surface-bad"
	default:
		return "other"
	}
}

// Classify maps a Present error to a Fault.
func Classify(err error) Fault {
	switch {
	case err == nil:
		return FaultNone
	case errors.Is(err, ErrContextLost), errors.Is(err, gpucore.ErrContextLost):
		return FaultContextLost
	case errors.Is(err, ErrSurfaceBad), errors.Is(err, gpucore.ErrBadSurface),
		errors.Is(err, gpucore.ErrBadNativeWindow), errors.Is(err, gpucore.ErrBadCurrentSurface):
		return FaultSurfaceBad
	default:
		return FaultOther
	}
}

// Option configures Create.
type Option func(*options)

type options struct {
	attribs gpucore.ConfigAttribs
	logger  *slog.Logger
}

// WithConfigAttribs overrides the requested framebuffer configuration.
func WithConfigAttribs(a gpucore.ConfigAttribs) Option {
	return func(o *options) { o.attribs = a }
}

// WithLogger sets the logger used instead of videomaker.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Context is a graphics context made current on a native window.
//
// Context is NOT safe for concurrent use. It belongs to the goroutine that
// created it, which must stay locked to its OS thread.
type Context struct {
	display gpucore.Display
	config  gpucore.Config
	id      gpucore.ContextID
	surface gpucore.SurfaceID
	device  gpucore.Device
	current bool
	logger  *slog.Logger

	destroyed bool
}

// Create brings up a context on win and makes it current on the calling
// goroutine. If shared is not InvalidID, the new context shares objects
// with it.
func Create(platform gpucore.Platform, win gpucore.NativeWindow, shared gpucore.ContextID, opts ...Option) (*Context, error) {
	o := options{attribs: gpucore.DefaultConfigAttribs}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = videomaker.Logger()
	}
	if platform == nil {
		return nil, fmt.Errorf("%w: nil platform", ErrNoDisplay)
	}

	c := &Context{logger: o.logger}

	d, err := platform.OpenDisplay()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDisplay, err)
	}
	c.display = d

	c.config, err = d.ChooseConfig(o.attribs)
	if err != nil {
		c.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrBadConfig, err)
	}

	c.id, err = d.CreateContext(c.config, shared)
	if err != nil {
		c.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrContextCreationFailed, err)
	}

	c.surface, err = d.CreateWindowSurface(c.config, win)
	if err != nil {
		c.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrSurfaceCreationFailed, err)
	}

	c.device, err = d.MakeCurrent(c.surface, c.id)
	if err != nil {
		c.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrMakeCurrentFailed, err)
	}
	c.current = true

	c.logger.Info("display: context created",
		"backend", platform.Name(), "context", c.id, "surface", c.surface, "shared", shared)
	return c, nil
}

// Device returns the command stream of the context.
func (c *Context) Device() gpucore.Device {
	return c.device
}

// ID returns the context handle, for sharing with other render threads.
func (c *Context) ID() gpucore.ContextID {
	return c.id
}

// Handle returns the gpucontext view of the device.
func (c *Context) Handle() render.DeviceHandle {
	return render.Handle(c.device)
}

// Present makes the frame drawn since the last Present visible.
//
// The returned error wraps ErrContextLost, ErrSurfaceBad or
// ErrPresentFailed together with the platform error.
func (c *Context) Present() error {
	if c.destroyed {
		return ErrDestroyed
	}
	err := c.display.SwapBuffers(c.surface)
	if err == nil {
		return nil
	}

	var wrapped error
	switch Classify(err) {
	case FaultContextLost:
		wrapped = fmt.Errorf("%w: %w", ErrContextLost, err)
	case FaultSurfaceBad:
		wrapped = fmt.Errorf("%w: %w", ErrSurfaceBad, err)
	default:
		wrapped = fmt.Errorf("%w: %w", ErrPresentFailed, err)
	}
	c.logger.Warn("display: present failed",
		"context", c.id, "error", gpucore.ErrorName(err), "fault", Classify(err).String())
	return wrapped
}

// Destroy releases the surface, the context and the display reference.
// It is safe to call multiple times and after a failed Create.
func (c *Context) Destroy() {
	if c.destroyed || c.display == nil {
		c.destroyed = true
		return
	}
	c.destroyed = true

	if c.current {
		c.display.ReleaseCurrent(c.id)
		c.current = false
	}
	if c.surface != gpucore.InvalidID {
		c.display.DestroySurface(c.surface)
	}
	if c.id != gpucore.InvalidID {
		c.display.DestroyContext(c.id)
	}
	c.display.Terminate()
	c.device = nil

	c.logger.Debug("display: context destroyed", "context", c.id)
}
