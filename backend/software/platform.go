// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"log/slog"
	"sync"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/backend"
	"github.com/gogpu/videomaker/gpucore"
)

// DefaultMaxTextureSize is the largest texture dimension accepted unless
// overridden with WithMaxTextureSize.
const DefaultMaxTextureSize = 4096

func init() {
	backend.Register(backend.BackendSoftware, func() gpucore.Platform { return defaultPlatform })
}

// defaultPlatform is shared so every render thread that selects the
// software backend sees the same display, which is what makes context
// sharing between threads possible.
var defaultPlatform = New()

// Option configures a Platform.
type Option func(*options)

type options struct {
	validateShaders bool
	maxTextureSize  int
	logger          *slog.Logger
}

// WithShaderValidation compiles every program's WGSL with naga before
// linking it. Programs that fail to compile are rejected.
func WithShaderValidation(enabled bool) Option {
	return func(o *options) { o.validateShaders = enabled }
}

// WithMaxTextureSize limits texture dimensions.
func WithMaxTextureSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTextureSize = n
		}
	}
}

// WithLogger sets the logger used by the platform instead of
// videomaker.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Platform is the software gpucore.Platform. It owns a single display.
type Platform struct {
	opts options

	mu      sync.Mutex
	display *Display
}

// New creates a platform with its own display. Contexts can only share
// objects with contexts of the same platform.
func New(opts ...Option) *Platform {
	o := options{maxTextureSize: DefaultMaxTextureSize}
	for _, opt := range opts {
		opt(&o)
	}
	p := &Platform{opts: o}
	p.display = newDisplay(p)
	return p
}

// Default returns the platform registered with the backend package.
func Default() *Platform {
	return defaultPlatform
}

// Name implements gpucore.Platform.
func (p *Platform) Name() string {
	return backend.BackendSoftware
}

// OpenDisplay implements gpucore.Platform. The same display is returned on
// every call; each call must be balanced by Terminate.
func (p *Platform) OpenDisplay() (gpucore.Display, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.display.acquire()
	return p.display, nil
}

// Display returns the platform's display without taking a reference.
// Intended for inspection in tests and tools.
func (p *Platform) Display() *Display {
	return p.display
}

func (p *Platform) logger() *slog.Logger {
	if p.opts.logger != nil {
		return p.opts.logger
	}
	return videomaker.Logger()
}

var _ gpucore.Platform = (*Platform)(nil)
