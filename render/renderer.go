// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "github.com/gogpu/videomaker/gpucore"

// Renderer receives the lifecycle callbacks of a render thread.
//
// Callbacks are made from the render thread only, in the order
//
//	OnContextCreated -> (OnSurfaceChanged | OnDrawFrame)* -> OnContextDestroy
//
// OnContextCreated is called at most once per context. OnContextDestroy is
// called exactly once whenever a render thread exits, even if no context
// was created or OnContextCreated failed, so implementations must tolerate
// releasing nothing.
type Renderer interface {
	// OnContextCreated allocates GPU objects on dev.
	OnContextCreated(dev gpucore.Device) error

	// OnSurfaceChanged reallocates size-dependent objects and recomputes
	// transforms for a width x height surface.
	OnSurfaceChanged(width, height int) error

	// OnDrawFrame renders one frame.
	OnDrawFrame() error

	// OnContextDestroy releases every GPU object created on the context.
	OnContextDestroy()
}

// RendererFunc adapts a draw function into a Renderer with no GPU state.
// Useful for tests and trivial clear-only renderers.
type RendererFunc func() error

// OnContextCreated implements Renderer.
func (RendererFunc) OnContextCreated(gpucore.Device) error { return nil }

// OnSurfaceChanged implements Renderer.
func (RendererFunc) OnSurfaceChanged(int, int) error { return nil }

// OnDrawFrame calls f.
func (f RendererFunc) OnDrawFrame() error { return f() }

// OnContextDestroy implements Renderer.
func (RendererFunc) OnContextDestroy() {}
