// Package videomaker is a real-time rendering engine for camera and image
// video pipelines.
//
// # Overview
//
// Every presentable surface gets its own render thread. The thread owns one
// graphics context, drives a frame loop and routes textures through a chain
// of off-screen filter stages before the final stage draws to the surface.
// The surface may be a display window or the input surface of a video
// encoder.
//
// # Architecture
//
// The module is organized into:
//   - gpucore: opaque GPU handles and the Display/Device abstraction
//   - backend, backend/software: platform registry and the pure Go backend
//   - display: graphics context bring-up, present and teardown
//   - render: render targets, matrices, quad geometry, Renderer lifecycle
//   - filter, source: filter stages, pixel sources and the compositor
//   - renderloop: the per-surface frame loop
//   - surface: the surface host that maps lifecycle events to render threads
//   - encoder, stream: encoder bridge, muxing and streaming sinks
//
// # Quick Start
//
//	platform := backend.MustDefault()
//	win := software.NewWindow(640, 480)
//
//	src := source.NewImage()
//	_ = src.Load("photo.jpg")
//	gray := filter.NewGray()
//	screen := filter.NewCompositor()
//	chain := filter.NewChain(src, gray, screen)
//
//	host := surface.NewHost(platform, surface.WithRenderer(chain))
//	host.SurfaceCreated(win)
//	host.SurfaceChanged(640, 480)
//	defer host.Close()
//
// # Threading
//
// All GPU calls for a context happen on its render goroutine, which is
// locked to an OS thread. Other goroutines exchange texture ids, flags and
// callbacks with it and never touch the device directly.
package videomaker

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
