// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface maps the lifecycle of a presentable surface onto render
// threads.
//
// A platform view reports create, resize and destroy events from its own
// goroutine, in any order and at any rate. Host turns them into render
// thread starts, resizes and confirmed exits:
//
//	host := surface.NewHost(platform, surface.WithRenderer(chain))
//	defer host.Close()
//
//	host.SurfaceCreated(win)
//	host.SurfaceChanged(1280, 720)
//	...
//	host.SurfaceDestroyed()
//
// # Superseded threads
//
// Every SurfaceCreated bumps a generation counter. The exit callback of a
// thread clears the host state only if its generation is still current, so
// a destroy that completes after a newer create never tears down the new
// thread.
//
// # Shared contexts
//
// SharedContext exports the context of the current thread. Another host
// imports it with ImportSharedContext before its first SurfaceCreated and
// can then sample the first host's textures.
//
// # Handles
//
// Render threads reach their host only through a Handle, a weak reference
// resolved in a process-wide registry. Once a host is closed its handle no
// longer resolves, and late callbacks become no-ops.
package surface
