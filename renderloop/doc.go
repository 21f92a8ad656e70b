// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package renderloop drives the frame loop of one presentable surface.
//
// A Thread owns a graphics context for its whole life. Its goroutine is
// locked to an OS thread, creates the context, calls the renderer's
// lifecycle methods and presents every frame:
//
//	t := renderloop.New(platform, win, chain,
//		renderloop.WithRenderMode(renderloop.OnDemand))
//	t.OnWindowResize(640, 480)
//	if err := t.Start(); err != nil {
//		return err
//	}
//	defer t.RequestExit(nil)
//
// Each iteration either handles a pending resize (OnSurfaceChanged, draw,
// present, then an ordinary draw and present) or draws and presents once,
// then paces. Continuous pacing sleeps for the rest of the frame interval
// and never catches up on late frames. On-demand pacing waits for
// RequestRender.
//
// The very first draw runs twice, and a resize presents twice, because some
// drivers need a second pass before a state change shows. WithDoubleDraw
// turns both off.
package renderloop
