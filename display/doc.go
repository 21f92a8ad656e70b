// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package display implements the graphics context of a render thread.
//
// A [Context] binds a platform context to a native window on the calling
// goroutine: it opens the display, chooses a config, creates the context
// (optionally sharing objects with another context), creates a window
// surface and makes both current. Every step that fails is reported with
// its own sentinel error and the objects created so far are released.
//
// Present faults are classified with [Classify] so the render loop can
// decide whether to keep going.
package display
