// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package filter provides the off-screen stages of a render graph and the
// compositor that draws the final texture to the surface.
//
// # Stages
//
// A Stage draws its input texture through a shader program into a render
// target it owns. Whenever the target texture is reallocated, the stage
// reports the new id to its TextureChangeListener. Chaining stages means
// wiring one stage's listener to the next stage's SetInputTexture:
//
//	gray := filter.NewGray()
//	screen := filter.NewCompositor()
//	chain := filter.NewChain(src, gray, screen)
//
// The chain is itself a render.Renderer and can be handed to a render
// thread. Lifecycle calls are fanned out in order, and destroyed in
// reverse.
//
// # Orientation
//
// Off-screen stages draw with a 180 degree rotation around X, which
// cancels the row flip between framebuffer storage and texture
// coordinates. Positions given to stages are therefore in screen
// orientation: +Y is the top of the final picture.
//
// # Threading
//
// SetInputTexture, SetClearOnDraw, the listener setters and the mark
// setters of Watermark may be called from any goroutine. Every other
// method belongs to the render thread.
package filter
