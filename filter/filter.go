// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"errors"
	"image/color"

	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
)

// Errors returned by stages.
var (
	// ErrNotCreated is returned when a stage is used outside the window
	// between OnContextCreated and OnContextDestroy.
	ErrNotCreated = errors.New("filter: stage has no context")
)

// Filter is a render.Renderer that consumes one texture and produces
// another.
type Filter interface {
	render.Renderer

	// SetInputTexture sets the texture sampled on the next draw.
	// Safe for concurrent use.
	SetInputTexture(id gpucore.TextureID)

	// OutputTextureID returns the texture the filter draws into, or
	// InvalidID when it has none.
	OutputTextureID() gpucore.TextureID

	// SetTextureChangeListener registers fn to be told every new output
	// texture id.
	SetTextureChangeListener(fn render.TextureChangeListener)
}

var (
	_ Filter = (*Stage)(nil)
	_ Filter = (*Chain)(nil)
	_ Filter = (*Compositor)(nil)
	_ Filter = (*Watermark)(nil)
	_ Filter = (*MultiImage)(nil)
)

// opaqueBlack is the clear color of every stage.
var opaqueBlack = color.RGBA{A: 255}

// drawQuad draws a triangle strip quad from buf with positions at posOff
// and texture coordinates at texOff.
func drawQuad(dev gpucore.Device, prog gpucore.ProgramID, tex gpucore.TextureID,
	buf gpucore.BufferID, posOff, texOff int, m render.Mat4) error {
	return dev.Draw(gpucore.DrawCommand{
		Program:        prog,
		Texture:        tex,
		Buffer:         buf,
		PositionOffset: posOff,
		TexCoordOffset: texOff,
		VertexCount:    render.QuadVertexCount,
		Matrix:         m.Array(),
	})
}
