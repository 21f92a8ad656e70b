// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
)

// Stage draws its input texture through a program into an owned render
// target.
//
// GPU objects exist only between OnContextCreated and OnContextDestroy. A
// Stage may go through several such windows, one per graphics context.
type Stage struct {
	name   string
	source gpucore.ProgramSource

	input atomic.Uint64
	clear atomic.Bool

	mu       sync.Mutex
	listener render.TextureChangeListener

	// Render thread only.
	dev     gpucore.Device
	target  *render.Target
	program gpucore.ProgramID
	buffer  gpucore.BufferID
	matrix  render.Mat4
	width   int
	height  int
}

// NewStage returns a stage that draws with src.
func NewStage(src gpucore.ProgramSource) *Stage {
	return &Stage{
		name:   src.Label,
		source: src,
		matrix: flipMatrix(),
	}
}

// flipMatrix is the position matrix of off-screen stages.
func flipMatrix() render.Mat4 {
	return render.Identity().RotateX(180)
}

// Name returns the program label.
func (s *Stage) Name() string {
	return s.name
}

// SetInputTexture implements Filter.
func (s *Stage) SetInputTexture(id gpucore.TextureID) {
	s.input.Store(uint64(id))
}

// InputTexture returns the texture sampled on the next draw.
func (s *Stage) InputTexture() gpucore.TextureID {
	return gpucore.TextureID(s.input.Load())
}

// OutputTextureID implements Filter.
func (s *Stage) OutputTextureID() gpucore.TextureID {
	if s.target == nil {
		return gpucore.InvalidID
	}
	return s.target.TextureID()
}

// SetTextureChangeListener implements Filter.
func (s *Stage) SetTextureChangeListener(fn render.TextureChangeListener) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// SetClearOnDraw makes every draw clear the target to opaque black first.
func (s *Stage) SetClearOnDraw(clear bool) {
	s.clear.Store(clear)
}

// Device returns the device between OnContextCreated and
// OnContextDestroy, or nil.
func (s *Stage) Device() gpucore.Device {
	return s.dev
}

// Size returns the target size set by the last OnSurfaceChanged.
func (s *Stage) Size() (width, height int) {
	return s.width, s.height
}

// Matrix returns the position matrix.
func (s *Stage) Matrix() render.Mat4 {
	return s.matrix
}

// SetMatrix replaces the position matrix until the next OnSurfaceChanged.
func (s *Stage) SetMatrix(m render.Mat4) {
	s.matrix = m
}

func (s *Stage) notify(id gpucore.TextureID) {
	s.mu.Lock()
	fn := s.listener
	s.mu.Unlock()

	videomaker.Logger().Debug("filter: output texture changed", "stage", s.name, "texture", id)
	if fn != nil {
		fn(id)
	}
}

// OnContextCreated implements render.Renderer.
func (s *Stage) OnContextCreated(dev gpucore.Device) error {
	prog, err := dev.CreateProgram(s.source)
	if err != nil {
		return fmt.Errorf("filter: %s: create program: %w", s.name, err)
	}
	buf, err := dev.CreateBuffer(render.QuadBuffer())
	if err != nil {
		dev.DeleteProgram(prog)
		return fmt.Errorf("filter: %s: create buffer: %w", s.name, err)
	}
	target, err := render.NewTarget(dev)
	if err != nil {
		dev.DeleteBuffer(buf)
		dev.DeleteProgram(prog)
		return fmt.Errorf("filter: %s: %w", s.name, err)
	}
	target.SetListener(s.notify)

	s.dev = dev
	s.program = prog
	s.buffer = buf
	s.target = target
	s.matrix = flipMatrix()
	return nil
}

// OnSurfaceChanged implements render.Renderer. It reallocates the target
// and resets the position matrix.
func (s *Stage) OnSurfaceChanged(width, height int) error {
	if s.target == nil {
		return ErrNotCreated
	}
	if err := s.target.Resize(width, height); err != nil {
		return fmt.Errorf("filter: %s: %w", s.name, err)
	}
	s.width, s.height = width, height
	s.matrix = flipMatrix()
	return nil
}

// OnDrawFrame implements render.Renderer. It does nothing until an input
// texture is set.
func (s *Stage) OnDrawFrame() error {
	return s.render(nil)
}

// render draws the input into the target, then calls extra with the
// target still bound.
func (s *Stage) render(extra func() error) error {
	in := s.InputTexture()
	if in == gpucore.InvalidID || s.target == nil {
		return nil
	}
	if err := s.target.Bind(); err != nil {
		return fmt.Errorf("filter: %s: %w", s.name, err)
	}

	if s.clear.Load() {
		s.dev.SetClearColor(opaqueBlack)
		s.dev.Clear()
	}
	s.dev.SetBlendMode(gpucore.BlendNone)
	err := drawQuad(s.dev, s.program, in, s.buffer, 0, render.QuadTexCoordOffset, s.matrix)
	if err == nil && extra != nil {
		err = extra()
	}

	if uerr := s.target.Unbind(); err == nil {
		err = uerr
	}
	if err != nil {
		return fmt.Errorf("filter: %s: draw: %w", s.name, err)
	}
	return nil
}

// OnContextDestroy implements render.Renderer. Safe to call when
// OnContextCreated failed or never ran.
func (s *Stage) OnContextDestroy() {
	if s.dev == nil {
		return
	}
	if s.target != nil {
		s.target.Release()
		s.target = nil
	}
	s.dev.DeleteBuffer(s.buffer)
	s.dev.DeleteProgram(s.program)
	s.buffer = gpucore.InvalidID
	s.program = gpucore.InvalidID
	s.dev = nil
	s.width, s.height = 0, 0
}
