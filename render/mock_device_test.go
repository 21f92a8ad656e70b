// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"image/color"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/videomaker/gpucore"
)

// mockDevice implements gpucore.Device, recording texture traffic.
type mockDevice struct {
	nextID      uint64
	textures    map[gpucore.TextureID][2]int
	deleted     []gpucore.TextureID
	attached    map[gpucore.FramebufferID]gpucore.TextureID
	bound       gpucore.FramebufferID
	viewport    [4]int
	failCheck   bool
	failAttach  gpucore.TextureID
	fboDeleted  int
	createCalls int
}

func newMockDevice() *mockDevice {
	return &mockDevice{
		textures: make(map[gpucore.TextureID][2]int),
		attached: make(map[gpucore.FramebufferID]gpucore.TextureID),
	}
}

func (m *mockDevice) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *mockDevice) CreateTexture(w, h int, _ gputypes.TextureFormat) (gpucore.TextureID, error) {
	m.createCalls++
	id := gpucore.TextureID(m.id())
	m.textures[id] = [2]int{w, h}
	return id, nil
}

func (m *mockDevice) WriteTexture(gpucore.TextureID, *image.RGBA) error { return nil }

func (m *mockDevice) DeleteTexture(id gpucore.TextureID) {
	if _, ok := m.textures[id]; ok {
		delete(m.textures, id)
		m.deleted = append(m.deleted, id)
	}
}

func (m *mockDevice) TextureSize(id gpucore.TextureID) (int, int, error) {
	s, ok := m.textures[id]
	if !ok {
		return 0, 0, gpucore.ErrInvalidOperation
	}
	return s[0], s[1], nil
}

func (m *mockDevice) CreateFramebuffer() (gpucore.FramebufferID, error) {
	return gpucore.FramebufferID(m.id()), nil
}

func (m *mockDevice) AttachTexture(fb gpucore.FramebufferID, tex gpucore.TextureID) error {
	if tex != gpucore.InvalidID && tex == m.failAttach {
		return gpucore.ErrInvalidOperation
	}
	m.attached[fb] = tex
	return nil
}

func (m *mockDevice) CheckFramebuffer(gpucore.FramebufferID) error {
	if m.failCheck {
		return gpucore.ErrIncompleteFramebuffer
	}
	return nil
}

func (m *mockDevice) BindFramebuffer(fb gpucore.FramebufferID) error {
	m.bound = fb
	return nil
}

func (m *mockDevice) DeleteFramebuffer(gpucore.FramebufferID) { m.fboDeleted++ }

func (m *mockDevice) CreateProgram(gpucore.ProgramSource) (gpucore.ProgramID, error) {
	return gpucore.ProgramID(m.id()), nil
}

func (m *mockDevice) DeleteProgram(gpucore.ProgramID) {}

func (m *mockDevice) CreateBuffer([]float32) (gpucore.BufferID, error) {
	return gpucore.BufferID(m.id()), nil
}

func (m *mockDevice) WriteBuffer(gpucore.BufferID, int, []float32) error { return nil }
func (m *mockDevice) DeleteBuffer(gpucore.BufferID)                      {}

func (m *mockDevice) Viewport(x, y, w, h int) { m.viewport = [4]int{x, y, w, h} }

func (m *mockDevice) SetClearColor(color.Color)           {}
func (m *mockDevice) Clear()                              {}
func (m *mockDevice) SetBlendMode(gpucore.BlendMode)      {}
func (m *mockDevice) Draw(gpucore.DrawCommand) error      { return nil }
func (m *mockDevice) Provider() gpucontext.DeviceProvider { return nil }

func (m *mockDevice) ReadPixels(_, _, w, h int) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

var _ gpucore.Device = (*mockDevice)(nil)
