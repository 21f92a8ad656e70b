// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"fmt"

	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
)

// Chain runs filters in order, feeding each output texture into the next
// filter's input.
//
// The wiring uses texture-change notifications, so when a resize
// reallocates a target the new id ripples down the chain within the same
// OnSurfaceChanged call.
type Chain struct {
	filters []Filter
}

// NewChain wires filters in the order given. It replaces the
// texture-change listener of every filter but the last.
func NewChain(filters ...Filter) *Chain {
	c := &Chain{filters: filters}
	for i := 0; i+1 < len(filters); i++ {
		filters[i].SetTextureChangeListener(filters[i+1].SetInputTexture)
	}
	return c
}

// Filters returns the filters in draw order.
func (c *Chain) Filters() []Filter {
	return c.filters
}

// Len returns the number of filters.
func (c *Chain) Len() int {
	return len(c.filters)
}

// SetInputTexture implements Filter by feeding the first filter.
func (c *Chain) SetInputTexture(id gpucore.TextureID) {
	if len(c.filters) > 0 {
		c.filters[0].SetInputTexture(id)
	}
}

// OutputTextureID implements Filter with the last filter's output.
func (c *Chain) OutputTextureID() gpucore.TextureID {
	if len(c.filters) == 0 {
		return gpucore.InvalidID
	}
	return c.filters[len(c.filters)-1].OutputTextureID()
}

// SetTextureChangeListener implements Filter on the last filter.
func (c *Chain) SetTextureChangeListener(fn render.TextureChangeListener) {
	if len(c.filters) > 0 {
		c.filters[len(c.filters)-1].SetTextureChangeListener(fn)
	}
}

// OnContextCreated implements render.Renderer. It stops at the first
// failure; OnContextDestroy releases whatever was created.
func (c *Chain) OnContextCreated(dev gpucore.Device) error {
	for i, f := range c.filters {
		if err := f.OnContextCreated(dev); err != nil {
			return fmt.Errorf("filter: chain stage %d: %w", i, err)
		}
	}
	return nil
}

// OnSurfaceChanged implements render.Renderer.
func (c *Chain) OnSurfaceChanged(width, height int) error {
	for i, f := range c.filters {
		if err := f.OnSurfaceChanged(width, height); err != nil {
			return fmt.Errorf("filter: chain stage %d: %w", i, err)
		}
	}
	return nil
}

// OnDrawFrame implements render.Renderer.
func (c *Chain) OnDrawFrame() error {
	for i, f := range c.filters {
		if err := f.OnDrawFrame(); err != nil {
			return fmt.Errorf("filter: chain stage %d: %w", i, err)
		}
	}
	return nil
}

// OnContextDestroy implements render.Renderer. Filters are destroyed in
// reverse order, then the inputs wired by the chain are cleared so that
// the next context never samples an id from this one.
func (c *Chain) OnContextDestroy() {
	for i := len(c.filters) - 1; i >= 0; i-- {
		c.filters[i].OnContextDestroy()
	}
	for _, f := range c.filters[min(1, len(c.filters)):] {
		f.SetInputTexture(gpucore.InvalidID)
	}
}
