// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"github.com/gogpu/videomaker/shader"
)

// New returns a stage running the built-in program name.
func New(name shader.Name) (*Stage, error) {
	src, err := shader.Source(name)
	if err != nil {
		return nil, err
	}
	return NewStage(src), nil
}

// NewNormal returns a stage that copies its input.
func NewNormal() *Stage {
	return NewStage(shader.MustSource(shader.Normal))
}

// NewGray returns a stage that converts its input to luma.
func NewGray() *Stage {
	return NewStage(shader.MustSource(shader.Gray))
}

// NewLuminance returns a stage that brightens its input by
// shader.LuminanceDelta.
func NewLuminance() *Stage {
	return NewStage(shader.MustSource(shader.Luminance))
}

// NewReverse returns a stage that inverts the RGB channels of its input.
func NewReverse() *Stage {
	return NewStage(shader.MustSource(shader.Reverse))
}
