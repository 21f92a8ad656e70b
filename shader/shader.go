// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/videomaker/gpucore"
)

//go:embed shaders/quad.wgsl
var quadWGSL string

//go:embed shaders/normal.wgsl
var normalWGSL string

//go:embed shaders/gray.wgsl
var grayWGSL string

//go:embed shaders/luminance.wgsl
var luminanceWGSL string

//go:embed shaders/reverse.wgsl
var reverseWGSL string

// ErrUnknownShader is returned for names without a built-in program.
var ErrUnknownShader = errors.New("shader: unknown shader")

// Name identifies a built-in program.
type Name string

// Built-in programs.
const (
	Normal    Name = "normal"
	Gray      Name = "gray"
	Luminance Name = "luminance"
	Reverse   Name = "reverse"
)

// LuminanceDelta is the amount the luminance program adds to each channel.
const LuminanceDelta = 0.2

type program struct {
	fragment string
	kernel   gpucore.FragmentFunc
}

var programs = map[Name]program{
	Normal:    {normalWGSL, normalKernel},
	Gray:      {grayWGSL, grayKernel},
	Luminance: {luminanceWGSL, luminanceKernel},
	Reverse:   {reverseWGSL, reverseKernel},
}

// Source returns the program source for name.
func Source(name Name) (gpucore.ProgramSource, error) {
	p, ok := programs[name]
	if !ok {
		return gpucore.ProgramSource{}, fmt.Errorf("%w: %q", ErrUnknownShader, name)
	}
	return gpucore.ProgramSource{
		Label:    string(name),
		WGSL:     quadWGSL + "\n" + p.fragment,
		Fragment: p.kernel,
	}, nil
}

// MustSource is like Source but panics on error.
// Use only with the built-in Name constants.
func MustSource(name Name) gpucore.ProgramSource {
	src, err := Source(name)
	if err != nil {
		panic(err)
	}
	return src
}

// Names returns the built-in program names in sorted order.
func Names() []Name {
	names := make([]Name, 0, len(programs))
	for n := range programs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// ParseName validates a program name given as a string.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if _, ok := programs[n]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownShader, s)
	}
	return n, nil
}

func normalKernel(in gpucore.Texel) gpucore.Texel {
	return in
}

func grayKernel(in gpucore.Texel) gpucore.Texel {
	g := in[0]*0.299 + in[1]*0.587 + in[2]*0.114
	return gpucore.Texel{g, g, g, in[3]}
}

func luminanceKernel(in gpucore.Texel) gpucore.Texel {
	return gpucore.Texel{
		clamp01(in[0] + LuminanceDelta),
		clamp01(in[1] + LuminanceDelta),
		clamp01(in[2] + LuminanceDelta),
		in[3],
	}
}

func reverseKernel(in gpucore.Texel) gpucore.Texel {
	return gpucore.Texel{1 - in[0], 1 - in[1], 1 - in[2], in[3]}
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}
