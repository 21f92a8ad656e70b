package gpucore

import (
	"github.com/gogpu/gputypes"
)

// Resource IDs
//
// These opaque IDs represent GPU resources. Each backend maintains a
// mapping between IDs and its actual resources.

// TextureID is an opaque handle to a 2D texture.
type TextureID uint64

// FramebufferID is an opaque handle to an off-screen framebuffer object.
type FramebufferID uint64

// ProgramID is an opaque handle to a linked shader program.
type ProgramID uint64

// BufferID is an opaque handle to a vertex buffer.
type BufferID uint64

// ContextID is an opaque handle to a graphics context. A ContextID handed
// to another render thread is a non-owning reference used for sharing.
type ContextID uint64

// SurfaceID is an opaque handle to a presentable window surface.
type SurfaceID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// DefaultFramebuffer is the framebuffer of the current window surface.
const DefaultFramebuffer FramebufferID = 0

// DefaultTextureFormat is the format used for render target textures.
const DefaultTextureFormat = gputypes.TextureFormatRGBA8Unorm

// Texel is a normalized RGBA color as seen by a fragment program.
// Components are straight (non-premultiplied) alpha in [0, 1].
type Texel [4]float32

// FragmentFunc is the CPU form of a fragment program. It receives the
// sampled texel and returns the output color.
type FragmentFunc func(in Texel) Texel

// ProgramSource describes a shader program.
type ProgramSource struct {
	// Label is a debug label, usually the shader name.
	Label string

	// WGSL is the shader source with vs_main and fs_main entry points.
	WGSL string

	// Fragment is the CPU equivalent of fs_main, used by backends that
	// execute programs without a GPU.
	Fragment FragmentFunc
}

// BlendMode selects how fragment output is combined with the framebuffer.
type BlendMode uint8

// Blend modes.
const (
	// BlendNone replaces the destination.
	BlendNone BlendMode = iota

	// BlendSourceOver is SRC_ALPHA, ONE_MINUS_SRC_ALPHA.
	BlendSourceOver
)

// DrawCommand draws a textured triangle strip.
//
// Positions and texture coordinates are read from Buffer as interleaved
// runs of 2 floats starting at the given float offsets. Each vertex
// position is transformed by Matrix (column-major) before rasterization.
type DrawCommand struct {
	Program        ProgramID
	Texture        TextureID
	Buffer         BufferID
	PositionOffset int
	TexCoordOffset int
	VertexCount    int
	Matrix         [16]float32
}

// ConfigAttribs requests a framebuffer configuration.
type ConfigAttribs struct {
	RedSize     int
	GreenSize   int
	BlueSize    int
	AlphaSize   int
	DepthSize   int
	StencilSize int
}

// DefaultConfigAttribs is RGBA8888 without depth or stencil.
var DefaultConfigAttribs = ConfigAttribs{
	RedSize:   8,
	GreenSize: 8,
	BlueSize:  8,
	AlphaSize: 8,
}

// Config is a framebuffer configuration chosen by a Display.
type Config struct {
	ID      uint64
	Attribs ConfigAttribs
	Format  gputypes.TextureFormat
}
