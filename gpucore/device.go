package gpucore

import (
	"image"
	"image/color"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Device is the command stream of one graphics context.
//
// Device calls must come from the goroutine that made the context current.
// Handles returned by a Device are valid in every context of its share
// group.
type Device interface {
	// CreateTexture allocates an uninitialized width x height texture.
	CreateTexture(width, height int, format gputypes.TextureFormat) (TextureID, error)

	// WriteTexture replaces the texture contents and size with img.
	// Row 0 of img becomes texture coordinate t=0.
	WriteTexture(id TextureID, img *image.RGBA) error

	// DeleteTexture frees a texture. Deleting InvalidID or an unknown
	// texture is a no-op.
	DeleteTexture(id TextureID)

	// TextureSize returns the dimensions of a texture.
	TextureSize(id TextureID) (width, height int, err error)

	// CreateFramebuffer allocates a framebuffer with no attachment.
	CreateFramebuffer() (FramebufferID, error)

	// AttachTexture sets the color attachment of fb.
	AttachTexture(fb FramebufferID, tex TextureID) error

	// CheckFramebuffer returns ErrIncompleteFramebuffer unless fb has a
	// valid color attachment.
	CheckFramebuffer(fb FramebufferID) error

	// BindFramebuffer directs rendering to fb, or to the window surface
	// when fb is DefaultFramebuffer.
	BindFramebuffer(fb FramebufferID) error

	// DeleteFramebuffer frees a framebuffer. Attached textures survive.
	DeleteFramebuffer(fb FramebufferID)

	// CreateProgram links a shader program.
	CreateProgram(src ProgramSource) (ProgramID, error)

	// DeleteProgram frees a program.
	DeleteProgram(id ProgramID)

	// CreateBuffer allocates a vertex buffer initialized with data.
	CreateBuffer(data []float32) (BufferID, error)

	// WriteBuffer replaces len(data) floats starting at offset.
	WriteBuffer(id BufferID, offset int, data []float32) error

	// DeleteBuffer frees a vertex buffer.
	DeleteBuffer(id BufferID)

	// Viewport sets the window-space rectangle NDC maps to.
	Viewport(x, y, width, height int)

	// SetClearColor sets the color used by Clear.
	SetClearColor(c color.Color)

	// Clear fills the bound framebuffer with the clear color.
	Clear()

	// SetBlendMode selects the blend equation for subsequent draws.
	SetBlendMode(mode BlendMode)

	// Draw rasterizes a textured triangle strip into the bound framebuffer.
	Draw(cmd DrawCommand) error

	// ReadPixels reads a window-space rectangle of the bound framebuffer.
	// Rows of the returned image are ordered top to bottom.
	ReadPixels(x, y, width, height int) (*image.RGBA, error)

	// Provider exposes the device to gpucontext-based integrations.
	Provider() gpucontext.DeviceProvider
}
