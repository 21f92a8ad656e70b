// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/shader"
)

// shareGroup holds the objects visible to every context created against
// it. Contexts of one group run on different goroutines, so the tables
// are guarded by mu.
type shareGroup struct {
	mu       sync.Mutex
	refs     int
	textures map[gpucore.TextureID]*image.RGBA
	programs map[gpucore.ProgramID]gpucore.ProgramSource
	buffers  map[gpucore.BufferID][]float32
}

func newShareGroup() *shareGroup {
	return &shareGroup{
		textures: make(map[gpucore.TextureID]*image.RGBA),
		programs: make(map[gpucore.ProgramID]gpucore.ProgramSource),
		buffers:  make(map[gpucore.BufferID][]float32),
	}
}

func (g *shareGroup) retain() {
	g.mu.Lock()
	g.refs++
	g.mu.Unlock()
}

// release drops one context reference and frees every object when the
// last context goes away. It reports whether the group was freed.
func (g *shareGroup) release() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs--
	if g.refs > 0 {
		return false
	}
	clear(g.textures)
	clear(g.programs)
	clear(g.buffers)
	return true
}

func (g *shareGroup) texture(id gpucore.TextureID) (*image.RGBA, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.textures[id]
	return t, ok
}

func (g *shareGroup) textureCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.textures)
}

// Device implements gpucore.Device for one software context.
//
// Device is NOT safe for concurrent use. It must only be used from the
// goroutine that made its context current.
type Device struct {
	display *Display
	ctx     *glContext
	group   *shareGroup

	framebuffers map[gpucore.FramebufferID]gpucore.TextureID
	bound        gpucore.FramebufferID
	surface      *windowSurface

	viewport   image.Rectangle
	clearColor gpucore.Texel
	blend      gpucore.BlendMode
}

func newDevice(d *Display, ctx *glContext) *Device {
	return &Device{
		display:      d,
		ctx:          ctx,
		group:        ctx.group,
		framebuffers: make(map[gpucore.FramebufferID]gpucore.TextureID),
		clearColor:   gpucore.Texel{0, 0, 0, 1},
	}
}

func (dev *Device) releaseFramebuffers() {
	clear(dev.framebuffers)
	dev.bound = gpucore.DefaultFramebuffer
}

// CreateTexture implements gpucore.Device.
func (dev *Device) CreateTexture(width, height int, format gputypes.TextureFormat) (gpucore.TextureID, error) {
	if format != gputypes.TextureFormatRGBA8Unorm {
		return gpucore.InvalidID, fmt.Errorf("%w: %v", gpucore.ErrUnsupportedFormat, format)
	}
	if err := dev.checkSize(width, height); err != nil {
		return gpucore.InvalidID, err
	}

	id := gpucore.TextureID(dev.display.newID())
	dev.group.mu.Lock()
	dev.group.textures[id] = image.NewRGBA(image.Rect(0, 0, width, height))
	dev.group.mu.Unlock()
	return id, nil
}

func (dev *Device) checkSize(width, height int) error {
	maxSize := dev.display.platform.opts.maxTextureSize
	if width <= 0 || height <= 0 || width > maxSize || height > maxSize {
		return fmt.Errorf("%w: texture size %dx%d (max %d)", gpucore.ErrInvalidValue, width, height, maxSize)
	}
	return nil
}

// WriteTexture implements gpucore.Device. img holds premultiplied alpha;
// textures store straight alpha.
func (dev *Device) WriteTexture(id gpucore.TextureID, img *image.RGBA) error {
	if img == nil {
		return gpucore.ErrInvalidValue
	}
	b := img.Bounds()
	if err := dev.checkSize(b.Dx(), b.Dy()); err != nil {
		return err
	}

	dev.group.mu.Lock()
	defer dev.group.mu.Unlock()
	if _, ok := dev.group.textures[id]; !ok {
		return fmt.Errorf("%w: texture %d", gpucore.ErrInvalidOperation, id)
	}
	dev.group.textures[id] = imageToStorage(img)
	return nil
}

// DeleteTexture implements gpucore.Device.
func (dev *Device) DeleteTexture(id gpucore.TextureID) {
	if id == gpucore.InvalidID {
		return
	}
	dev.group.mu.Lock()
	delete(dev.group.textures, id)
	dev.group.mu.Unlock()
}

// TextureSize implements gpucore.Device.
func (dev *Device) TextureSize(id gpucore.TextureID) (width, height int, err error) {
	t, ok := dev.group.texture(id)
	if !ok {
		return 0, 0, fmt.Errorf("%w: texture %d", gpucore.ErrInvalidOperation, id)
	}
	return t.Rect.Dx(), t.Rect.Dy(), nil
}

// CreateFramebuffer implements gpucore.Device.
func (dev *Device) CreateFramebuffer() (gpucore.FramebufferID, error) {
	id := gpucore.FramebufferID(dev.display.newID())
	dev.framebuffers[id] = gpucore.InvalidID
	return id, nil
}

// AttachTexture implements gpucore.Device.
func (dev *Device) AttachTexture(fb gpucore.FramebufferID, tex gpucore.TextureID) error {
	if _, ok := dev.framebuffers[fb]; !ok {
		return fmt.Errorf("%w: framebuffer %d", gpucore.ErrInvalidOperation, fb)
	}
	dev.framebuffers[fb] = tex
	return nil
}

// CheckFramebuffer implements gpucore.Device.
func (dev *Device) CheckFramebuffer(fb gpucore.FramebufferID) error {
	tex, ok := dev.framebuffers[fb]
	if !ok {
		return fmt.Errorf("%w: framebuffer %d", gpucore.ErrInvalidOperation, fb)
	}
	if tex == gpucore.InvalidID {
		return fmt.Errorf("%w: missing attachment", gpucore.ErrIncompleteFramebuffer)
	}
	if _, ok := dev.group.texture(tex); !ok {
		return fmt.Errorf("%w: attachment %d deleted", gpucore.ErrIncompleteFramebuffer, tex)
	}
	return nil
}

// BindFramebuffer implements gpucore.Device.
func (dev *Device) BindFramebuffer(fb gpucore.FramebufferID) error {
	if fb != gpucore.DefaultFramebuffer {
		if _, ok := dev.framebuffers[fb]; !ok {
			return fmt.Errorf("%w: framebuffer %d", gpucore.ErrInvalidOperation, fb)
		}
	}
	dev.bound = fb
	return nil
}

// DeleteFramebuffer implements gpucore.Device.
func (dev *Device) DeleteFramebuffer(fb gpucore.FramebufferID) {
	delete(dev.framebuffers, fb)
	if dev.bound == fb {
		dev.bound = gpucore.DefaultFramebuffer
	}
}

// CreateProgram implements gpucore.Device.
func (dev *Device) CreateProgram(src gpucore.ProgramSource) (gpucore.ProgramID, error) {
	if src.Fragment == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: program %q has no fragment kernel", gpucore.ErrInvalidValue, src.Label)
	}
	if dev.display.platform.opts.validateShaders {
		code, err := shader.Compile(src)
		if err != nil {
			return gpucore.InvalidID, fmt.Errorf("%w: %w", gpucore.ErrInvalidOperation, err)
		}
		dev.display.platform.logger().Debug("software: program validated",
			"program", src.Label, "spirv_words", len(code))
	}

	id := gpucore.ProgramID(dev.display.newID())
	dev.group.mu.Lock()
	dev.group.programs[id] = src
	dev.group.mu.Unlock()
	return id, nil
}

// DeleteProgram implements gpucore.Device.
func (dev *Device) DeleteProgram(id gpucore.ProgramID) {
	dev.group.mu.Lock()
	delete(dev.group.programs, id)
	dev.group.mu.Unlock()
}

// CreateBuffer implements gpucore.Device.
func (dev *Device) CreateBuffer(data []float32) (gpucore.BufferID, error) {
	id := gpucore.BufferID(dev.display.newID())
	dev.group.mu.Lock()
	dev.group.buffers[id] = append([]float32(nil), data...)
	dev.group.mu.Unlock()
	return id, nil
}

// WriteBuffer implements gpucore.Device.
func (dev *Device) WriteBuffer(id gpucore.BufferID, offset int, data []float32) error {
	dev.group.mu.Lock()
	defer dev.group.mu.Unlock()
	buf, ok := dev.group.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", gpucore.ErrInvalidOperation, id)
	}
	if offset < 0 || offset+len(data) > len(buf) {
		return fmt.Errorf("%w: write [%d, %d) to buffer of %d floats",
			gpucore.ErrInvalidValue, offset, offset+len(data), len(buf))
	}
	copy(buf[offset:], data)
	return nil
}

// DeleteBuffer implements gpucore.Device.
func (dev *Device) DeleteBuffer(id gpucore.BufferID) {
	dev.group.mu.Lock()
	delete(dev.group.buffers, id)
	dev.group.mu.Unlock()
}

// Viewport implements gpucore.Device.
func (dev *Device) Viewport(x, y, width, height int) {
	dev.viewport = image.Rect(x, y, x+width, y+height)
}

// SetClearColor implements gpucore.Device.
func (dev *Device) SetClearColor(c color.Color) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	dev.clearColor = gpucore.Texel{
		float32(n.R) / 255, float32(n.G) / 255, float32(n.B) / 255, float32(n.A) / 255,
	}
}

// Clear implements gpucore.Device. Like glClear it ignores the viewport.
func (dev *Device) Clear() {
	dst := dev.drawBuffer()
	if dst == nil {
		return
	}
	px := texelToPixel(dev.clearColor)
	for i := 0; i < len(dst.Pix); i += 4 {
		copy(dst.Pix[i:i+4], px[:])
	}
}

// SetBlendMode implements gpucore.Device.
func (dev *Device) SetBlendMode(mode gpucore.BlendMode) {
	dev.blend = mode
}

// Draw implements gpucore.Device.
func (dev *Device) Draw(cmd gpucore.DrawCommand) error {
	if dev.ctx.lost.Load() {
		return gpucore.ErrContextLost
	}
	dst := dev.drawBuffer()
	if dst == nil {
		return fmt.Errorf("%w: no draw buffer bound", gpucore.ErrInvalidOperation)
	}
	if cmd.VertexCount < 3 {
		return nil
	}

	dev.group.mu.Lock()
	prog, okProg := dev.group.programs[cmd.Program]
	tex, okTex := dev.group.textures[cmd.Texture]
	buf, okBuf := dev.group.buffers[cmd.Buffer]
	dev.group.mu.Unlock()

	switch {
	case !okProg:
		return fmt.Errorf("%w: program %d", gpucore.ErrInvalidOperation, cmd.Program)
	case !okTex:
		return fmt.Errorf("%w: texture %d", gpucore.ErrInvalidOperation, cmd.Texture)
	case !okBuf:
		return fmt.Errorf("%w: buffer %d", gpucore.ErrInvalidOperation, cmd.Buffer)
	}
	if fbTex, ok := dev.framebuffers[dev.bound]; ok && fbTex == cmd.Texture {
		return fmt.Errorf("%w: feedback loop on texture %d", gpucore.ErrInvalidOperation, cmd.Texture)
	}

	need := 2 * cmd.VertexCount
	if cmd.PositionOffset < 0 || cmd.TexCoordOffset < 0 ||
		cmd.PositionOffset+need > len(buf) || cmd.TexCoordOffset+need > len(buf) {
		return fmt.Errorf("%w: vertex data out of range", gpucore.ErrInvalidValue)
	}

	r := rasterizer{
		dst:      dst,
		clip:     dev.viewport.Intersect(dst.Rect),
		viewport: dev.viewport,
		src:      tex,
		kernel:   prog.Fragment,
		blend:    dev.blend,
	}
	verts := make([]vertex, cmd.VertexCount)
	for i := range verts {
		x := buf[cmd.PositionOffset+2*i]
		y := buf[cmd.PositionOffset+2*i+1]
		verts[i] = r.project(cmd.Matrix, x, y)
		verts[i].s = buf[cmd.TexCoordOffset+2*i]
		verts[i].t = buf[cmd.TexCoordOffset+2*i+1]
	}
	for i := 0; i+2 < len(verts); i++ {
		r.triangle(verts[i], verts[i+1], verts[i+2])
	}
	return nil
}

// ReadPixels implements gpucore.Device.
func (dev *Device) ReadPixels(x, y, width, height int) (*image.RGBA, error) {
	src := dev.drawBuffer()
	if src == nil {
		return nil, fmt.Errorf("%w: no read buffer bound", gpucore.ErrInvalidOperation)
	}
	rect := image.Rect(x, y, x+width, y+height)
	if width <= 0 || height <= 0 || !rect.In(src.Rect) {
		return nil, fmt.Errorf("%w: read %v outside %v", gpucore.ErrInvalidValue, rect, src.Rect)
	}
	return storageToImage(src, rect), nil
}

// drawBuffer returns the storage of the bound framebuffer, or nil.
func (dev *Device) drawBuffer() *image.RGBA {
	if dev.bound == gpucore.DefaultFramebuffer {
		if dev.surface == nil {
			return nil
		}
		return dev.surface.back
	}
	tex, ok := dev.framebuffers[dev.bound]
	if !ok {
		return nil
	}
	t, _ := dev.group.texture(tex)
	return t
}

// Provider implements gpucore.Device.
func (dev *Device) Provider() gpucontext.DeviceProvider {
	return provider{dev: dev}
}

// Poll implements gpucontext.Device. The software device executes every
// command synchronously, so there is never outstanding work.
func (dev *Device) Poll(bool) {}

// Destroy implements gpucontext.Device by losing the context.
func (dev *Device) Destroy() {
	dev.ctx.lost.Store(true)
}

// provider exposes a Device as a gpucontext.DeviceProvider.
type provider struct {
	dev *Device
}

type queue struct{}

type adapter struct{}

func (p provider) Device() gpucontext.Device   { return p.dev }
func (p provider) Queue() gpucontext.Queue     { return queue{} }
func (p provider) Adapter() gpucontext.Adapter { return adapter{} }

func (p provider) SurfaceFormat() gputypes.TextureFormat {
	return softwareConfig.Format
}

var (
	_ gpucore.Device            = (*Device)(nil)
	_ gpucontext.Device         = (*Device)(nil)
	_ gpucontext.DeviceProvider = provider{}
)
