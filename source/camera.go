// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package source

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/videomaker/filter"
	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
	"github.com/gogpu/videomaker/shader"
)

var (
	_ filter.Filter = (*Image)(nil)
	_ filter.Filter = (*Camera)(nil)
)

// ErrInvalidAngle is returned for display rotations other than 0, 90, 180
// and 270 degrees.
var ErrInvalidAngle = errors.New("source: invalid rotation angle")

// Facing is the direction a camera points.
type Facing int

// Camera facings.
const (
	FacingBack Facing = iota
	FacingFront
)

// String returns "back" or "front".
func (f Facing) String() string {
	if f == FacingFront {
		return "front"
	}
	return "back"
}

// Orientation returns the position rotation for frames of a camera with
// the given facing while the display is rotated by angle degrees. swap
// reports whether the frame's width and height trade places on screen.
func Orientation(angle int, facing Facing) (rot render.Mat4, swap bool, err error) {
	m := render.Identity()
	front := facing == FacingFront
	switch angle {
	case 0:
		if front {
			return m.RotateZ(90), true, nil
		}
		return m.RotateZ(90).RotateX(180), true, nil
	case 90:
		if front {
			return m.RotateZ(180), false, nil
		}
		return m.RotateZ(180).RotateY(180), false, nil
	case 180:
		if front {
			return m.RotateZ(-90), true, nil
		}
		return m.RotateZ(90).RotateY(180), true, nil
	case 270:
		if front {
			return m, false, nil
		}
		return m.RotateY(180), false, nil
	default:
		return m, false, fmt.Errorf("%w: %d", ErrInvalidAngle, angle)
	}
}

// Camera draws frames delivered by a capture device, rotated for the
// display orientation and fitted to the surface.
//
// SubmitFrame may be called from the capture goroutine. Only the newest
// frame is kept; frames submitted between two draws are dropped.
type Camera struct {
	*filter.Stage

	mu          sync.Mutex
	frame       *image.RGBA
	frameNew    bool
	angle       int
	facing      Facing
	preview     image.Point
	layoutDirty bool
	onFrame     func()

	// Render thread only.
	tex       gpucore.TextureID
	frameSize image.Point
}

// NewCamera returns a camera source for a back camera on an unrotated
// display.
func NewCamera() *Camera {
	c := &Camera{Stage: filter.NewStage(shader.MustSource(shader.Normal))}
	c.SetClearOnDraw(true)
	return c
}

// SetInputTexture implements filter.Filter. Camera has no input.
func (c *Camera) SetInputTexture(gpucore.TextureID) {}

// SetOnFrameAvailable registers fn to run on the submitting goroutine
// after every SubmitFrame. Wire it to the render thread's RequestRender.
func (c *Camera) SetOnFrameAvailable(fn func()) {
	c.mu.Lock()
	c.onFrame = fn
	c.mu.Unlock()
}

// SubmitFrame copies img as the newest frame.
func (c *Camera) SubmitFrame(img image.Image) error {
	if img == nil {
		return ErrNilImage
	}
	rgba := prepare(img, 0)

	c.mu.Lock()
	c.frame = rgba
	c.frameNew = true
	fn := c.onFrame
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// SetOrientation sets the display rotation and the camera facing.
func (c *Camera) SetOrientation(angle int, facing Facing) error {
	if _, _, err := Orientation(angle, facing); err != nil {
		return err
	}
	c.mu.Lock()
	c.angle, c.facing = angle, facing
	c.layoutDirty = true
	c.mu.Unlock()
	return nil
}

// SetPreviewSize sets the capture size used for fitting. Until it is set
// the size of the latest frame is used.
func (c *Camera) SetPreviewSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, height)
	}
	c.mu.Lock()
	c.preview = image.Pt(width, height)
	c.layoutDirty = true
	c.mu.Unlock()
	return nil
}

// OnContextCreated implements render.Renderer.
func (c *Camera) OnContextCreated(dev gpucore.Device) error {
	if err := c.Stage.OnContextCreated(dev); err != nil {
		return err
	}
	c.mu.Lock()
	c.frameNew = c.frame != nil
	c.mu.Unlock()
	return nil
}

// OnSurfaceChanged implements render.Renderer.
func (c *Camera) OnSurfaceChanged(width, height int) error {
	if err := c.Stage.OnSurfaceChanged(width, height); err != nil {
		return err
	}
	c.layout()
	return nil
}

// OnDrawFrame implements render.Renderer.
func (c *Camera) OnDrawFrame() error {
	dev := c.Device()
	if dev == nil {
		return nil
	}

	c.mu.Lock()
	frame, frameNew, dirty := c.frame, c.frameNew, c.layoutDirty
	c.frameNew, c.layoutDirty = false, false
	c.mu.Unlock()

	if frameNew && frame != nil {
		tex, err := replaceTexture(dev, c.tex, frame)
		if err != nil {
			return fmt.Errorf("source: camera: upload: %w", err)
		}
		c.tex = tex
		c.Stage.SetInputTexture(tex)
		if size := frame.Rect.Size(); size != c.frameSize {
			c.frameSize = size
			dirty = true
		}
	}
	if dirty {
		c.layout()
	}
	return c.Stage.OnDrawFrame()
}

// layout computes position = rotation × projection for the current
// orientation, capture size and target size.
func (c *Camera) layout() {
	sw, sh := c.Size()
	c.mu.Lock()
	angle, facing, size := c.angle, c.facing, c.preview
	c.mu.Unlock()
	if size == (image.Point{}) {
		size = c.frameSize
	}
	if size.X <= 0 || size.Y <= 0 || sw <= 0 || sh <= 0 {
		return
	}

	rot, swap, err := Orientation(angle, facing)
	if err != nil {
		return
	}
	if swap {
		size.X, size.Y = size.Y, size.X
	}
	c.SetMatrix(rot.Mul(FitProjection(size.X, size.Y, sw, sh)))
}

// OnContextDestroy implements render.Renderer. The last frame is kept and
// uploaded again in the next context.
func (c *Camera) OnContextDestroy() {
	if dev := c.Device(); dev != nil {
		dev.DeleteTexture(c.tex)
	}
	c.tex = gpucore.InvalidID
	c.frameSize = image.Point{}
	c.Stage.SetInputTexture(gpucore.InvalidID)
	c.Stage.OnContextDestroy()
}
