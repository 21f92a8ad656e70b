// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/integration/ggcanvas"
	"github.com/gogpu/videomaker/render"
	"github.com/gogpu/videomaker/shader"
)

// ErrInvalidCorner is returned for a Corner outside the four defined.
var ErrInvalidCorner = errors.New("filter: invalid watermark corner")

// Corner selects where a mark is anchored.
type Corner int

// Mark corners.
const (
	RightBottom Corner = iota
	LeftBottom
	RightTop
	LeftTop
)

// String returns the corner name.
func (c Corner) String() string {
	switch c {
	case RightBottom:
		return "right-bottom"
	case LeftBottom:
		return "left-bottom"
	case RightTop:
		return "right-top"
	case LeftTop:
		return "left-top"
	default:
		return fmt.Sprintf("Corner(%d)", int(c))
	}
}

// ParseCorner parses the names returned by Corner.String.
func ParseCorner(s string) (Corner, error) {
	for c := RightBottom; c <= LeftTop; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCorner, s)
}

// Placement positions a mark. Margins and sizes are in surface pixels.
type Placement struct {
	Corner  Corner
	MarginX int
	MarginY int

	// Width and Height scale an image mark. Zero keeps the image size.
	// Text marks always use the size of their rendered text.
	Width  int
	Height int
}

func (p Placement) validate() error {
	if p.Corner < RightBottom || p.Corner > LeftTop {
		return fmt.Errorf("%w: %d", ErrInvalidCorner, int(p.Corner))
	}
	return nil
}

// Mark vertex buffer layout, in floats.
const (
	imageMarkOffset = 0
	textMarkOffset  = 8
	markTexOffset   = 16
	markBufferLen   = 24
)

// Watermark draws its input and then blends an image mark and a text mark
// over it.
//
// Marks can be set from any goroutine; they are uploaded on the next
// frame. Marks survive context re-creation and are uploaded again.
type Watermark struct {
	*Stage

	mu           sync.Mutex
	image        *image.RGBA
	imagePlace   Placement
	imageChanged bool
	text         *ggcanvas.Canvas
	textPlace    Placement
	textChanged  bool
	placeChanged bool

	// Render thread only.
	markBuf   gpucore.BufferID
	imageTex  gpucore.TextureID
	imageSize image.Point
	textRT    *ggcanvas.Canvas
	textTex   gpucore.TextureID
}

// NewWatermark returns a watermark stage with no marks.
func NewWatermark() *Watermark {
	return &Watermark{Stage: NewStage(shader.MustSource(shader.Normal))}
}

// SetImageMark shows img at place. If place has a size the image is
// scaled to it now, so the uploaded texture matches what is shown.
func (w *Watermark) SetImageMark(img image.Image, place Placement) error {
	if err := place.validate(); err != nil {
		return err
	}
	if img == nil {
		return fmt.Errorf("filter: nil watermark image")
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if place.Width > 0 && place.Height > 0 {
		width, height = place.Width, place.Height
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("filter: empty watermark image %dx%d", width, height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == b.Dx() && height == b.Dy() {
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Rect, img, b, xdraw.Src, nil)
	}

	w.mu.Lock()
	w.image = dst
	w.imagePlace = place
	w.imageChanged = true
	w.mu.Unlock()
	return nil
}

// SetTextMark renders s with style and shows it at place.
func (w *Watermark) SetTextMark(s string, style ggcanvas.TextStyle, place Placement) error {
	if err := place.validate(); err != nil {
		return err
	}
	canvas, err := ggcanvas.NewText(s, style)
	if err != nil {
		return err
	}

	w.mu.Lock()
	// A canvas the render thread has not picked up yet has no textures.
	if w.textChanged && w.text != nil {
		_ = w.text.Close(nil)
	}
	w.text = canvas
	w.textPlace = place
	w.textChanged = true
	w.mu.Unlock()
	return nil
}

// SetImagePlacement moves the image mark.
func (w *Watermark) SetImagePlacement(place Placement) error {
	if err := place.validate(); err != nil {
		return err
	}
	w.mu.Lock()
	size := w.imagePlace
	place.Width, place.Height = size.Width, size.Height
	w.imagePlace = place
	w.placeChanged = true
	w.mu.Unlock()
	return nil
}

// SetTextPlacement moves the text mark.
func (w *Watermark) SetTextPlacement(place Placement) error {
	if err := place.validate(); err != nil {
		return err
	}
	w.mu.Lock()
	w.textPlace = place
	w.placeChanged = true
	w.mu.Unlock()
	return nil
}

// ReleaseMarks removes both marks. Their textures are freed on the next
// frame.
func (w *Watermark) ReleaseMarks() {
	w.mu.Lock()
	if w.textChanged && w.text != nil {
		_ = w.text.Close(nil)
	}
	w.image = nil
	w.imageChanged = true
	w.text = nil
	w.textChanged = true
	w.mu.Unlock()
}

// OnContextCreated implements render.Renderer.
func (w *Watermark) OnContextCreated(dev gpucore.Device) error {
	if err := w.Stage.OnContextCreated(dev); err != nil {
		return err
	}
	buf := make([]float32, markBufferLen)
	copy(buf[markTexOffset:], render.QuadTexCoords[:])
	id, err := dev.CreateBuffer(buf)
	if err != nil {
		return fmt.Errorf("filter: watermark: create buffer: %w", err)
	}
	w.markBuf = id

	w.mu.Lock()
	w.imageChanged = w.image != nil
	w.mu.Unlock()
	return nil
}

// OnSurfaceChanged implements render.Renderer.
func (w *Watermark) OnSurfaceChanged(width, height int) error {
	if err := w.Stage.OnSurfaceChanged(width, height); err != nil {
		return err
	}
	w.mu.Lock()
	w.placeChanged = true
	w.mu.Unlock()
	return nil
}

// OnDrawFrame implements render.Renderer.
func (w *Watermark) OnDrawFrame() error {
	if w.dev == nil {
		return nil
	}
	if err := w.syncMarks(); err != nil {
		return err
	}
	return w.render(w.drawMarks)
}

// syncMarks uploads changed marks and rewrites their positions.
func (w *Watermark) syncMarks() error {
	w.mu.Lock()
	img, imageChanged := w.image, w.imageChanged
	text, textChanged := w.text, w.textChanged
	imagePlace, textPlace := w.imagePlace, w.textPlace
	placeChanged := w.placeChanged
	w.imageChanged, w.textChanged, w.placeChanged = false, false, false
	w.mu.Unlock()

	dev := w.dev
	if imageChanged {
		old := w.imageTex
		w.imageTex = gpucore.InvalidID
		w.imageSize = image.Point{}
		if img != nil {
			tex, err := dev.CreateTexture(img.Rect.Dx(), img.Rect.Dy(), gpucore.DefaultTextureFormat)
			if err != nil {
				return fmt.Errorf("filter: watermark: image mark: %w", err)
			}
			if err := dev.WriteTexture(tex, img); err != nil {
				dev.DeleteTexture(tex)
				return fmt.Errorf("filter: watermark: image mark: %w", err)
			}
			w.imageTex = tex
			w.imageSize = img.Rect.Size()
		}
		dev.DeleteTexture(old)
	}

	if textChanged && w.textRT != text {
		if w.textRT != nil {
			_ = w.textRT.Close(dev)
		}
		w.textRT = text
		w.textTex = gpucore.InvalidID
	}
	if w.textRT != nil {
		tex, err := w.textRT.Flush(dev)
		if err != nil {
			return fmt.Errorf("filter: watermark: text mark: %w", err)
		}
		w.textTex = tex
	}

	if imageChanged || textChanged || placeChanged {
		return w.writePositions(imagePlace, textPlace)
	}
	return nil
}

func (w *Watermark) writePositions(imagePlace, textPlace Placement) error {
	sw, sh := w.Size()
	if sw <= 0 || sh <= 0 {
		return nil
	}
	var pos [16]float32
	if w.imageTex != gpucore.InvalidID {
		r := markRegion(imagePlace, w.imageSize.X, w.imageSize.Y, sw, sh)
		copy(pos[imageMarkOffset:], r[:])
	}
	if w.textRT != nil {
		tw, th := w.textRT.Size()
		r := markRegion(textPlace, tw, th, sw, sh)
		copy(pos[textMarkOffset:], r[:])
	}
	if err := w.dev.WriteBuffer(w.markBuf, 0, pos[:]); err != nil {
		return fmt.Errorf("filter: watermark: positions: %w", err)
	}
	return nil
}

func (w *Watermark) drawMarks() error {
	if w.imageTex == gpucore.InvalidID && w.textTex == gpucore.InvalidID {
		return nil
	}
	w.dev.SetBlendMode(gpucore.BlendSourceOver)
	defer w.dev.SetBlendMode(gpucore.BlendNone)

	if w.imageTex != gpucore.InvalidID {
		if err := drawQuad(w.dev, w.program, w.imageTex, w.markBuf, imageMarkOffset, markTexOffset, w.matrix); err != nil {
			return err
		}
	}
	if w.textTex != gpucore.InvalidID {
		if err := drawQuad(w.dev, w.program, w.textTex, w.markBuf, textMarkOffset, markTexOffset, w.matrix); err != nil {
			return err
		}
	}
	return nil
}

// OnContextDestroy implements render.Renderer. The marks are kept and
// uploaded again in the next context.
func (w *Watermark) OnContextDestroy() {
	if dev := w.dev; dev != nil {
		dev.DeleteTexture(w.imageTex)
		dev.DeleteBuffer(w.markBuf)
		if w.textRT != nil {
			w.textRT.ReleaseTextures(dev)
		}
	}
	w.imageTex = gpucore.InvalidID
	w.imageSize = image.Point{}
	w.textTex = gpucore.InvalidID
	w.markBuf = gpucore.InvalidID
	w.Stage.OnContextDestroy()
}

// markRegion returns the quad positions of a mw x mh mark on a sw x sh
// surface.
func markRegion(p Placement, mw, mh, sw, sh int) [8]float32 {
	mx := 2 * float32(p.MarginX) / float32(sw)
	my := 2 * float32(p.MarginY) / float32(sh)
	w := 2 * float32(mw) / float32(sw)
	h := 2 * float32(mh) / float32(sh)

	var left, bottom float32
	switch p.Corner {
	case LeftBottom:
		left, bottom = -1+mx, -1+my
	case RightTop:
		left, bottom = 1-mx-w, 1-my-h
	case LeftTop:
		left, bottom = -1+mx, 1-my-h
	default:
		left, bottom = 1-mx-w, -1+my
	}
	return render.RegionPositions(left, bottom, left+w, bottom+h)
}
