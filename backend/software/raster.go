// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"image"
	"math"

	"github.com/gogpu/videomaker/gpucore"
)

// vertex is a projected vertex in window coordinates with its texture
// coordinate.
type vertex struct {
	x, y float32
	s, t float32
}

// rasterizer draws textured triangles into RGBA storage whose row index is
// the window y coordinate.
type rasterizer struct {
	dst      *image.RGBA
	clip     image.Rectangle
	viewport image.Rectangle
	src      *image.RGBA
	kernel   gpucore.FragmentFunc
	blend    gpucore.BlendMode
}

// project transforms an NDC position by m and maps it into the viewport.
func (r *rasterizer) project(m [16]float32, x, y float32) vertex {
	cx := m[0]*x + m[4]*y + m[12]
	cy := m[1]*x + m[5]*y + m[13]
	cw := m[3]*x + m[7]*y + m[15]
	if cw != 0 && cw != 1 {
		cx /= cw
		cy /= cw
	}
	vp := r.viewport
	return vertex{
		x: float32(vp.Min.X) + (cx+1)/2*float32(vp.Dx()),
		y: float32(vp.Min.Y) + (cy+1)/2*float32(vp.Dy()),
	}
}

// edge returns twice the signed area of (a, b, p).
func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// ownsEdge implements the fill rule that assigns a shared edge to exactly
// one of the two triangles using it.
func ownsEdge(ax, ay, bx, by float32) bool {
	dy := by - ay
	return dy > 0 || (dy == 0 && bx < ax)
}

func (r *rasterizer) triangle(v0, v1, v2 vertex) {
	area := edge(v0.x, v0.y, v1.x, v1.y, v2.x, v2.y)
	if area == 0 {
		return
	}
	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}

	minX := int(math.Floor(float64(min(v0.x, v1.x, v2.x))))
	maxX := int(math.Ceil(float64(max(v0.x, v1.x, v2.x))))
	minY := int(math.Floor(float64(min(v0.y, v1.y, v2.y))))
	maxY := int(math.Ceil(float64(max(v0.y, v1.y, v2.y))))
	box := image.Rect(minX, minY, maxX, maxY).Intersect(r.clip)
	if box.Empty() {
		return
	}

	own0 := ownsEdge(v1.x, v1.y, v2.x, v2.y)
	own1 := ownsEdge(v2.x, v2.y, v0.x, v0.y)
	own2 := ownsEdge(v0.x, v0.y, v1.x, v1.y)

	for py := box.Min.Y; py < box.Max.Y; py++ {
		cy := float32(py) + 0.5
		for px := box.Min.X; px < box.Max.X; px++ {
			cx := float32(px) + 0.5
			w0 := edge(v1.x, v1.y, v2.x, v2.y, cx, cy)
			w1 := edge(v2.x, v2.y, v0.x, v0.y, cx, cy)
			w2 := edge(v0.x, v0.y, v1.x, v1.y, cx, cy)
			if !inside(w0, own0) || !inside(w1, own1) || !inside(w2, own2) {
				continue
			}
			l0, l1, l2 := w0/area, w1/area, w2/area
			s := l0*v0.s + l1*v1.s + l2*v2.s
			t := l0*v0.t + l1*v1.t + l2*v2.t
			r.shade(px, py, sampleBilinear(r.src, s, t))
		}
	}
}

func inside(w float32, owned bool) bool {
	return w > 0 || (w == 0 && owned)
}

func (r *rasterizer) shade(px, py int, in gpucore.Texel) {
	out := r.kernel(in)
	i := r.dst.PixOffset(px, py)
	if r.blend == gpucore.BlendSourceOver {
		dst := pixelToTexel(r.dst.Pix[i : i+4])
		a := out[3]
		for c := range 4 {
			out[c] = out[c]*a + dst[c]*(1-a)
		}
	}
	px4 := texelToPixel(out)
	copy(r.dst.Pix[i:i+4], px4[:])
}

// sampleBilinear samples src at texture coordinate (s, t) with
// clamp-to-edge addressing. t=0 is storage row 0.
func sampleBilinear(src *image.RGBA, s, t float32) gpucore.Texel {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	u := s*float32(w) - 0.5
	v := t*float32(h) - 0.5

	x0 := int(math.Floor(float64(u)))
	y0 := int(math.Floor(float64(v)))
	fx := u - float32(x0)
	fy := v - float32(y0)

	// Snap weights within float noise of a texel center so 1:1 copies
	// are exact.
	const eps = 1e-4
	if fx < eps {
		fx = 0
	} else if fx > 1-eps {
		fx, x0 = 0, x0+1
	}
	if fy < eps {
		fy = 0
	} else if fy > 1-eps {
		fy, y0 = 0, y0+1
	}

	texel := func(x, y int) gpucore.Texel {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		i := src.PixOffset(src.Rect.Min.X+x, src.Rect.Min.Y+y)
		return pixelToTexel(src.Pix[i : i+4])
	}

	c00 := texel(x0, y0)
	if fx == 0 && fy == 0 {
		return c00
	}
	c10 := texel(x0+1, y0)
	c01 := texel(x0, y0+1)
	c11 := texel(x0+1, y0+1)

	var out gpucore.Texel
	for c := range 4 {
		top := c00[c]*(1-fx) + c10[c]*fx
		bottom := c01[c]*(1-fx) + c11[c]*fx
		out[c] = top*(1-fy) + bottom*fy
	}
	return out
}

func pixelToTexel(p []uint8) gpucore.Texel {
	return gpucore.Texel{
		float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255,
	}
}

func texelToPixel(t gpucore.Texel) [4]uint8 {
	var p [4]uint8
	for c := range 4 {
		v := min(max(t[c], 0), 1)
		p[c] = uint8(v*255 + 0.5)
	}
	return p
}

// imageToStorage converts a premultiplied, top-down image into straight
// alpha storage with t=0 at row 0.
func imageToStorage(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		si := img.PixOffset(b.Min.X, b.Min.Y+y)
		di := out.PixOffset(0, y)
		for x := 0; x < b.Dx()*4; x += 4 {
			r, g, bl, a := img.Pix[si+x], img.Pix[si+x+1], img.Pix[si+x+2], img.Pix[si+x+3]
			if a != 0 && a != 255 {
				r = unpremul(r, a)
				g = unpremul(g, a)
				bl = unpremul(bl, a)
			}
			out.Pix[di+x], out.Pix[di+x+1], out.Pix[di+x+2], out.Pix[di+x+3] = r, g, bl, a
		}
	}
	return out
}

// storageToImage reads rect of straight alpha storage (row index = window
// y) into a premultiplied image ordered top to bottom.
func storageToImage(src *image.RGBA, rect image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := range rect.Dy() {
		si := src.PixOffset(rect.Min.X, rect.Max.Y-1-y)
		di := out.PixOffset(0, y)
		for x := 0; x < rect.Dx()*4; x += 4 {
			r, g, b, a := src.Pix[si+x], src.Pix[si+x+1], src.Pix[si+x+2], src.Pix[si+x+3]
			if a != 255 {
				r = premul(r, a)
				g = premul(g, a)
				b = premul(b, a)
			}
			out.Pix[di+x], out.Pix[di+x+1], out.Pix[di+x+2], out.Pix[di+x+3] = r, g, b, a
		}
	}
	return out
}

func premul(c, a uint8) uint8 {
	return uint8((uint32(c)*uint32(a) + 127) / 255)
}

func unpremul(c, a uint8) uint8 {
	v := (uint32(c)*255 + uint32(a)/2) / uint32(a)
	return uint8(min(v, 255))
}
