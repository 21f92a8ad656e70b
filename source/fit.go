// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package source

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/render"
)

// DefaultMaxSize is the largest texture edge a source uploads unless
// configured otherwise.
const DefaultMaxSize = 4096

// DefaultCacheBytes is the memory a slideshow keeps for decoded pictures.
const DefaultCacheBytes = 64 << 20

// FitProjection returns the orthographic projection that shows an
// imgW x imgH picture whole and centred on a surfW x surfH surface,
// keeping its aspect ratio. It returns the identity if any size is not
// positive.
func FitProjection(imgW, imgH, surfW, surfH int) render.Mat4 {
	if imgW <= 0 || imgH <= 0 || surfW <= 0 || surfH <= 0 {
		return render.Identity()
	}
	imageRatio := float32(imgW) / float32(imgH)
	containerRatio := float32(surfW) / float32(surfH)

	if containerRatio >= imageRatio {
		w := float32(surfW) / (float32(surfH) * imageRatio) * 2
		return render.Ortho(-w/2, w/2, -1, 1, -1, 1)
	}
	h := float32(surfH) / (float32(surfW) / imageRatio) * 2
	return render.Ortho(-1, 1, -h/2, h/2, -1, 1)
}

// prepare bounds img to maxSize on both edges and converts it to a
// premultiplied RGBA copy with its origin at (0, 0).
func prepare(img image.Image, maxSize int) *image.RGBA {
	b := img.Bounds()
	if maxSize > 0 && (b.Dx() > maxSize || b.Dy() > maxSize) {
		img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
		b = img.Bounds()
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// replaceTexture uploads img into a new texture and frees old once the
// upload succeeded. On failure old is kept.
func replaceTexture(dev gpucore.Device, old gpucore.TextureID, img *image.RGBA) (gpucore.TextureID, error) {
	tex, err := dev.CreateTexture(img.Rect.Dx(), img.Rect.Dy(), gpucore.DefaultTextureFormat)
	if err != nil {
		return old, err
	}
	if err := dev.WriteTexture(tex, img); err != nil {
		dev.DeleteTexture(tex)
		return old, err
	}
	dev.DeleteTexture(old)
	return tex, nil
}
