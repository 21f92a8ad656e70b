// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package source

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/filter"
	"github.com/gogpu/videomaker/gpucore"
	"github.com/gogpu/videomaker/internal/cache"
	"github.com/gogpu/videomaker/render"
	"github.com/gogpu/videomaker/shader"
)

// Image errors.
var (
	ErrNoImages         = errors.New("source: no images")
	ErrIndexOutOfRange  = errors.New("source: image index out of range")
	ErrNilImage         = errors.New("source: nil image")
	ErrInvalidDimension = errors.New("source: invalid dimensions")
)

// Option configures a source.
type Option func(*options)

type options struct {
	maxSize    int
	cacheBytes int64
}

// WithMaxSize bounds both edges of uploaded pictures. Larger pictures are
// scaled down, keeping their aspect ratio.
func WithMaxSize(n int) Option {
	return func(o *options) { o.maxSize = n }
}

// WithCacheBytes bounds the memory kept for decoded slideshow pictures.
// Zero or less disables the cache.
func WithCacheBytes(n int64) Option {
	return func(o *options) { o.cacheBytes = n }
}

func newOptions(opts []Option) options {
	o := options{maxSize: DefaultMaxSize, cacheBytes: DefaultCacheBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxSize <= 0 {
		o.maxSize = DefaultMaxSize
	}
	return o
}

// Image draws a still picture fitted to the surface. It also steps through
// a list of files, one at a time, for slideshows.
type Image struct {
	*filter.Stage
	opts  options
	cache *cache.Cache[string, *image.RGBA]

	mu      sync.Mutex
	current *image.RGBA
	changed bool
	paths   []string
	index   int
	onDrawn func(index int)

	// Render thread only.
	tex  gpucore.TextureID
	size image.Point
}

// NewImage returns an image source with no picture. Areas outside the
// fitted picture are opaque black.
func NewImage(opts ...Option) *Image {
	s := &Image{
		Stage: filter.NewStage(shader.MustSource(shader.Normal)),
		index: -1,
	}
	s.opts = newOptions(opts)
	s.cache = cache.New[string, *image.RGBA](s.opts.cacheBytes, func(img *image.RGBA) int64 {
		return int64(len(img.Pix))
	})
	s.SetClearOnDraw(true)
	return s
}

// SetInputTexture implements filter.Filter. Image has no input.
func (s *Image) SetInputTexture(gpucore.TextureID) {}

// SetImage shows img from the next frame on.
func (s *Image) SetImage(img image.Image) error {
	return s.show(img, -1)
}

// Load decodes the file at path, applying its EXIF orientation, and shows
// it.
func (s *Image) Load(path string) error {
	img, err := decode(path)
	if err != nil {
		return err
	}
	return s.show(img, -1)
}

func decode(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("source: load %s: %w", path, err)
	}
	videomaker.Logger().Debug("source: image loaded", "path", path, "size", img.Bounds().Size())
	return img, nil
}

func (s *Image) show(img image.Image, index int) error {
	if img == nil {
		return ErrNilImage
	}
	s.showPrepared(prepare(img, s.opts.maxSize), index)
	return nil
}

func (s *Image) showPrepared(rgba *image.RGBA, index int) {
	s.mu.Lock()
	s.current = rgba
	s.changed = true
	s.index = index
	s.mu.Unlock()
}

// SetImages sets the slideshow files. Nothing changes on screen until
// ShowIndex or Next.
func (s *Image) SetImages(paths []string) {
	s.mu.Lock()
	s.paths = append([]string(nil), paths...)
	s.index = -1
	s.mu.Unlock()
}

// Len returns the number of slideshow files.
func (s *Image) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// Index returns the slideshow position of the picture shown, or -1.
func (s *Image) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// ShowIndex loads and shows slideshow file i. Recently shown files are
// served from memory.
func (s *Image) ShowIndex(i int) error {
	s.mu.Lock()
	n := len(s.paths)
	if n == 0 {
		s.mu.Unlock()
		return ErrNoImages
	}
	if i < 0 || i >= n {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, n)
	}
	path := s.paths[i]
	s.mu.Unlock()

	if rgba, ok := s.cache.Get(path); ok {
		s.showPrepared(rgba, i)
		return nil
	}
	img, err := decode(path)
	if err != nil {
		return err
	}
	rgba := prepare(img, s.opts.maxSize)
	s.cache.Add(path, rgba)
	s.showPrepared(rgba, i)
	return nil
}

// CacheStats returns the counters of the decoded picture cache.
func (s *Image) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Next shows the slideshow file after the current one, wrapping around.
func (s *Image) Next() error {
	s.mu.Lock()
	n, i := len(s.paths), s.index
	s.mu.Unlock()
	if n == 0 {
		return ErrNoImages
	}
	return s.ShowIndex((i + 1) % n)
}

// SetOnNewImageDrawn registers fn to run on the render thread after the
// first frame that shows a new picture. index is the slideshow position,
// or -1 for pictures set directly.
func (s *Image) SetOnNewImageDrawn(fn func(index int)) {
	s.mu.Lock()
	s.onDrawn = fn
	s.mu.Unlock()
}

// OnContextCreated implements render.Renderer.
func (s *Image) OnContextCreated(dev gpucore.Device) error {
	if err := s.Stage.OnContextCreated(dev); err != nil {
		return err
	}
	s.mu.Lock()
	s.changed = s.current != nil
	s.mu.Unlock()
	return nil
}

// OnSurfaceChanged implements render.Renderer.
func (s *Image) OnSurfaceChanged(width, height int) error {
	if err := s.Stage.OnSurfaceChanged(width, height); err != nil {
		return err
	}
	s.fit()
	return nil
}

// OnDrawFrame implements render.Renderer.
func (s *Image) OnDrawFrame() error {
	dev := s.Device()
	if dev == nil {
		return nil
	}

	s.mu.Lock()
	img, changed, index := s.current, s.changed, s.index
	s.changed = false
	s.mu.Unlock()

	if changed && img != nil {
		tex, err := replaceTexture(dev, s.tex, img)
		if err != nil {
			return fmt.Errorf("source: image: upload: %w", err)
		}
		s.tex = tex
		s.Stage.SetInputTexture(tex)
		if size := img.Rect.Size(); size != s.size {
			s.size = size
			s.fit()
		}
	}

	if err := s.Stage.OnDrawFrame(); err != nil {
		return err
	}

	if changed && img != nil {
		s.mu.Lock()
		fn := s.onDrawn
		s.mu.Unlock()
		if fn != nil {
			fn(index)
		}
	}
	return nil
}

// fit keeps the picture's aspect ratio on the current target.
func (s *Image) fit() {
	w, h := s.Size()
	if s.size.X == 0 || w <= 0 || h <= 0 {
		return
	}
	proj := FitProjection(s.size.X, s.size.Y, w, h)
	s.SetMatrix(proj.Mul(render.Identity().RotateX(180)))
}

// OnContextDestroy implements render.Renderer. The picture is kept and
// uploaded again in the next context.
func (s *Image) OnContextDestroy() {
	if dev := s.Device(); dev != nil {
		dev.DeleteTexture(s.tex)
	}
	s.tex = gpucore.InvalidID
	s.size = image.Point{}
	s.Stage.SetInputTexture(gpucore.InvalidID)
	s.Stage.OnContextDestroy()
}
