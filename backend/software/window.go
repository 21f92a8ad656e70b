// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"image"
	"sync"

	"github.com/gogpu/videomaker/gpucore"
)

// Window is an in-memory gpucore.NativeWindow. It keeps a copy of the last
// presented frame and counts presents.
//
// Window is safe for concurrent use: the render thread presents while
// other goroutines inspect or resize it.
type Window struct {
	mu         sync.Mutex
	width      int
	height     int
	frame      *image.RGBA
	presents   int
	presentErr error
	onPresent  func(*image.RGBA)
}

// NewWindow creates a window of the given size.
func NewWindow(width, height int) *Window {
	return &Window{width: width, height: height}
}

// Size implements gpucore.NativeWindow.
func (w *Window) Size() (width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// Present implements gpucore.NativeWindow.
func (w *Window) Present(frame *image.RGBA) error {
	w.mu.Lock()
	if w.presentErr != nil {
		err := w.presentErr
		w.mu.Unlock()
		return err
	}
	if w.frame == nil || w.frame.Rect != frame.Rect {
		w.frame = image.NewRGBA(frame.Rect)
	}
	copy(w.frame.Pix, frame.Pix)
	w.presents++
	fn := w.onPresent
	w.mu.Unlock()

	if fn != nil {
		fn(frame)
	}
	return nil
}

// Resize changes the window size. The surface picks it up after the next
// present.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
}

// Frame returns a copy of the last presented frame, or nil.
func (w *Window) Frame() *image.RGBA {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frame == nil {
		return nil
	}
	out := image.NewRGBA(w.frame.Rect)
	copy(out.Pix, w.frame.Pix)
	return out
}

// Presents returns the number of successful presents.
func (w *Window) Presents() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.presents
}

// SetPresentError makes subsequent presents fail with err. Pass nil to
// recover.
func (w *Window) SetPresentError(err error) {
	w.mu.Lock()
	w.presentErr = err
	w.mu.Unlock()
}

// OnPresent registers fn to be called with every presented frame, on the
// render thread.
func (w *Window) OnPresent(fn func(*image.RGBA)) {
	w.mu.Lock()
	w.onPresent = fn
	w.mu.Unlock()
}

var _ gpucore.NativeWindow = (*Window)(nil)
