// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ggcanvas

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrEmptyText is returned by NewText for an empty string.
var ErrEmptyText = errors.New("ggcanvas: empty text")

// TextStyle describes how NewText renders a line.
type TextStyle struct {
	// Size is the font size in points. Zero means DefaultTextSize.
	Size float64

	// Color is the text color. Nil means opaque white.
	Color color.Color

	// Background fills the whole canvas. Nil means transparent.
	Background color.Color

	// Padding is added on every side of the text, in pixels.
	Padding int
}

// DefaultTextSize is the font size used when TextStyle.Size is zero.
const DefaultTextSize = 24

var regularSource = sync.OnceValues(func() (*text.FontSource, error) {
	return text.NewFontSource(goregular.TTF)
})

// NewText renders s on a canvas sized to the text plus padding. The
// baseline sits at the font ascent below the top padding.
func NewText(s string, style TextStyle) (*Canvas, error) {
	if s == "" {
		return nil, ErrEmptyText
	}
	src, err := regularSource()
	if err != nil {
		return nil, fmt.Errorf("ggcanvas: load font: %w", err)
	}
	size := style.Size
	if size <= 0 {
		size = DefaultTextSize
	}
	face := src.Face(size)

	w, h := text.Measure(s, face)
	pad := max(style.Padding, 0)
	width := int(math.Ceil(w)) + 2*pad
	height := int(math.Ceil(h)) + 2*pad

	c, err := New(width, height)
	if err != nil {
		return nil, err
	}

	fg := style.Color
	if fg == nil {
		fg = color.White
	}
	ascent := face.Metrics().Ascent

	err = c.Draw(func(cc *gg.Context) {
		if style.Background != nil {
			cc.ClearWithColor(gg.FromColor(style.Background))
		} else {
			cc.Clear()
		}
		cc.SetFont(face)
		cc.SetColor(fg)
		cc.DrawString(s, float64(pad), float64(pad)+ascent)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
