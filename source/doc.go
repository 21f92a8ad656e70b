// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package source provides the stages at the head of a filter chain.
//
// A source has no input texture. It uploads its own pixels (a decoded
// still image or the latest camera frame) and draws them, fitted to the
// surface, into its render target:
//
//	img := source.NewImage()
//	if err := img.Load("cover.jpg"); err != nil {
//		return err
//	}
//	chain := filter.NewChain(img, filter.NewGray(), filter.NewCompositor())
//
// Setters may be called from any goroutine. Uploads happen on the render
// thread at the next frame.
package source
