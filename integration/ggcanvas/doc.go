// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ggcanvas uploads gg drawings into videomaker textures.
//
// The data flow is:
//
//	gg.Context (draw) -> Pixmap (CPU) -> gpucore texture -> filter stage
//
// # Usage
//
//	canvas, _ := ggcanvas.New(256, 64)
//	defer canvas.Close(dev)
//
//	canvas.Draw(func(cc *gg.Context) {
//	    cc.SetRGB(1, 0, 0)
//	    cc.DrawCircle(32, 32, 16)
//	    cc.Fill()
//	})
//	tex, err := canvas.Flush(dev)
//
// NewText renders a single line of text with the Go Regular font, which is
// how watermark text marks are produced.
//
// # Thread Safety
//
// Canvas is NOT safe for concurrent use. Flush and Close must run on the
// render thread that owns dev.
//
// # Texture Lifetime
//
// The texture is created lazily on the first Flush. After a Resize the
// previous texture stays alive until the replacement has been written, so
// a stage that still holds the old id never samples freed memory.
package ggcanvas
