// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides a size-bounded LRU cache.
//
// Entries are weighed by a cost function and the least recently used ones
// are evicted once the total cost passes the budget:
//
//	c := cache.New[string, *image.RGBA](64<<20, func(img *image.RGBA) int64 {
//		return int64(len(img.Pix))
//	})
//	c.Add(path, img)
//	img, ok := c.Get(path)
//
// A Cache is safe for concurrent use and must not be copied.
package cache
