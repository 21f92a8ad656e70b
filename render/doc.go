// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render provides the building blocks shared by every renderer in
// a videomaker pipeline.
//
// # Core Types
//
//   - Renderer: the four lifecycle callbacks a render thread drives
//   - Target: an off-screen framebuffer bound to a backing texture that is
//     reallocated on resize
//   - Mat4: column-major 4x4 matrices for position transforms
//   - DeviceHandle: gpucontext view of a device for host integrations
//
// # Target Swap Semantics
//
// Target.Resize allocates the new texture, attaches it and validates the
// framebuffer before deleting the previous texture. Exactly one texture is
// attached at any time, and a listener is told the new id so downstream
// stages can rebind.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. Renderers and
// targets belong to the render thread that owns their device.
package render
