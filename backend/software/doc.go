// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software is a pure Go implementation of the gpucore Display and
// Device interfaces.
//
// Textures, framebuffers and window back buffers are stored as RGBA8 rows
// indexed by window y (row 0 at the bottom), so render-to-texture has the
// same orientation rules as OpenGL ES: a texture rendered through a
// framebuffer comes out upside down unless the stage flips its position
// matrix. Fragment programs run their CPU kernel; WGSL is optionally
// validated through naga when [WithShaderValidation] is set.
//
// Contexts created with a share context join its share group. Textures,
// programs and buffers live in the share group and are visible to every
// context of the group; framebuffers belong to one context.
//
// Importing the package registers the platform under
// backend.BackendSoftware:
//
//	import _ "github.com/gogpu/videomaker/backend/software"
package software
