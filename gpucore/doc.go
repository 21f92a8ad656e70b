// Package gpucore provides the GPU abstractions shared by every videomaker
// package.
//
// The package defines two interfaces that split the platform graphics
// stack the way EGL and OpenGL ES split it:
//
//   - [Display] owns configs, contexts and window surfaces. It is the
//     platform half: context creation, context sharing, make-current and
//     buffer presentation.
//   - [Device] is the command stream of one context. It creates textures,
//     framebuffers, programs and vertex buffers and draws textured quads.
//
// # Resource IDs
//
// All GPU objects are identified by opaque uint64 handles ([TextureID],
// [FramebufferID], [ProgramID], [BufferID], [ContextID], [SurfaceID]).
// [InvalidID] (zero) is never a valid handle. IDs are plain values and may
// cross goroutines; they stay valid only while the context (or share
// group) that created them is alive.
//
// # Threading
//
// A Device must only be used from the goroutine that made its context
// current. Contexts that share objects through a share group may run on
// different goroutines; a backend guards its share-group tables itself.
//
// # Backends
//
// The platform entry point is [Platform]. Backends register platforms with
// the backend package; backend/software is the pure Go implementation.
package gpucore
