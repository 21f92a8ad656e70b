// Package backend provides the registry of graphics platforms.
//
// A platform ([gpucore.Platform]) is the entry point of a graphics stack:
// it opens the display that render threads create contexts and window
// surfaces on.
//
// # Platform Registration
//
// Platforms are registered via init() functions and selected at runtime.
// The software platform registers itself when its package is imported:
//
//	import _ "github.com/gogpu/videomaker/backend/software"
//
// # Platform Selection
//
// Use Default() to get the best available platform, or Get() to request
// a specific platform by name:
//
//	p := backend.Default()
//
//	p := backend.Get(backend.BackendSoftware)
//
// # Available Platforms
//
//   - software: pure Go rasterizer, no GPU required
package backend
