package gpucore

import "image"

// NativeWindow is a presentable drawable: a display window or the input
// surface of a video encoder.
type NativeWindow interface {
	// Size returns the current drawable size in pixels.
	Size() (width, height int)

	// Present receives a completed frame. frame is only valid for the
	// duration of the call.
	Present(frame *image.RGBA) error
}

// Platform is the entry point of a graphics backend.
type Platform interface {
	// Name returns the backend name, e.g. "software".
	Name() string

	// OpenDisplay returns the platform's default display, initialized.
	// Every call must be balanced by Display.Terminate.
	OpenDisplay() (Display, error)
}

// Display manages contexts and window surfaces of one platform display.
//
// Errors are one of the Err* sentinels of this package, possibly wrapped.
type Display interface {
	// ChooseConfig returns the first config matching attribs.
	ChooseConfig(attribs ConfigAttribs) (Config, error)

	// CreateContext creates a context. If share is not InvalidID, the new
	// context joins the share group of share.
	CreateContext(cfg Config, share ContextID) (ContextID, error)

	// CreateWindowSurface wraps win in a presentable surface.
	CreateWindowSurface(cfg Config, win NativeWindow) (SurfaceID, error)

	// MakeCurrent binds ctx and surface to the calling goroutine and
	// returns the context's device.
	MakeCurrent(surface SurfaceID, ctx ContextID) (Device, error)

	// SwapBuffers presents the surface's back buffer. It returns
	// ErrContextLost when the context is gone and ErrBadSurface when the
	// native window rejected the frame.
	SwapBuffers(surface SurfaceID) error

	// ReleaseCurrent unbinds ctx from the calling goroutine.
	ReleaseCurrent(ctx ContextID)

	// DestroySurface frees a window surface.
	DestroySurface(surface SurfaceID)

	// DestroyContext frees a context. Share-group objects survive while
	// another context of the group is alive.
	DestroyContext(ctx ContextID)

	// Terminate releases one OpenDisplay reference.
	Terminate()
}
