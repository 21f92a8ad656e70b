package gpucore

import "errors"

// Platform errors, named after their EGL counterparts.
var (
	ErrNotInitialized    = errors.New("gpucore: display not initialized")
	ErrBadAccess         = errors.New("gpucore: bad access")
	ErrBadAlloc          = errors.New("gpucore: allocation failed")
	ErrBadAttribute      = errors.New("gpucore: bad attribute")
	ErrBadConfig         = errors.New("gpucore: bad config")
	ErrBadContext        = errors.New("gpucore: bad context")
	ErrBadCurrentSurface = errors.New("gpucore: bad current surface")
	ErrBadDisplay        = errors.New("gpucore: bad display")
	ErrBadMatch          = errors.New("gpucore: bad match")
	ErrBadNativeWindow   = errors.New("gpucore: bad native window")
	ErrBadParameter      = errors.New("gpucore: bad parameter")
	ErrBadSurface        = errors.New("gpucore: bad surface")
	ErrContextLost       = errors.New("gpucore: context lost")
)

// Device errors.
var (
	// ErrIncompleteFramebuffer is returned by CheckFramebuffer.
	ErrIncompleteFramebuffer = errors.New("gpucore: framebuffer incomplete")

	// ErrInvalidValue is returned for out-of-range arguments.
	ErrInvalidValue = errors.New("gpucore: invalid value")

	// ErrInvalidOperation is returned for unknown handles or calls that
	// are not allowed in the current state.
	ErrInvalidOperation = errors.New("gpucore: invalid operation")

	// ErrUnsupportedFormat is returned for texture formats the backend
	// cannot store.
	ErrUnsupportedFormat = errors.New("gpucore: unsupported texture format")
)

var errorNames = []struct {
	err  error
	name string
}{
	{ErrNotInitialized, "EGL_NOT_INITIALIZED"},
	{ErrBadAccess, "EGL_BAD_ACCESS"},
	{ErrBadAlloc, "EGL_BAD_ALLOC"},
	{ErrBadAttribute, "EGL_BAD_ATTRIBUTE"},
	{ErrBadConfig, "EGL_BAD_CONFIG"},
	{ErrBadContext, "EGL_BAD_CONTEXT"},
	{ErrBadCurrentSurface, "EGL_BAD_CURRENT_SURFACE"},
	{ErrBadDisplay, "EGL_BAD_DISPLAY"},
	{ErrBadMatch, "EGL_BAD_MATCH"},
	{ErrBadNativeWindow, "EGL_BAD_NATIVE_WINDOW"},
	{ErrBadParameter, "EGL_BAD_PARAMETER"},
	{ErrBadSurface, "EGL_BAD_SURFACE"},
	{ErrContextLost, "EGL_CONTEXT_LOST"},
	{ErrIncompleteFramebuffer, "GL_FRAMEBUFFER_INCOMPLETE_ATTACHMENT"},
	{ErrInvalidValue, "GL_INVALID_VALUE"},
	{ErrInvalidOperation, "GL_INVALID_OPERATION"},
	{ErrUnsupportedFormat, "GL_INVALID_ENUM"},
}

// ErrorName returns the platform error name for err, e.g.
// "EGL_BAD_SURFACE". It returns "EGL_SUCCESS" for nil and "UNKNOWN" for
// errors outside this package.
func ErrorName(err error) string {
	if err == nil {
		return "EGL_SUCCESS"
	}
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return e.name
		}
	}
	return "UNKNOWN"
}
