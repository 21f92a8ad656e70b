package backend

import (
	"errors"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend names.
const (
	// BackendSoftware is the pure Go CPU rasterizer.
	BackendSoftware = "software"
)
