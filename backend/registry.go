package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/videomaker/gpucore"
)

// PlatformFactory creates a new platform instance.
type PlatformFactory func() gpucore.Platform

// registry holds registered platforms.
var (
	registryMu sync.RWMutex
	platforms  = make(map[string]PlatformFactory)
	// Priority order for platform selection (first available wins).
	// Hardware platforms register ahead of the software fallback.
	backendPriority = []string{BackendSoftware}
)

// Register registers a platform factory with the given name.
// This is typically called from init() functions in backend packages.
// If a platform with the same name is already registered, it will be replaced.
func Register(name string, factory PlatformFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	platforms[name] = factory
}

// Unregister removes a platform from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(platforms, name)
}

// Available returns the registered platform names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a platform with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := platforms[name]
	return ok
}

// Get returns a platform instance by name.
// Returns nil if the platform is not registered.
func Get(name string) gpucore.Platform {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := platforms[name]
	if !ok {
		return nil
	}
	return factory()
}

// Lookup is like Get but returns ErrBackendNotAvailable for unknown names.
func Lookup(name string) (gpucore.Platform, error) {
	p := Get(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	return p, nil
}

// Default returns the best available platform based on priority.
// Returns nil if no platforms are registered.
func Default() gpucore.Platform {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := platforms[name]; ok {
			if p := factory(); p != nil {
				return p
			}
		}
	}

	// Fallback: first registered name in sorted order, for determinism.
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := platforms[name](); p != nil {
			return p
		}
	}

	return nil
}

// MustDefault returns the default platform or panics.
func MustDefault() gpucore.Platform {
	p := Default()
	if p == nil {
		panic("backend: no platform available")
	}
	return p
}

// InitDefault returns the default platform after checking that its display
// can be opened.
func InitDefault() (gpucore.Platform, error) {
	p := Default()
	if p == nil {
		return nil, ErrBackendNotAvailable
	}

	d, err := p.OpenDisplay()
	if err != nil {
		return nil, fmt.Errorf("backend: %s: %w", p.Name(), err)
	}
	d.Terminate()

	return p, nil
}
