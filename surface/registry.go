// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Handle is a weak reference to a Host. Handles are never reused, so a
// handle to a closed host stays invalid even after new hosts register.
type Handle uint64

// InvalidHandle never resolves.
const InvalidHandle Handle = 0

// globalRegistry holds every open Host.
var globalRegistry = NewRegistry()

// Registry resolves handles to hosts.
type Registry struct {
	next    atomic.Uint64
	mu      sync.RWMutex
	entries map[Handle]*Host
}

// NewRegistry creates an empty registry.
// Most code should use the global registry via Lookup.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Handle]*Host)}
}

// Register adds h and returns its handle.
func (r *Registry) Register(h *Host) Handle {
	id := Handle(r.next.Add(1))
	r.mu.Lock()
	r.entries[id] = h
	r.mu.Unlock()
	return id
}

// Unregister removes the host behind id. Unknown handles are ignored.
func (r *Registry) Unregister(id Handle) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Lookup returns the host behind id while it is registered.
func (r *Registry) Lookup(id Handle) (*Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.entries[id]
	return h, ok
}

// Len returns the number of registered hosts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns the registered handles in registration order.
func (r *Registry) List() []Handle {
	r.mu.RLock()
	ids := make([]Handle, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Lookup returns the open host behind h.
func Lookup(h Handle) (*Host, bool) {
	return globalRegistry.Lookup(h)
}

// Hosts returns the handles of all open hosts.
func Hosts() []Handle {
	return globalRegistry.List()
}

// Valid reports whether h still refers to an open host.
func (h Handle) Valid() bool {
	_, ok := globalRegistry.Lookup(h)
	return ok
}
