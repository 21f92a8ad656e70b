// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import "sync"

// Cache is an LRU cache bounded by the total cost of its values.
type Cache[K comparable, V any] struct {
	budget int64
	cost   func(V) int64

	mu      sync.Mutex
	entries map[K]*node[K, V]
	order   lruList[K, V]
	total   int64
	stats   Stats
}

// Stats counts cache traffic.
type Stats struct {
	Len       int
	Cost      int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// New returns a cache holding values up to a total cost of budget. A nil
// cost counts every value as 1. A budget of 0 or less disables caching.
func New[K comparable, V any](budget int64, cost func(V) int64) *Cache[K, V] {
	if cost == nil {
		cost = func(V) int64 { return 1 }
	}
	return &Cache[K, V]{
		budget:  budget,
		cost:    cost,
		entries: make(map[K]*node[K, V]),
	}
}

// Get returns the value of key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	c.order.moveToFront(n)
	return n.value, true
}

// Add stores value under key, replacing any older value, and evicts least
// recently used entries until the budget holds. A value costing more than
// the whole budget is not stored.
func (c *Cache[K, V]) Add(key K, value V) {
	cost := c.cost(value)
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		c.remove(n)
	}
	if cost > c.budget {
		return
	}
	n := &node[K, V]{key: key, value: value, cost: cost}
	c.entries[key] = n
	c.order.pushFront(n)
	c.total += cost

	for c.total > c.budget {
		oldest := c.order.back()
		c.remove(oldest)
		c.stats.Evictions++
	}
}

// Remove drops key. It reports whether key was present.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.entries[key]
	if ok {
		c.remove(n)
	}
	return ok
}

// Clear drops every entry. Counters are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*node[K, V])
	c.order = lruList[K, V]{}
	c.total = 0
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.len
}

// Stats returns a snapshot of the counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Len = c.order.len
	s.Cost = c.total
	return s
}

// remove unlinks n. c.mu must be held.
func (c *Cache[K, V]) remove(n *node[K, V]) {
	c.order.unlink(n)
	delete(c.entries, n.key)
	c.total -= n.cost
}
