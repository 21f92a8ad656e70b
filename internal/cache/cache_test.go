// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](3, nil)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Add("d", 4) // evicts b

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s missing", k)
		}
	}
	st := c.Stats()
	if st.Len != 3 || st.Evictions != 1 || st.Hits != 4 || st.Misses != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestCacheCost(t *testing.T) {
	c := New[string, []byte](10, func(b []byte) int64 { return int64(len(b)) })
	c.Add("a", make([]byte, 4))
	c.Add("b", make([]byte, 4))
	c.Add("c", make([]byte, 4)) // evicts a
	if c.Len() != 2 || c.Stats().Cost != 8 {
		t.Errorf("Len, Cost = %d, %d, want 2, 8", c.Len(), c.Stats().Cost)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted")
	}

	c.Add("big", make([]byte, 11))
	if _, ok := c.Get("big"); ok {
		t.Error("value over budget stored")
	}

	// Replacing a key updates its cost.
	c.Add("b", make([]byte, 1))
	if got := c.Stats().Cost; got != 5 {
		t.Errorf("Cost after replace = %d, want 5", got)
	}
}

func TestCacheRemoveAndClear(t *testing.T) {
	c := New[int, int](10, nil)
	for i := range 5 {
		c.Add(i, i)
	}
	if !c.Remove(2) || c.Remove(2) {
		t.Error("Remove() should report presence once")
	}
	c.Clear()
	if c.Len() != 0 || c.Stats().Cost != 0 {
		t.Errorf("after Clear Len, Cost = %d, %d", c.Len(), c.Stats().Cost)
	}
	c.Add(1, 1)
	if v, ok := c.Get(1); !ok || v != 1 {
		t.Error("cache unusable after Clear")
	}
}

func TestCacheDisabled(t *testing.T) {
	c := New[string, int](0, nil)
	c.Add("a", 1)
	if c.Len() != 0 {
		t.Error("zero budget cache stored a value")
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := New[string, int](16, nil)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				k := fmt.Sprint((g + i) % 32)
				if _, ok := c.Get(k); !ok {
					c.Add(k, i)
				}
			}
		}()
	}
	wg.Wait()
	if st := c.Stats(); st.Len > 16 || st.Cost > 16 {
		t.Errorf("budget exceeded: %+v", st)
	}
}
