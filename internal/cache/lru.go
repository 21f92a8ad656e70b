// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

// node is an entry in the recency list.
type node[K comparable, V any] struct {
	key   K
	value V
	cost  int64
	prev  *node[K, V]
	next  *node[K, V]
}

// lruList orders nodes from most (head) to least (tail) recently used.
// It is not safe for concurrent use.
type lruList[K comparable, V any] struct {
	head *node[K, V]
	tail *node[K, V]
	len  int
}

func (l *lruList[K, V]) pushFront(n *node[K, V]) {
	n.prev, n.next = nil, l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

func (l *lruList[K, V]) moveToFront(n *node[K, V]) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.pushFront(n)
}

// back returns the least recently used node, or nil.
func (l *lruList[K, V]) back() *node[K, V] {
	return l.tail
}

func (l *lruList[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.len--
}
