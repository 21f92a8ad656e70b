// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"context"
	"sync"

	"github.com/gogpu/videomaker/encoder"
)

// outputQueue is an unbounded single-consumer buffer queue. Producers never
// block, so a render thread presenting to an encoder cannot stall on a
// slow drain.
type outputQueue struct {
	mu       sync.Mutex
	bufs     []encoder.Buffer
	ended    bool
	released bool
	notify   chan struct{}
}

func newOutputQueue() *outputQueue {
	return &outputQueue{notify: make(chan struct{}, 1)}
}

// push appends b. It reports false once the stream has ended.
func (q *outputQueue) push(b encoder.Buffer) bool {
	q.mu.Lock()
	if q.ended || q.released {
		q.mu.Unlock()
		return false
	}
	q.bufs = append(q.bufs, b)
	q.mu.Unlock()
	q.signal()
	return true
}

// finish appends the end-of-stream buffer once.
func (q *outputQueue) finish() {
	q.mu.Lock()
	if q.ended || q.released {
		q.mu.Unlock()
		return
	}
	q.ended = true
	q.bufs = append(q.bufs, encoder.Buffer{Flags: encoder.FlagEndOfStream})
	q.mu.Unlock()
	q.signal()
}

func (q *outputQueue) release() {
	q.mu.Lock()
	q.released = true
	q.bufs = nil
	q.mu.Unlock()
	q.signal()
}

func (q *outputQueue) pop(ctx context.Context) (encoder.Buffer, error) {
	for {
		q.mu.Lock()
		switch {
		case q.released:
			q.mu.Unlock()
			return encoder.Buffer{}, encoder.ErrReleased
		case len(q.bufs) > 0:
			b := q.bufs[0]
			q.bufs[0] = encoder.Buffer{}
			q.bufs = q.bufs[1:]
			q.mu.Unlock()
			return b, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return encoder.Buffer{}, ctx.Err()
		}
	}
}

func (q *outputQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
