// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"math"
	"math/rand/v2"
	"time"
)

// Default reconnect timing.
const (
	DefaultMultiplier = 20 * time.Second
	DefaultMaxDelay   = 2 * time.Minute
	DefaultJitter     = 10 * time.Second
)

// Backoff computes exponential reconnect delays.
type Backoff struct {
	// Multiplier is the delay of retry 0.
	Multiplier time.Duration

	// Max caps Delay.
	Max time.Duration

	// Jitter is the upper bound of the random delay Next adds.
	Jitter time.Duration
}

// DefaultBackoff returns the reconnect timing used by NewPusher.
func DefaultBackoff() Backoff {
	return Backoff{Multiplier: DefaultMultiplier, Max: DefaultMaxDelay, Jitter: DefaultJitter}
}

// Delay returns Multiplier·2^retry rounded to the nanosecond and clamped to
// [0, Max].
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	d := math.Round(float64(b.Multiplier) * math.Pow(2, float64(retry)))
	switch {
	case d <= 0:
		return 0
	case d >= float64(b.Max), math.IsInf(d, 1):
		return max(b.Max, 0)
	}
	return time.Duration(d)
}

// Next returns Delay(retry) plus a random jitter in [0, Jitter).
func (b Backoff) Next(retry int) time.Duration {
	d := b.Delay(retry)
	if b.Jitter > 0 {
		d += rand.N(b.Jitter)
	}
	return d
}
