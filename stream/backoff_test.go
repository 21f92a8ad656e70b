// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	b := DefaultBackoff()
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{-1, 20 * time.Second},
		{0, 20 * time.Second},
		{1, 40 * time.Second},
		{2, 80 * time.Second},
		{3, 2 * time.Minute},
		{10, 2 * time.Minute},
		{2000, 2 * time.Minute},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.retry); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}

	if got := (Backoff{Multiplier: -time.Second, Max: time.Minute}).Delay(3); got != 0 {
		t.Errorf("negative multiplier Delay() = %v, want 0", got)
	}
	if got := (Backoff{Multiplier: time.Second}).Delay(0); got != 0 {
		t.Errorf("zero max Delay() = %v, want 0", got)
	}
	if got := (Backoff{Multiplier: 1500 * time.Microsecond, Max: time.Second}).Delay(1); got != 3*time.Millisecond {
		t.Errorf("Delay(1) = %v, want 3ms", got)
	}
}

func TestBackoffJitter(t *testing.T) {
	b := Backoff{Multiplier: time.Second, Max: time.Minute, Jitter: 10 * time.Second}
	for range 100 {
		d := b.Next(1)
		if d < 2*time.Second || d >= 12*time.Second {
			t.Fatalf("Next(1) = %v, want in [2s, 12s)", d)
		}
	}
	b.Jitter = 0
	if d := b.Next(1); d != 2*time.Second {
		t.Errorf("Next(1) without jitter = %v", d)
	}
}
