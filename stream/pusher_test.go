// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/videomaker/encoder"
)

// fakeSink records calls. Open fails while openErrs is not empty, and the
// next video write fails if failVideo is set.
type fakeSink struct {
	mu        sync.Mutex
	openErrs  []error
	failVideo bool
	block     chan struct{}
	opens     int
	closes    int
	open      bool
	log       []string
}

func (f *fakeSink) Open(ctx context.Context) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		return err
	}
	f.open = true
	return nil
}

func (f *fakeSink) WriteParameterSets(sps, pps []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, "params")
	return nil
}

func (f *fakeSink) WriteVideo(s encoder.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failVideo {
		f.failVideo = false
		return errors.New("broken pipe")
	}
	if s.Key {
		f.log = append(f.log, "key")
	} else {
		f.log = append(f.log, "video")
	}
	return nil
}

func (f *fakeSink) WriteAudio(encoder.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, "audio")
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.open = false
	return nil
}

func (f *fakeSink) calls() (opens, closes int, log []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes, slices.Clone(f.log)
}

func fastBackoff() Backoff {
	return Backoff{Multiplier: time.Millisecond, Max: 5 * time.Millisecond}
}

func waitState(t *testing.T, p *Pusher, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for p.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %v, want %v", p.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPusherKeyFramesCarryParameterSets(t *testing.T) {
	sink := &fakeSink{}
	p := NewPusher(sink, WithBackoff(fastBackoff()))

	// Dropped while stopped.
	p.VideoSample(encoder.Sample{Key: true})
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrAlreadyPushing) {
		t.Errorf("second Start() error = %v", err)
	}
	waitState(t, p, StatePushing)

	p.ParameterSets([]byte{0x67}, []byte{0x68})
	p.VideoSample(encoder.Sample{})          // waits for a key frame
	p.VideoSample(encoder.Sample{Key: true}) // params, key
	p.VideoSample(encoder.Sample{})
	p.AudioSample(encoder.Sample{})
	p.VideoSample(encoder.Sample{Key: true}) // params again

	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(); !errors.Is(err, ErrNotPushing) {
		t.Errorf("second Stop() error = %v", err)
	}
	_, closes, log := sink.calls()
	want := []string{"params", "key", "video", "audio", "params", "key"}
	if !slices.Equal(log, want) {
		t.Errorf("sink calls = %v, want %v", log, want)
	}
	if closes != 1 {
		t.Errorf("closes = %d, want 1", closes)
	}
	st := p.Stats()
	if st.Video != 3 || st.Audio != 1 || st.Dropped != 2 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestPusherRetriesOpen(t *testing.T) {
	sink := &fakeSink{openErrs: []error{errors.New("refused"), errors.New("refused")}}
	var (
		mu     sync.Mutex
		states []State
	)
	p := NewPusher(sink, WithBackoff(fastBackoff()), OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}))
	_ = p.Start(context.Background())
	waitState(t, p, StatePushing)
	defer p.Stop()

	opens, _, _ := sink.calls()
	if opens != 3 {
		t.Errorf("opens = %d, want 3", opens)
	}
	if got := p.Stats().Reconnects; got != 1 {
		t.Errorf("Reconnects = %d, want 1", got)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		got := slices.Clone(states)
		mu.Unlock()
		if len(got) > 0 && got[len(got)-1] == StatePushing {
			if !slices.Contains(got, StateRetrying) {
				t.Errorf("states = %v, want a retry", got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("states = %v, want pushing last", got)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPusherReconnectsAfterWriteError(t *testing.T) {
	sink := &fakeSink{}
	p := NewPusher(sink, WithBackoff(fastBackoff()))
	_ = p.Start(context.Background())
	defer p.Stop()
	waitState(t, p, StatePushing)

	sink.mu.Lock()
	sink.failVideo = true
	sink.mu.Unlock()
	p.VideoSample(encoder.Sample{Key: true})
	if st := p.State(); st != StateRetrying && st != StateConnecting && st != StatePushing {
		t.Fatalf("state after write error = %v", st)
	}
	waitState(t, p, StatePushing)

	opens, closes, _ := sink.calls()
	if opens != 2 || closes != 1 {
		t.Errorf("opens, closes = %d, %d, want 2, 1", opens, closes)
	}
}

func TestPusherStaleConnectIgnored(t *testing.T) {
	sink := &fakeSink{block: make(chan struct{})}
	p := NewPusher(sink, WithBackoff(fastBackoff()))
	_ = p.Start(context.Background())
	_ = p.Stop()

	// The first connect completes after Stop and a new Start.
	sink.mu.Lock()
	sink.block = nil
	sink.mu.Unlock()
	_ = p.Start(context.Background())
	defer p.Stop()
	waitState(t, p, StatePushing)
	if p.State() != StatePushing {
		t.Fatalf("state = %v", p.State())
	}
}

func TestPusherContextEndsPush(t *testing.T) {
	sink := &fakeSink{openErrs: []error{errors.New("refused")}}
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPusher(sink, WithBackoff(Backoff{Multiplier: time.Hour, Max: time.Hour}))
	_ = p.Start(ctx)
	waitState(t, p, StateRetrying)
	cancel()

	// The retry timer is long; the next failure notices the dead context.
	p.mu.Lock()
	st := p.failLocked(p.request.Load(), errors.New("late"))
	p.mu.Unlock()
	if st != StateStopped || p.State() != StateStopped {
		t.Errorf("state = %v, want stopped", st)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Errorf("Start() after context end error = %v", err)
	}
	_ = p.Stop()
}

func TestPusherNilSink(t *testing.T) {
	if err := NewPusher(nil).Start(context.Background()); !errors.Is(err, ErrNilSink) {
		t.Errorf("Start() error = %v, want ErrNilSink", err)
	}
}
