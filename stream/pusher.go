// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/encoder"
)

// Pusher errors.
var (
	ErrAlreadyPushing = errors.New("stream: already pushing")
	ErrNotPushing     = errors.New("stream: not pushing")
	ErrNilSink        = errors.New("stream: nil sink")
)

// State is the connection state of a Pusher.
type State int32

// Pusher states.
const (
	StateStopped State = iota
	StateConnecting
	StatePushing
	StateRetrying
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateConnecting:
		return "connecting"
	case StatePushing:
		return "pushing"
	case StateRetrying:
		return "retrying"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// PusherOption configures a Pusher.
type PusherOption func(*Pusher)

// WithBackoff sets the reconnect timing.
func WithBackoff(b Backoff) PusherOption {
	return func(p *Pusher) { p.backoff = b }
}

// OnStateChange registers fn to be called after every state transition.
// fn must not call back into the Pusher.
func OnStateChange(fn func(State)) PusherOption {
	return func(p *Pusher) { p.onState = fn }
}

// WithLogger sets the logger used instead of videomaker.Logger().
func WithLogger(l *slog.Logger) PusherOption {
	return func(p *Pusher) { p.logger = l }
}

// Stats counts what a Pusher did with the samples it was given.
type Stats struct {
	Video      uint64
	Audio      uint64
	Dropped    uint64
	Reconnects uint64
}

// Pusher forwards samples to a Sink and reconnects it on failure.
//
// It implements encoder.SampleSink and encoder.ParameterSetSink. Every
// Start and Stop starts a new request; connect attempts and retry timers
// of an older request are ignored.
type Pusher struct {
	sink    Sink
	backoff Backoff
	onState func(State)
	logger  *slog.Logger

	request atomic.Uint64

	mu       sync.Mutex
	state    State
	ctx      context.Context
	cancel   context.CancelFunc
	sps, pps []byte
	waitKey  bool
	retries  int
	timer    *time.Timer
	stats    Stats
}

var (
	_ encoder.SampleSink       = (*Pusher)(nil)
	_ encoder.ParameterSetSink = (*Pusher)(nil)
)

// NewPusher returns a stopped pusher writing to sink.
func NewPusher(sink Sink, opts ...PusherOption) *Pusher {
	p := &Pusher{sink: sink, backoff: DefaultBackoff()}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = videomaker.Logger()
	}
	return p
}

// Start connects the sink in the background. Connect failures are
// retried until Stop. ctx bounds the whole push, not just the first
// connect.
func (p *Pusher) Start(ctx context.Context) error {
	if p.sink == nil {
		return ErrNilSink
	}
	p.mu.Lock()
	if p.state != StateStopped {
		p.mu.Unlock()
		return ErrAlreadyPushing
	}
	id := p.request.Add(1)
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.retries = 0
	p.setState(StateConnecting)
	p.mu.Unlock()
	p.notify(StateConnecting)

	p.logger.Info("stream: push started", "request", id)
	go p.connect(id)
	return nil
}

// Stop disconnects the sink and cancels pending retries.
func (p *Pusher) Stop() error {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return ErrNotPushing
	}
	p.request.Add(1)
	connected := p.state == StatePushing
	p.stopLocked()
	var err error
	if connected {
		err = p.sink.Close()
	}
	p.mu.Unlock()
	p.notify(StateStopped)

	p.logger.Info("stream: push stopped", "stats", p.Stats())
	return err
}

// stopLocked cancels the current request. p.mu must be held.
func (p *Pusher) stopLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.setState(StateStopped)
}

// State returns the connection state.
func (p *Pusher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns a snapshot of the counters.
func (p *Pusher) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// ParameterSets implements encoder.ParameterSetSink. The sets are resent
// ahead of every key frame.
func (p *Pusher) ParameterSets(sps, pps []byte) {
	p.mu.Lock()
	p.sps, p.pps = bytes.Clone(sps), bytes.Clone(pps)
	p.mu.Unlock()
}

// VideoSample implements encoder.SampleSink. Samples are dropped while
// disconnected, and after a (re)connect until the next key frame.
func (p *Pusher) VideoSample(s encoder.Sample) {
	p.mu.Lock()
	if p.state != StatePushing || (p.waitKey && !s.Key) {
		p.stats.Dropped++
		p.mu.Unlock()
		return
	}
	var err error
	if s.Key {
		p.waitKey = false
		if p.sps != nil {
			err = p.sink.WriteParameterSets(p.sps, p.pps)
		}
	}
	if err == nil {
		err = p.sink.WriteVideo(s)
	}
	if err == nil {
		p.stats.Video++
		p.mu.Unlock()
		return
	}
	st := p.failLocked(p.request.Load(), err)
	p.mu.Unlock()
	p.notify(st)
}

// AudioSample implements encoder.SampleSink.
func (p *Pusher) AudioSample(s encoder.Sample) {
	p.mu.Lock()
	if p.state != StatePushing {
		p.stats.Dropped++
		p.mu.Unlock()
		return
	}
	if err := p.sink.WriteAudio(s); err != nil {
		st := p.failLocked(p.request.Load(), err)
		p.mu.Unlock()
		p.notify(st)
		return
	}
	p.stats.Audio++
	p.mu.Unlock()
}

// connect opens the sink for request id.
func (p *Pusher) connect(id uint64) {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()
	if ctx == nil || p.request.Load() != id {
		return
	}

	err := p.sink.Open(ctx)

	p.mu.Lock()
	if p.request.Load() != id || p.state == StateStopped {
		p.mu.Unlock()
		p.logger.Debug("stream: stale connect result ignored", "request", id, "error", err)
		if err == nil {
			_ = p.sink.Close()
		}
		return
	}
	var st State
	if err != nil {
		st = p.failLocked(id, fmt.Errorf("stream: open: %w", err))
	} else {
		if p.retries > 0 {
			p.stats.Reconnects++
		}
		p.retries = 0
		p.waitKey = true
		st = p.setState(StatePushing)
		p.logger.Info("stream: connected", "request", id)
	}
	p.mu.Unlock()
	p.notify(st)
}

// failLocked closes a broken connection and schedules a reconnect. p.mu
// must be held.
func (p *Pusher) failLocked(id uint64, err error) State {
	if p.state == StatePushing {
		if cerr := p.sink.Close(); cerr != nil {
			p.logger.Debug("stream: close after failure", "error", cerr)
		}
	}
	if p.ctx.Err() != nil {
		p.logger.Warn("stream: push ended", "error", err)
		p.stopLocked()
		return StateStopped
	}
	delay := p.backoff.Next(p.retries)
	p.logger.Warn("stream: disconnected, retrying", "error", err, "retry", p.retries, "delay", delay)
	p.retries++
	p.timer = time.AfterFunc(delay, func() {
		p.mu.Lock()
		if p.request.Load() != id || p.state != StateRetrying {
			p.mu.Unlock()
			return
		}
		st := p.setState(StateConnecting)
		p.mu.Unlock()
		p.notify(st)
		p.connect(id)
	})
	return p.setState(StateRetrying)
}

// setState records st and returns it. p.mu must be held.
func (p *Pusher) setState(st State) State {
	p.state = st
	return st
}

func (p *Pusher) notify(st State) {
	if p.onState != nil {
		p.onState(st)
	}
}
