// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/videomaker/renderloop"
)

// session is one recording.
type session struct {
	cfg    Config
	opts   options
	logger *slog.Logger
	bridge *Bridge

	muxer  Muxer
	video  VideoEncoder
	audio  AudioEncoder
	thread *renderloop.Thread
	cancel context.CancelFunc
	group  *errgroup.Group

	// PCM queue. quit is closed once, by stop.
	pcmMu          sync.Mutex
	pcm            chan pcmChunk
	quit           chan struct{}
	audioBytes     int64
	bytesPerSecond int64

	muxMu    sync.Mutex
	expected int
	added    int
	started  bool
}

type pcmChunk struct {
	data []byte
	pts  int64
}

// track is the drain state of one encoder. It belongs to its drain
// goroutine.
type track struct {
	kind     string
	video    bool
	index    int
	added    bool
	first    int64
	hasFirst bool
	config   []byte
	params   bool
	samples  int
	dropped  int
}

type dequeuer interface {
	Dequeue(ctx context.Context) (Buffer, error)
}

func (s *session) drain(ctx context.Context, t *track, enc dequeuer) error {
	for {
		buf, err := enc.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("encoder: %s dequeue: %w", t.kind, err)
		}
		switch {
		case buf.Flags.Has(FlagFormatChanged):
			if err := s.addTrack(t, buf.Format); err != nil {
				return err
			}
		case buf.Flags.Has(FlagCodecConfig):
			t.config = bytes.Clone(buf.Data)
		case len(buf.Data) > 0:
			if err := s.write(t, buf); err != nil {
				return err
			}
		}
		if buf.Flags.Has(FlagEndOfStream) {
			s.logger.Debug("encoder: end of stream",
				"track", t.kind, "samples", t.samples, "dropped", t.dropped)
			return nil
		}
	}
}

// addTrack adds t to the muxer and starts the muxer once every expected
// track is known.
func (s *session) addTrack(t *track, f Format) error {
	if t.added {
		s.logger.Warn("encoder: output format changed again, ignored", "track", t.kind, "mime", f.Mime)
		return nil
	}
	if len(f.CodecConfig) > 0 {
		t.config = bytes.Clone(f.CodecConfig)
	}

	s.muxMu.Lock()
	defer s.muxMu.Unlock()
	idx, err := s.muxer.AddTrack(f)
	if err != nil {
		return fmt.Errorf("encoder: add %s track: %w", t.kind, err)
	}
	t.index, t.added = idx, true
	s.added++
	s.logger.Info("encoder: track added", "track", t.kind, "index", idx, "mime", f.Mime)

	if !s.started && s.added == s.expected {
		if err := s.muxer.Start(); err != nil {
			return fmt.Errorf("encoder: start muxer: %w", err)
		}
		s.started = true
		s.logger.Info("encoder: muxer started", "tracks", s.added)
	}
	return nil
}

// write appends buf to the muxer with a track-relative timestamp. Samples
// that arrive before the muxer has started are dropped.
func (s *session) write(t *track, buf Buffer) error {
	s.muxMu.Lock()
	if !t.added || !s.started {
		s.muxMu.Unlock()
		t.dropped++
		return nil
	}
	if !t.hasFirst {
		t.first, t.hasFirst = buf.PTS, true
	}
	buf.PTS -= t.first
	err := s.muxer.WriteSample(t.index, buf)
	s.muxMu.Unlock()
	if err != nil {
		return fmt.Errorf("encoder: write %s sample: %w", t.kind, err)
	}
	t.samples++

	sample := Sample{
		Data: buf.Data,
		PTS:  time.Duration(buf.PTS) * time.Microsecond,
		Key:  buf.Flags.Has(FlagKeyFrame),
	}
	if !t.video {
		if sink := s.opts.samples; sink != nil {
			sink.AudioSample(sample)
		}
		return nil
	}

	if sample.Key && !t.params {
		s.forwardParameterSets(t, buf.Data)
	}
	s.bridge.videoTime.Store(buf.PTS)
	if sink := s.opts.samples; sink != nil {
		sink.VideoSample(sample)
	}
	if fn := s.opts.onTime; fn != nil {
		fn(sample.PTS)
	}
	return nil
}

// forwardParameterSets sends the SPS and PPS of an H.264 recording,
// preferring the codec config over the key frame itself.
func (s *session) forwardParameterSets(t *track, keyFrame []byte) {
	t.params = true
	if s.cfg.Mime != MimeAVC {
		return
	}
	src := t.config
	if len(src) == 0 {
		src = keyFrame
	}
	sps, pps, ok := ParameterSets(src)
	if !ok {
		s.logger.Warn("encoder: no parameter sets at first key frame")
		return
	}
	s.logger.Debug("encoder: parameter sets", "sps", len(sps), "pps", len(pps))
	if sink := s.opts.params; sink != nil {
		sink.ParameterSets(sps, pps)
	}
}

// writeAudio splits pcm into encoder-sized chunks and queues them with
// timestamps derived from the byte count so far.
func (s *session) writeAudio(pcm []byte) error {
	if s.audio == nil {
		return ErrNoAudio
	}
	s.pcmMu.Lock()
	defer s.pcmMu.Unlock()

	limit := s.cfg.Audio.MaxInputSize
	for len(pcm) > 0 {
		n := min(len(pcm), limit)
		s.audioBytes += int64(n)
		c := pcmChunk{
			data: bytes.Clone(pcm[:n]),
			pts:  s.audioBytes * 1_000_000 / s.bytesPerSecond,
		}
		pcm = pcm[n:]

		select {
		case <-s.quit:
			return ErrNotRunning
		default:
		}
		select {
		case s.pcm <- c:
		case <-s.quit:
			return ErrNotRunning
		}
	}
	return nil
}

// feed moves queued PCM into the audio encoder. Once quit is closed it
// flushes the queue and signals end of stream.
func (s *session) feed(ctx context.Context) error {
	for {
		select {
		case c := <-s.pcm:
			s.queueAudio(c)
		case <-s.quit:
			for {
				select {
				case c := <-s.pcm:
					s.queueAudio(c)
				default:
					s.audio.SignalEndOfStream()
					return nil
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *session) queueAudio(c pcmChunk) {
	if err := s.audio.Queue(c.data, c.pts); err != nil {
		s.logger.Warn("encoder: pcm dropped", "bytes", len(c.data), "error", err)
	}
}

func (s *session) stop(ctx context.Context) error {
	var errs []error
	timedOut := false

	exited := make(chan struct{})
	s.thread.RequestExit(func() { close(exited) })
	select {
	case <-exited:
		if err := s.thread.Err(); err != nil {
			s.logger.Warn("encoder: render thread failed", "error", err)
		}
	case <-ctx.Done():
		timedOut = true
		s.logger.Warn("encoder: render thread still exiting", "error", ctx.Err())
	}

	s.video.SignalEndOfStream()
	close(s.quit)

	waited := make(chan error, 1)
	go func() { waited <- s.group.Wait() }()
	var err error
	select {
	case err = <-waited:
	case <-ctx.Done():
		timedOut = true
		s.cancel()
		err = <-waited
	}
	if err != nil {
		errs = append(errs, err)
	}
	if timedOut {
		errs = append(errs, ctx.Err())
	}

	s.muxMu.Lock()
	started := s.started
	s.muxMu.Unlock()
	if started {
		if err := s.muxer.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("encoder: stop muxer: %w", err))
		}
	} else {
		s.logger.Warn("encoder: muxer never started, nothing written", "path", s.cfg.Path)
	}
	s.release()
	return errors.Join(errs...)
}

// release frees whatever open created.
func (s *session) release() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.video != nil {
		s.video.Release()
	}
	if s.audio != nil {
		s.audio.Release()
	}
	if s.muxer != nil {
		s.muxer.Release()
	}
}
