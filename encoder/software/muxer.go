// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/videomaker/encoder"
)

var _ encoder.Muxer = (*DirMuxer)(nil)

// IndexName is the name of the index file DirMuxer writes on Stop.
const IndexName = "index.toml"

// Index describes the contents of a DirMuxer directory.
type Index struct {
	Tracks []IndexTrack `toml:"track"`
}

// IndexTrack describes one track. Frame tracks store one file per sample;
// stream tracks append every sample to File.
type IndexTrack struct {
	Mime          string        `toml:"mime"`
	Width         int           `toml:"width,omitempty"`
	Height        int           `toml:"height,omitempty"`
	SampleRate    int           `toml:"sample_rate,omitempty"`
	Channels      int           `toml:"channels,omitempty"`
	BitsPerSample int           `toml:"bits_per_sample,omitempty"`
	File          string        `toml:"file,omitempty"`
	Samples       []IndexSample `toml:"sample"`
}

// IndexSample locates one sample.
type IndexSample struct {
	File   string `toml:"file,omitempty"`
	Offset int64  `toml:"offset"`
	Size   int    `toml:"size"`
	PTS    int64  `toml:"pts_us"`
	Key    bool   `toml:"key,omitempty"`
}

// ReadIndex loads the index of a directory written by DirMuxer.
func ReadIndex(dir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(dir, IndexName))
	if err != nil {
		return nil, err
	}
	var idx Index
	if err := toml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("software: read index: %w", err)
	}
	return &idx, nil
}

// DirMuxer writes tracks into a directory. JPEG video samples become
// track<N>/<seq>.jpg files, other tracks are appended to track<N>.<ext>.
type DirMuxer struct {
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	tracks   []*dirTrack
	started  bool
	stopped  bool
	released bool
}

type dirTrack struct {
	IndexTrack
	frames bool
	file   *os.File
	offset int64
}

// NewDirMuxer returns a muxer writing into dir. The directory is created
// on Start.
func NewDirMuxer(dir string, opts ...Option) *DirMuxer {
	o := newOptions(opts)
	return &DirMuxer{dir: dir, logger: o.logger}
}

// Dir returns the output directory.
func (m *DirMuxer) Dir() string { return m.dir }

// AddTrack implements encoder.Muxer.
func (m *DirMuxer) AddTrack(f encoder.Format) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.released:
		return -1, encoder.ErrReleased
	case m.started:
		return -1, ErrAlreadyStarted
	}
	n := len(m.tracks)
	t := &dirTrack{
		IndexTrack: IndexTrack{
			Mime:          f.Mime,
			Width:         f.Width,
			Height:        f.Height,
			SampleRate:    f.SampleRate,
			Channels:      f.Channels,
			BitsPerSample: f.BitsPerSample,
		},
		frames: f.Mime == encoder.MimeMJPEG,
	}
	if !t.frames {
		t.File = fmt.Sprintf("track%d%s", n, streamExt(f.Mime))
	}
	m.tracks = append(m.tracks, t)
	return n, nil
}

func streamExt(mime string) string {
	switch mime {
	case encoder.MimeAVC:
		return ".h264"
	case encoder.MimeHEVC:
		return ".h265"
	case encoder.MimeAAC:
		return ".aac"
	case encoder.MimeRawAudio:
		return ".pcm"
	default:
		return ".bin"
	}
}

// Start implements encoder.Muxer.
func (m *DirMuxer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.released:
		return encoder.ErrReleased
	case m.started:
		return ErrAlreadyStarted
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("software: create output: %w", err)
	}
	for i, t := range m.tracks {
		if t.frames {
			if err := os.MkdirAll(filepath.Join(m.dir, fmt.Sprintf("track%d", i)), 0o755); err != nil {
				return fmt.Errorf("software: create track dir: %w", err)
			}
			continue
		}
		f, err := os.Create(filepath.Join(m.dir, t.File))
		if err != nil {
			m.closeFiles()
			return fmt.Errorf("software: create track file: %w", err)
		}
		t.file = f
	}
	m.started = true
	m.logger.Info("software: muxer started", "dir", m.dir, "tracks", len(m.tracks))
	return nil
}

// WriteSample implements encoder.Muxer.
func (m *DirMuxer) WriteSample(track int, b encoder.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.released:
		return encoder.ErrReleased
	case !m.started:
		return ErrNotStarted
	case m.stopped:
		return ErrStopped
	case track < 0 || track >= len(m.tracks):
		return fmt.Errorf("%w: %d", ErrUnknownTrack, track)
	}
	t := m.tracks[track]
	s := IndexSample{Size: len(b.Data), PTS: b.PTS, Key: b.Flags.Has(encoder.FlagKeyFrame)}
	if t.frames {
		s.File = filepath.ToSlash(filepath.Join(fmt.Sprintf("track%d", track), fmt.Sprintf("%06d.jpg", len(t.Samples))))
		if err := os.WriteFile(filepath.Join(m.dir, s.File), b.Data, 0o644); err != nil {
			return fmt.Errorf("software: write sample: %w", err)
		}
	} else {
		s.Offset = t.offset
		if _, err := t.file.Write(b.Data); err != nil {
			return fmt.Errorf("software: write sample: %w", err)
		}
		t.offset += int64(len(b.Data))
	}
	t.Samples = append(t.Samples, s)
	return nil
}

// Stop implements encoder.Muxer. It closes the track files and writes the
// index.
func (m *DirMuxer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.released:
		return encoder.ErrReleased
	case !m.started:
		return ErrNotStarted
	case m.stopped:
		return nil
	}
	m.stopped = true
	err := m.closeFiles()

	idx := Index{Tracks: make([]IndexTrack, len(m.tracks))}
	for i, t := range m.tracks {
		idx.Tracks[i] = t.IndexTrack
	}
	data, merr := toml.Marshal(idx)
	if merr != nil {
		return errors.Join(err, fmt.Errorf("software: encode index: %w", merr))
	}
	if werr := os.WriteFile(filepath.Join(m.dir, IndexName), data, 0o644); werr != nil {
		return errors.Join(err, fmt.Errorf("software: write index: %w", werr))
	}
	m.logger.Info("software: muxer stopped", "dir", m.dir)
	return err
}

// Release implements encoder.Muxer. An unstopped muxer loses its index.
func (m *DirMuxer) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return
	}
	m.released = true
	if err := m.closeFiles(); err != nil {
		m.logger.Warn("software: close track files", "error", err)
	}
}

func (m *DirMuxer) closeFiles() error {
	var errs []error
	for _, t := range m.tracks {
		if t.file == nil {
			continue
		}
		if err := t.file.Close(); err != nil {
			errs = append(errs, err)
		}
		t.file = nil
	}
	return errors.Join(errs...)
}
