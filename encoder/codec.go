// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package encoder

import (
	"context"
	"errors"
	"strings"

	"github.com/gogpu/videomaker/gpucore"
)

// Codec errors.
var (
	// ErrUnsupportedMime is returned for mime types no encoder handles.
	ErrUnsupportedMime = errors.New("encoder: unsupported mime type")

	// ErrEndOfStream is returned by Queue after SignalEndOfStream.
	ErrEndOfStream = errors.New("encoder: end of stream")

	// ErrReleased is returned by encoders and muxers after Release.
	ErrReleased = errors.New("encoder: released")
)

// Mime types.
const (
	MimeAVC      = "video/avc"
	MimeHEVC     = "video/hevc"
	MimeMJPEG    = "video/x-motion-jpeg"
	MimeAAC      = "audio/mp4a-latm"
	MimeRawAudio = "audio/raw"
)

// IsVideoMime reports whether mime is a known video type.
func IsVideoMime(mime string) bool {
	switch mime {
	case MimeAVC, MimeHEVC, MimeMJPEG:
		return true
	}
	return false
}

// IsAudioMime reports whether mime is a known audio type.
func IsAudioMime(mime string) bool {
	switch mime {
	case MimeAAC, MimeRawAudio:
		return true
	}
	return false
}

// Flags describe an encoded buffer.
type Flags uint32

// Buffer flags.
const (
	// FlagKeyFrame marks a buffer that decodes without earlier buffers.
	FlagKeyFrame Flags = 1 << iota

	// FlagCodecConfig marks codec setup data, not media.
	FlagCodecConfig

	// FlagEndOfStream marks the last buffer of an encoder.
	FlagEndOfStream

	// FlagFormatChanged marks a buffer that only carries the output Format.
	FlagFormatChanged
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// String lists the set flags, e.g. "key|eos".
func (f Flags) String() string {
	var parts []string
	for _, n := range []struct {
		flag Flags
		name string
	}{
		{FlagKeyFrame, "key"},
		{FlagCodecConfig, "config"},
		{FlagEndOfStream, "eos"},
		{FlagFormatChanged, "format"},
	} {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Format describes an encoder configuration or an output track.
type Format struct {
	Mime string

	// Video.
	Width          int
	Height         int
	FrameRate      int
	IFrameInterval int // seconds

	// Audio.
	SampleRate    int
	Channels      int
	BitsPerSample int
	MaxInputSize  int

	BitRate int

	// CodecConfig holds setup data reported with the output format, such
	// as Annex-B SPS and PPS units.
	CodecConfig []byte
}

// IsVideo reports whether f describes a video track.
func (f Format) IsVideo() bool { return IsVideoMime(f.Mime) }

// Buffer is one encoded output buffer.
type Buffer struct {
	Data   []byte
	PTS    int64 // microseconds
	Flags  Flags
	Format Format // set with FlagFormatChanged
}

// VideoEncoder encodes frames presented to its input surface.
type VideoEncoder interface {
	// InputSurface returns the drawable a render thread presents to.
	InputSurface() gpucore.NativeWindow

	// Start begins accepting frames.
	Start() error

	// Dequeue blocks until an output buffer is ready or ctx is done.
	Dequeue(ctx context.Context) (Buffer, error)

	// SignalEndOfStream makes the encoder emit a FlagEndOfStream buffer
	// after the pending output. Later frames are dropped.
	SignalEndOfStream()

	// Release frees the encoder. It is safe to call more than once.
	Release()
}

// AudioEncoder encodes PCM buffers.
type AudioEncoder interface {
	// Start begins accepting input.
	Start() error

	// Queue submits pcm with a presentation time in microseconds.
	Queue(pcm []byte, pts int64) error

	// Dequeue blocks until an output buffer is ready or ctx is done.
	Dequeue(ctx context.Context) (Buffer, error)

	// SignalEndOfStream makes the encoder emit a FlagEndOfStream buffer
	// after the pending output.
	SignalEndOfStream()

	// Release frees the encoder. It is safe to call more than once.
	Release()
}

// Muxer interleaves encoded tracks into a container.
type Muxer interface {
	// AddTrack registers a track and returns its index. Tracks can only
	// be added before Start.
	AddTrack(f Format) (int, error)

	// Start begins the container. WriteSample is only valid afterwards.
	Start() error

	// WriteSample appends b to track.
	WriteSample(track int, b Buffer) error

	// Stop finishes the container.
	Stop() error

	// Release frees the muxer. It is safe to call more than once.
	Release()
}

// Codecs creates encoders and muxers.
type Codecs interface {
	NewVideoEncoder(f Format) (VideoEncoder, error)
	NewAudioEncoder(f Format) (AudioEncoder, error)
	NewMuxer(path string) (Muxer, error)
}
