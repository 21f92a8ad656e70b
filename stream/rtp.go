// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"

	"github.com/gogpu/videomaker"
	"github.com/gogpu/videomaker/encoder"
)

// RTP defaults.
const (
	DefaultMTU              = 1200
	DefaultVideoPayloadType = 96
	DefaultAudioPayloadType = 97
	DefaultAudioClockRate   = 44100

	videoClockRate = 90000
	rtpVersion     = 2
)

// RTPSink errors.
var (
	ErrNotOpen      = errors.New("stream: sink not open")
	ErrVideoMime    = errors.New("stream: video mime has no RTP payload")
	ErrJPEGTooLarge = errors.New("stream: jpeg too large for one RTP frame")
)

// Dialer opens the transport an RTPSink writes datagrams to.
type Dialer func(ctx context.Context, addr string) (io.WriteCloser, error)

// RTPOption configures an RTPSink.
type RTPOption func(*RTPSink)

// WithDialer replaces the UDP dialer.
func WithDialer(d Dialer) RTPOption {
	return func(s *RTPSink) { s.dial = d }
}

// WithMTU sets the largest datagram payload.
func WithMTU(mtu int) RTPOption {
	return func(s *RTPSink) {
		if mtu > 64 && mtu <= 65507 {
			s.mtu = mtu
		}
	}
}

// WithPayloadTypes sets the dynamic payload types of both streams.
func WithPayloadTypes(video, audio uint8) RTPOption {
	return func(s *RTPSink) { s.video.pt, s.audio.pt = video&0x7f, audio&0x7f }
}

// WithAudioClockRate sets the RTP clock of the audio stream.
func WithAudioClockRate(hz uint32) RTPOption {
	return func(s *RTPSink) {
		if hz > 0 {
			s.audio.clock = hz
		}
	}
}

// WithRTPLogger sets the logger used instead of videomaker.Logger().
func WithRTPLogger(l *slog.Logger) RTPOption {
	return func(s *RTPSink) { s.logger = l }
}

// rtpStream is the header state of one SSRC.
type rtpStream struct {
	pt      uint8
	clock   uint32
	ssrc    uint32
	seq     uint16
	packets uint64
}

func (st *rtpStream) timestamp(s encoder.Sample) uint32 {
	return uint32(s.PTS.Microseconds() * int64(st.clock) / 1_000_000)
}

// packet builds the next packet of st.
func (st *rtpStream) packet(ts uint32, marker bool, payload []byte) *rtp.Packet {
	p := &rtp.Packet{
		Header: rtp.Header{
			Version:        rtpVersion,
			Marker:         marker,
			PayloadType:    st.pt,
			SequenceNumber: st.seq,
			Timestamp:      ts,
			SSRC:           st.ssrc,
		},
		Payload: payload,
	}
	st.seq++
	st.packets++
	return p
}

// RTPSink sends samples as RTP over UDP. H.264 uses the RFC 6184
// payloader of pion/rtp; JPEG frames are fragmented behind an RFC 2435
// main header. Audio is sent as-is, split to the MTU.
type RTPSink struct {
	addr   string
	mime   string
	mtu    int
	dial   Dialer
	logger *slog.Logger

	mu     sync.Mutex
	conn   io.WriteCloser
	video  rtpStream
	audio  rtpStream
	params [][]byte
	h264   codecs.H264Payloader
}

var _ Sink = (*RTPSink)(nil)

// NewRTPSink returns a sink sending to the UDP address addr. mime selects
// the video payload format, encoder.MimeAVC or encoder.MimeMJPEG.
func NewRTPSink(addr, mime string, opts ...RTPOption) *RTPSink {
	s := &RTPSink{
		addr:  addr,
		mime:  mime,
		mtu:   DefaultMTU,
		dial:  dialUDP,
		video: rtpStream{pt: DefaultVideoPayloadType, clock: videoClockRate},
		audio: rtpStream{pt: DefaultAudioPayloadType, clock: DefaultAudioClockRate},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = videomaker.Logger()
	}
	return s
}

func dialUDP(ctx context.Context, addr string) (io.WriteCloser, error) {
	var d net.Dialer
	return d.DialContext(ctx, "udp", addr)
}

// Open implements Sink. Every connection starts new SSRCs and random
// sequence numbers.
func (s *RTPSink) Open(ctx context.Context) error {
	if s.mime != encoder.MimeAVC && s.mime != encoder.MimeMJPEG {
		return fmt.Errorf("%w: %q", ErrVideoMime, s.mime)
	}
	conn, err := s.dial(ctx, s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = conn
	s.params = nil
	for _, st := range []*rtpStream{&s.video, &s.audio} {
		st.ssrc = rand.Uint32()
		st.seq = uint16(rand.Uint32())
		st.packets = 0
	}
	s.logger.Info("stream: rtp open", "addr", s.addr, "mime", s.mime,
		"video_ssrc", s.video.ssrc, "audio_ssrc", s.audio.ssrc)
	return nil
}

// WriteParameterSets implements Sink. The sets go out right before the
// next video frame, with its timestamp.
func (s *RTPSink) WriteParameterSets(sps, pps []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotOpen
	}
	if s.mime != encoder.MimeAVC {
		return nil
	}
	s.params = [][]byte{bytes.Clone(sps), bytes.Clone(pps)}
	return nil
}

// WriteVideo implements Sink.
func (s *RTPSink) WriteVideo(smp encoder.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotOpen
	}
	ts := s.video.timestamp(smp)
	mtu := uint16(s.mtu - rtpHeaderSize)

	var payloads [][]byte
	switch s.mime {
	case encoder.MimeAVC:
		for _, nal := range s.params {
			if len(nal) > 0 {
				if err := s.send(s.video.packet(ts, false, nal)); err != nil {
					return err
				}
			}
		}
		s.params = nil
		payloads = s.h264.Payload(mtu, smp.Data)
	default:
		var err error
		if payloads, err = jpegPayloads(int(mtu), smp.Data); err != nil {
			return err
		}
	}
	for i, pl := range payloads {
		if err := s.send(s.video.packet(ts, i == len(payloads)-1, pl)); err != nil {
			return err
		}
	}
	return nil
}

// WriteAudio implements Sink.
func (s *RTPSink) WriteAudio(smp encoder.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotOpen
	}
	ts := s.audio.timestamp(smp)
	limit := s.mtu - rtpHeaderSize
	data := smp.Data
	for len(data) > 0 {
		n := min(len(data), limit)
		if err := s.send(s.audio.packet(ts, n == len(data), data[:n])); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// Close implements Sink.
func (s *RTPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.logger.Info("stream: rtp closed", "addr", s.addr,
		"video_packets", s.video.packets, "audio_packets", s.audio.packets)
	return err
}

func (s *RTPSink) send(p *rtp.Packet) error {
	raw, err := p.Marshal()
	if err != nil {
		return fmt.Errorf("stream: marshal rtp: %w", err)
	}
	if _, err := s.conn.Write(raw); err != nil {
		return fmt.Errorf("stream: send rtp: %w", err)
	}
	return nil
}

const (
	rtpHeaderSize     = 12
	jpegHeaderSize    = 8
	jpegType          = 1
	jpegQuality       = 255
	jpegMaxDimension  = 2040
	jpegMaxFragOffset = 1<<24 - 1
)

// jpegPayloads splits a JPEG frame into RTP payloads. Each payload starts
// with the 8 byte main header: type-specific, 24 bit fragment offset,
// type, Q, width/8 and height/8. The frame is carried whole after it.
func jpegPayloads(mtu int, frame []byte) ([][]byte, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("stream: jpeg header: %w", err)
	}
	if cfg.Width > jpegMaxDimension || cfg.Height > jpegMaxDimension || len(frame) > jpegMaxFragOffset {
		return nil, fmt.Errorf("%w: %dx%d, %d bytes", ErrJPEGTooLarge, cfg.Width, cfg.Height, len(frame))
	}
	chunk := mtu - jpegHeaderSize
	var out [][]byte
	for off := 0; off < len(frame); off += chunk {
		end := min(off+chunk, len(frame))
		pl := make([]byte, jpegHeaderSize+end-off)
		binary.BigEndian.PutUint32(pl[0:4], uint32(off)) // type-specific byte stays 0
		pl[4] = jpegType
		pl[5] = jpegQuality
		pl[6] = byte((cfg.Width + 7) / 8)
		pl[7] = byte((cfg.Height + 7) / 8)
		copy(pl[jpegHeaderSize:], frame[off:end])
		out = append(out, pl)
	}
	return out, nil
}
