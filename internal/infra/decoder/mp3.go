package decoder

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/hajimehoshi/go-mp3"
)

func init() {
	registerFormat("mp3", openMP3)
}

// go-mp3 always produces 16-bit little-endian stereo.
const mp3FrameBytes = 4

type mp3Stream struct {
	d   *mp3.Decoder
	raw []byte
}

func openMP3(r io.ReadSeeker) (stream, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create MP3 decoder")
	}
	return &mp3Stream{d: d}, nil
}

func (s *mp3Stream) SampleRate() int { return s.d.SampleRate() }
func (s *mp3Stream) Channels() int   { return 2 }
func (s *mp3Stream) BitDepth() int   { return 16 }

func (s *mp3Stream) TotalFrames() int64 {
	if n := s.d.Length(); n >= 0 {
		return n / mp3FrameBytes
	}
	return -1
}

func (s *mp3Stream) Read(dst []float32) (int, error) {
	need := len(dst) / 2 * mp3FrameBytes
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]

	n, err := io.ReadFull(s.d, raw)
	frames := n / mp3FrameBytes
	for i := range frames * 2 {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) * int16Scale
	}

	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return frames * 2, err
	default:
		return frames * 2, errors.Mark(errors.Wrap(err, "mp3 frame"), ErrBadPacket)
	}
}

func (s *mp3Stream) SeekFrame(frame int64) (int64, error) {
	pos, err := s.d.Seek(frame*mp3FrameBytes, io.SeekStart)
	if err != nil {
		return 0, errors.Wrap(err, "mp3 seek")
	}
	return pos / mp3FrameBytes, nil
}
