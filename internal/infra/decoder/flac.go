package decoder

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/mewkiz/flac"
)

func init() {
	registerFormat("flac", openFLAC)
}

// flacStream buffers one decoded FLAC frame at a time.
type flacStream struct {
	s          *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	total      int64

	pending []float32
	off     int
	skip    int64 // frames to drop from the next frame after a seek
	err     error // deferred until pending data is consumed
}

func openFLAC(r io.ReadSeeker) (stream, error) {
	s, err := flac.NewSeek(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create FLAC decoder")
	}
	total := int64(s.Info.NSamples)
	if total == 0 {
		total = -1
	}
	return &flacStream{
		s:          s,
		sampleRate: int(s.Info.SampleRate),
		channels:   int(s.Info.NChannels),
		bitDepth:   int(s.Info.BitsPerSample),
		total:      total,
	}, nil
}

func (s *flacStream) SampleRate() int    { return s.sampleRate }
func (s *flacStream) Channels() int      { return s.channels }
func (s *flacStream) BitDepth() int      { return s.bitDepth }
func (s *flacStream) TotalFrames() int64 { return s.total }

func (s *flacStream) Read(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		if s.off >= len(s.pending) {
			if s.err != nil {
				break
			}
			if err := s.nextFrame(); err != nil {
				s.err = err
				break
			}
			continue
		}
		c := copy(dst[n:], s.pending[s.off:])
		n += c
		s.off += c
	}

	if n > 0 {
		return n, nil
	}
	err := s.err
	if !errors.Is(err, io.EOF) {
		s.err = nil
	}
	return 0, err
}

// nextFrame decodes the next frame into pending.
func (s *flacStream) nextFrame() error {
	frame, err := s.s.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return errors.Mark(errors.Wrap(err, "flac frame"), ErrBadPacket)
	}

	channels := min(len(frame.Subframes), s.channels)
	if channels == 0 {
		return errors.Mark(errors.New("flac frame without subframes"), ErrBadPacket)
	}
	frames := len(frame.Subframes[0].Samples)
	scale := 1 / float32(int64(1)<<(frame.BitsPerSample-1))

	size := frames * s.channels
	if cap(s.pending) < size {
		s.pending = make([]float32, size)
	}
	s.pending = s.pending[:size]
	clear(s.pending)
	for c := range channels {
		for i, v := range frame.Subframes[c].Samples[:frames] {
			s.pending[i*s.channels+c] = float32(v) * scale
		}
	}

	s.off = 0
	if s.skip > 0 {
		drop := min(s.skip, int64(frames))
		s.off = int(drop) * s.channels
		s.skip -= drop
	}
	return nil
}

func (s *flacStream) SeekFrame(frame int64) (int64, error) {
	start, err := s.s.Seek(uint64(frame))
	if err != nil {
		return 0, errors.Wrap(err, "flac seek")
	}
	s.pending = s.pending[:0]
	s.off = 0
	s.err = nil
	s.skip = frame - int64(start)
	return frame, nil
}
