package decoder

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/go-audio/wav"
)

func init() {
	registerFormat("wav", openWAV)
}

const wavFormatFloat = 3

// wavStream reads the data chunk directly so it can seek by byte offset.
type wavStream struct {
	r          io.ReadSeeker
	sampleRate int
	channels   int
	bitDepth   int
	frameBytes int64
	start      int64 // offset of the first PCM byte
	length     int64 // data chunk length in bytes
	pos        int64 // bytes consumed from the data chunk
	convert    pcmConverter
	raw        []byte
}

func openWAV(r io.ReadSeeker) (stream, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.Wrap(ErrUnsupportedFormat, "invalid WAV file")
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, errors.Wrap(err, "failed to seek to PCM data")
	}
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "failed to locate PCM data")
	}

	bitDepth := int(d.BitDepth)
	convert := newPCMConverter(bitDepth, d.WavAudioFormat == wavFormatFloat)
	if convert == nil {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "WAV format %d with %d-bit samples", d.WavAudioFormat, bitDepth)
	}

	channels := int(d.NumChans)
	frameBytes := int64(channels * bitDepth / 8)
	length := d.PCMLen()
	length -= length % frameBytes

	return &wavStream{
		r:          r,
		sampleRate: int(d.SampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
		frameBytes: frameBytes,
		start:      start,
		length:     length,
		convert:    convert,
	}, nil
}

func (s *wavStream) SampleRate() int    { return s.sampleRate }
func (s *wavStream) Channels() int      { return s.channels }
func (s *wavStream) BitDepth() int      { return s.bitDepth }
func (s *wavStream) TotalFrames() int64 { return s.length / s.frameBytes }

func (s *wavStream) Read(dst []float32) (int, error) {
	remaining := s.length - s.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	frames := min(int64(len(dst)/s.channels), remaining/s.frameBytes)
	need := int(frames * s.frameBytes)
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]

	n, err := io.ReadFull(s.r, raw)
	s.pos += int64(n)
	whole := n / int(s.frameBytes) * s.channels
	s.convert(raw, dst[:whole])
	return whole, err
}

func (s *wavStream) SeekFrame(frame int64) (int64, error) {
	off := min(frame*s.frameBytes, s.length)
	if _, err := s.r.Seek(s.start+off, io.SeekStart); err != nil {
		return 0, errors.Wrap(err, "wav seek")
	}
	s.pos = off
	return off / s.frameBytes, nil
}
