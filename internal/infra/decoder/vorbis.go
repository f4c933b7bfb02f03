package decoder

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/jfreymuth/oggvorbis"
)

func init() {
	registerFormat("ogg", openVorbis)
}

type vorbisStream struct {
	r *oggvorbis.Reader
}

func openVorbis(r io.ReadSeeker) (stream, error) {
	vr, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Vorbis decoder")
	}
	return &vorbisStream{r: vr}, nil
}

func (s *vorbisStream) SampleRate() int { return s.r.SampleRate() }
func (s *vorbisStream) Channels() int   { return s.r.Channels() }
func (s *vorbisStream) BitDepth() int   { return 0 }

func (s *vorbisStream) TotalFrames() int64 {
	if n := s.r.Length(); n > 0 {
		return n
	}
	return -1
}

func (s *vorbisStream) Read(dst []float32) (int, error) {
	n, err := s.r.Read(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return n, err
	default:
		return n, errors.Mark(errors.Wrap(err, "vorbis packet"), ErrBadPacket)
	}
}

func (s *vorbisStream) SeekFrame(frame int64) (int64, error) {
	if err := s.r.SetPosition(frame); err != nil {
		return 0, errors.Wrap(err, "vorbis seek")
	}
	return s.r.Position(), nil
}
