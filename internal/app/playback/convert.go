package playback

import (
	"github.com/ik5/audpbx/audio"

	"github.com/osa030/oneamp/internal/infra/decoder"
)

// decoderSource exposes a Decoder as an audio.Source. Reads return whole
// frames from the decoder chunk, carrying the remainder to the next call.
type decoderSource struct {
	dec     *decoder.Decoder
	pending []float32
	err     error
}

func (s *decoderSource) SampleRate() int { return s.dec.SampleRate() }
func (s *decoderSource) Channels() int   { return s.dec.Channels() }
func (s *decoderSource) BufSize() int    { return len(s.pending) }

// Close is a no-op; the controller owns the decoder.
func (s *decoderSource) Close() error { return nil }

func (s *decoderSource) ReadSamples(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		if len(s.pending) == 0 {
			if s.err != nil {
				break
			}
			chunk, err := s.dec.DecodeNext()
			if err != nil {
				s.err = err
				break
			}
			// Bad packets yield empty chunks; the decoder gives up on its own
			// after too many in a row.
			s.pending = chunk
			continue
		}
		c := copy(dst[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	if n > 0 {
		return n, nil
	}
	return 0, s.err
}

// channelMapper converts interleaved frames to a different channel count.
// Channels beyond the source are filled by repeating source channels and
// extra source channels are dropped.
type channelMapper struct {
	src      audio.Source
	channels int
	tmp      []float32
}

func newChannelMapper(src audio.Source, channels int) *channelMapper {
	return &channelMapper{src: src, channels: channels}
}

func (m *channelMapper) SampleRate() int { return m.src.SampleRate() }
func (m *channelMapper) Channels() int   { return m.channels }
func (m *channelMapper) BufSize() int    { return m.src.BufSize() }
func (m *channelMapper) Close() error    { return m.src.Close() }

func (m *channelMapper) ReadSamples(dst []float32) (int, error) {
	in := m.src.Channels()
	frames := len(dst) / m.channels
	need := frames * in
	if cap(m.tmp) < need {
		m.tmp = make([]float32, need)
	}
	n, err := m.src.ReadSamples(m.tmp[:need])
	got := n / in
	for f := range got {
		for c := range m.channels {
			dst[f*m.channels+c] = m.tmp[f*in+c%in]
		}
	}
	return got * m.channels, err
}

// chunkReader yields decoded chunks in the sink format. When the formats
// already match it hands out decoder chunks directly.
type chunkReader struct {
	dec      *decoder.Decoder
	src      audio.Source
	channels int
	buf      []float32
}

func newChunkReader(dec *decoder.Decoder, sampleRate, channels, chunkFrames int) *chunkReader {
	r := &chunkReader{dec: dec, channels: channels}
	if dec.SampleRate() == sampleRate && dec.Channels() == channels {
		return r
	}

	var src audio.Source = &decoderSource{dec: dec}
	switch {
	case channels == 1 && dec.Channels() > 1:
		src = audio.NewMonoMixer(src)
	case channels != dec.Channels():
		src = newChannelMapper(src, channels)
	}
	if dec.SampleRate() != sampleRate {
		src = audio.NewResampler(src, sampleRate)
	}
	r.src = src
	r.buf = make([]float32, chunkFrames*channels)
	return r
}

// converting reports whether samples are remixed or resampled.
func (r *chunkReader) converting() bool { return r.src != nil }

// Next returns the next chunk. The chunk may be non-empty together with
// io.EOF when the converter flushes its tail.
func (r *chunkReader) Next() ([]float32, error) {
	if r.src == nil {
		return r.dec.DecodeNext()
	}
	n, err := r.src.ReadSamples(r.buf)
	n -= n % r.channels
	return r.buf[:n], err
}
