// Package decoder opens audio files and decodes them to interleaved float32 PCM.
package decoder

import (
	"io"
	"math"
	"os"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrDecodeFailed      = errors.New("decode failed")
	ErrSeekFailed        = errors.New("seek failed")
	// ErrBadPacket marks a recoverable error confined to one packet or frame.
	ErrBadPacket = errors.New("bad packet")
)

// Options holds decoder tuning.
type Options struct {
	ChunkFrames          int // Frames per DecodeNext call
	MaxConsecutiveErrors int // Bad packets in a row before giving up
}

// DefaultOptions returns the default decoder options.
func DefaultOptions() Options {
	return Options{ChunkFrames: 2048, MaxConsecutiveErrors: 32}
}

// WithDefaults fills unset fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.ChunkFrames <= 0 {
		o.ChunkFrames = def.ChunkFrames
	}
	if o.MaxConsecutiveErrors <= 0 {
		o.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
	return o
}

// stream is one container/codec implementation.
type stream interface {
	SampleRate() int
	Channels() int
	// BitDepth returns the source sample width, 0 for float codecs.
	BitDepth() int
	// TotalFrames returns the stream length in frames, or -1 when unknown.
	TotalFrames() int64
	// Read fills dst with whole interleaved frames and returns the sample count.
	Read(dst []float32) (int, error)
	// SeekFrame repositions the stream and returns the frame reached.
	SeekFrame(frame int64) (int64, error)
}

type openFunc func(r io.ReadSeeker) (stream, error)

// formats holds the registered stream openers keyed by format name.
var formats = make(map[string]openFunc)

func registerFormat(name string, open openFunc) {
	formats[name] = open
}

// Decoder decodes one file. It is not safe for concurrent use.
type Decoder struct {
	path   string
	format string
	file   *os.File
	s      stream
	opts   Options

	sampleRate int
	channels   int
	total      int64

	buf           []float32
	framesDecoded int64
	badPackets    int
	eof           bool
}

// Open probes path and prepares it for decoding.
func Open(path string, opts Options) (*Decoder, error) {
	format, err := Probe(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	s, err := formats[format](f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to create %s decoder", format)
	}
	if s.SampleRate() <= 0 || s.Channels() <= 0 {
		f.Close()
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s: invalid stream parameters %d Hz/%dch",
			format, s.SampleRate(), s.Channels())
	}

	opts = opts.WithDefaults()
	d := &Decoder{
		path:       path,
		format:     format,
		file:       f,
		s:          s,
		opts:       opts,
		sampleRate: s.SampleRate(),
		channels:   s.Channels(),
		total:      s.TotalFrames(),
	}
	d.buf = make([]float32, opts.ChunkFrames*d.channels)

	zlog.Debug().Msgf("decoder: opened %s: format=%s rate=%d channels=%d frames=%d",
		path, format, d.sampleRate, d.channels, d.total)
	return d, nil
}

// Format returns the detected format name.
func (d *Decoder) Format() string { return d.format }

// SampleRate returns the stream sample rate in Hz.
func (d *Decoder) SampleRate() int { return d.sampleRate }

// Channels returns the stream channel count.
func (d *Decoder) Channels() int { return d.channels }

// Duration returns the stream length in seconds when known.
func (d *Decoder) Duration() (float64, bool) {
	if d.total < 0 {
		return 0, false
	}
	return float64(d.total) / float64(d.sampleRate), true
}

// CurrentPosition returns the decoded position in seconds. It advances only
// as frames are decoded and is set by Seek.
func (d *Decoder) CurrentPosition() float64 {
	return float64(d.framesDecoded) / float64(d.sampleRate)
}

// DecodeNext returns the next chunk of interleaved samples. The slice is
// reused by the next call. It returns io.EOF at end of stream. A bad packet
// yields an empty chunk and a nil error.
func (d *Decoder) DecodeNext() ([]float32, error) {
	if d.eof {
		return nil, io.EOF
	}

	n, err := d.s.Read(d.buf)
	n -= n % d.channels
	if n > 0 {
		d.framesDecoded += int64(n / d.channels)
	}

	switch {
	case err == nil:
		d.badPackets = 0
		return d.buf[:n], nil

	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		d.eof = true
		if n > 0 {
			return d.buf[:n], nil
		}
		return nil, io.EOF

	case errors.Is(err, ErrBadPacket):
		d.badPackets++
		if d.badPackets > d.opts.MaxConsecutiveErrors {
			return nil, errors.Mark(errors.Wrapf(err, "%d consecutive bad packets", d.badPackets), ErrDecodeFailed)
		}
		zlog.Warn().Msgf("decoder: skipping bad packet in %s: %v", d.path, err)
		return d.buf[:n], nil

	default:
		return nil, errors.Mark(errors.Wrapf(err, "failed to decode %s", d.path), ErrDecodeFailed)
	}
}

// Seek moves to seconds, clamped to the stream bounds. When the format
// cannot seek in place the stream is reopened and decoded forward instead.
func (d *Decoder) Seek(seconds float64) error {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	target := int64(seconds * float64(d.sampleRate))
	if d.total >= 0 && target >= d.total {
		d.framesDecoded = d.total
		d.eof = true
		d.badPackets = 0
		return nil
	}

	reached, err := d.s.SeekFrame(target)
	if err != nil {
		zlog.Debug().Msgf("decoder: in-place seek failed, resetting stream: %v", err)
		reached, err = d.resetAndSkip(target)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "seek to %.3fs", seconds), ErrSeekFailed)
		}
	}

	d.framesDecoded = reached
	d.badPackets = 0
	d.eof = false
	return nil
}

// resetAndSkip reopens the stream from the start and discards frames up to target.
func (d *Decoder) resetAndSkip(target int64) (int64, error) {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return 0, errors.Wrap(err, "failed to rewind")
	}
	s, err := formats[d.format](d.file)
	if err != nil {
		return 0, errors.Wrap(err, "failed to reopen stream")
	}
	d.s = s

	var pos int64
	stalled := 0
	for pos < target {
		want := min(int64(len(d.buf)/d.channels), target-pos)
		n, err := s.Read(d.buf[:want*int64(d.channels)])
		pos += int64(n / d.channels)
		if n == 0 {
			if stalled++; stalled > d.opts.MaxConsecutiveErrors {
				return 0, errors.Newf("no progress after %d reads", stalled)
			}
		} else {
			stalled = 0
		}
		switch {
		case err == nil, errors.Is(err, ErrBadPacket):
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return pos, nil
		default:
			return 0, err
		}
	}
	return pos, nil
}

// Close releases the file.
func (d *Decoder) Close() error {
	if err := d.file.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	return nil
}
