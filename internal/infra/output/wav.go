package output

import (
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	zlog "github.com/rs/zerolog/log"
)

func init() {
	Register("wav", NewWAVBackend)
}

// WAVConfig configures the recording backend. A "{n}" in Path is replaced by
// the stream sequence number, otherwise every stream overwrites Path.
type WAVConfig struct {
	ClockConfig `mapstructure:",squash"`
	Path        string `mapstructure:"path" validate:"required"`
	BitDepth    int    `mapstructure:"bit_depth" default:"16" validate:"oneof=16 24 32"`
}

// WAVBackend renders output to WAV files on a simulated clock.
type WAVBackend struct {
	opts Options
	cfg  WAVConfig
	seq  atomic.Int64
}

// NewWAVBackend creates a WAV backend from its settings map.
func NewWAVBackend(opts Options, settings map[string]any) (Backend, error) {
	var cfg WAVConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	return &WAVBackend{opts: opts, cfg: cfg}, nil
}

// Name returns the backend name.
func (b *WAVBackend) Name() string { return "wav" }

// Probe fails when the device is configured as unavailable.
func (b *WAVBackend) Probe() error {
	if b.cfg.Unavailable {
		return errors.Wrap(ErrNoDevice, "wav device disabled")
	}
	return nil
}

// Open creates the next output file and starts a recording sink.
func (b *WAVBackend) Open(sampleRate, channels int) (Sink, error) {
	if err := b.Probe(); err != nil {
		return nil, err
	}
	rate, ch, err := b.cfg.resolve(sampleRate, channels)
	if err != nil {
		return nil, err
	}

	path := strings.ReplaceAll(b.cfg.Path, "{n}", strconv.FormatInt(b.seq.Add(1), 10))
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create wav file")
	}

	rec := &wavRecorder{
		file: f,
		enc:  wav.NewEncoder(f, rate, b.cfg.BitDepth, ch, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: ch, SampleRate: rate},
			SourceBitDepth: b.cfg.BitDepth,
		},
		scale: float64(audio.IntMaxSignedValue(b.cfg.BitDepth)),
	}
	zlog.Debug().Msgf("output: recording to %s (%d Hz/%dch/%d-bit)", path, rate, ch, b.cfg.BitDepth)

	fifo := NewFIFO(rate, ch, b.opts.CapacityMs, b.opts.LowWaterMs)
	return newClockSink(fifo, b.cfg.ClockConfig, rec.write, rec.close), nil
}

// Close is a no-op.
func (b *WAVBackend) Close() error { return nil }

// wavRecorder converts rendered periods to PCM. It runs on the clock goroutine only.
type wavRecorder struct {
	file  *os.File
	enc   *wav.Encoder
	buf   *audio.IntBuffer
	scale float64
	err   error
}

func (r *wavRecorder) write(samples []float32) {
	if r.err != nil || len(samples) == 0 {
		return
	}
	if cap(r.buf.Data) < len(samples) {
		r.buf.Data = make([]int, len(samples))
	}
	r.buf.Data = r.buf.Data[:len(samples)]
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		r.buf.Data[i] = int(math.Round(v * r.scale))
	}
	if err := r.enc.Write(r.buf); err != nil {
		r.err = errors.Wrap(err, "failed to write wav data")
	}
}

func (r *wavRecorder) close() error {
	encErr := r.enc.Close()
	fileErr := r.file.Close()
	switch {
	case r.err != nil:
		return r.err
	case encErr != nil:
		return errors.Wrap(encErr, "failed to finalize wav file")
	case fileErr != nil:
		return errors.Wrap(fileErr, "failed to close wav file")
	}
	return nil
}
