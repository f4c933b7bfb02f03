package output

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gen2brain/malgo"
	zlog "github.com/rs/zerolog/log"
)

func init() {
	Register("malgo", NewMalgoBackend)
}

// MalgoConfig configures the miniaudio backend.
type MalgoConfig struct {
	PeriodMs int `mapstructure:"period_ms" default:"20" validate:"gte=1,lte=500"`
	// ScratchFrames bounds the per-callback conversion buffer. Larger
	// requests are served in several passes.
	ScratchFrames int `mapstructure:"scratch_frames" default:"8192" validate:"gte=256,lte=65536"`
}

// MalgoBackend plays through the platform default device via miniaudio.
type MalgoBackend struct {
	opts Options
	cfg  MalgoConfig
	ctx  *malgo.AllocatedContext
}

// NewMalgoBackend initializes a miniaudio context.
func NewMalgoBackend(opts Options, settings map[string]any) (Backend, error) {
	var cfg MalgoConfig
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		zlog.Debug().Msgf("output: miniaudio: %s", message)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize audio context")
	}
	return &MalgoBackend{opts: opts, cfg: cfg, ctx: ctx}, nil
}

// Name returns the backend name.
func (b *MalgoBackend) Name() string { return "malgo" }

// Probe fails when there is no playback device.
func (b *MalgoBackend) Probe() error {
	devices, err := b.ctx.Devices(malgo.Playback)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate playback devices")
	}
	if len(devices) == 0 {
		return ErrNoDevice
	}
	return nil
}

// Open starts a float32 stream on the default device.
func (b *MalgoBackend) Open(sampleRate, channels int) (Sink, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(b.cfg.PeriodMs)

	s := &malgoSink{}
	device, err := malgo.InitDevice(b.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.onSamples,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open device at %d Hz/%dch", sampleRate, channels)
	}

	rate := int(device.SampleRate())
	ch := int(device.PlaybackChannels())
	if (sampleRate != 0 && rate != sampleRate) || (channels != 0 && ch != channels) {
		device.Uninit()
		return nil, errors.Wrapf(ErrFormatUnsupported, "device opened at %d Hz/%dch", rate, ch)
	}

	s.device = device
	s.FIFO = NewFIFO(rate, ch, b.opts.CapacityMs, b.opts.LowWaterMs)
	s.scratch = make([]float32, b.cfg.ScratchFrames*ch)
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, errors.Wrap(err, "failed to start device")
	}
	zlog.Debug().Msgf("output: malgo device started: %d Hz/%dch", rate, ch)
	return s, nil
}

// Close releases the miniaudio context.
func (b *MalgoBackend) Close() error {
	if err := b.ctx.Uninit(); err != nil {
		return errors.Wrap(err, "failed to release audio context")
	}
	b.ctx.Free()
	return nil
}

// malgoSink feeds a miniaudio device from its FIFO.
type malgoSink struct {
	*FIFO
	device    *malgo.Device
	scratch   []float32
	closeOnce sync.Once
}

// onSamples runs on the device thread: it only drains the FIFO and encodes
// little-endian float32 into the device buffer.
func (s *malgoSink) onSamples(out, _ []byte, frames uint32) {
	total := int(frames) * s.Channels()
	for off := 0; off < total; {
		chunk := s.scratch[:min(total-off, len(s.scratch))]
		s.Fill(chunk)
		for i, v := range chunk {
			binary.LittleEndian.PutUint32(out[(off+i)*4:], math.Float32bits(v))
		}
		off += len(chunk)
	}
}

// Close stops the device. miniaudio guarantees no callback is running after Uninit.
func (s *malgoSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if stopErr := s.device.Stop(); stopErr != nil {
			err = errors.Wrap(stopErr, "failed to stop device")
		}
		s.device.Uninit()
	})
	return err
}
