package decoder

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV encodes data as a PCM WAV file under dir and returns its path.
func writeWAV(t *testing.T, dir, name string, rate, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	return path
}

// ramp returns frames*channels samples sweeping the signed range of bitDepth.
func ramp(frames, channels, bitDepth int) []int {
	peak := audio.IntMaxSignedValue(bitDepth)
	data := make([]int, frames*channels)
	for i := range data {
		data[i] = (i*7919)%(2*peak) - peak
	}
	return data
}

func decodeAll(t *testing.T, d *Decoder) []float32 {
	t.Helper()
	var out []float32
	for {
		chunk, err := d.DecodeNext()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, chunk...)
	}
}

func TestDecoder_WAVBitDepths(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		// encode converts a signed sample to the value written to the file
		encode func(v int) int
	}{
		{name: "8-bit unsigned", bitDepth: 8, encode: func(v int) int { return v + 128 }},
		{name: "16-bit", bitDepth: 16, encode: func(v int) int { return v }},
		{name: "24-bit", bitDepth: 24, encode: func(v int) int { return v }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const frames, channels = 1000, 2
			signed := ramp(frames, channels, tt.bitDepth)
			raw := make([]int, len(signed))
			for i, v := range signed {
				raw[i] = tt.encode(v)
			}
			path := writeWAV(t, t.TempDir(), "ramp.wav", 44100, tt.bitDepth, channels, raw)

			d, err := Open(path, Options{ChunkFrames: 128})
			require.NoError(t, err)
			defer d.Close()

			assert.Equal(t, "wav", d.Format())
			assert.Equal(t, 44100, d.SampleRate())
			assert.Equal(t, channels, d.Channels())

			got := decodeAll(t, d)
			require.Len(t, got, len(signed))

			lsb := 1 / float64(audio.IntMaxSignedValue(tt.bitDepth))
			for i, v := range signed {
				want := float64(v) * lsb
				if math.Abs(float64(got[i])-want) > lsb {
					t.Fatalf("sample %d: got %f, want %f", i, got[i], want)
				}
			}
		})
	}
}

func TestDecoder_DurationAndPosition(t *testing.T) {
	path := writeWAV(t, t.TempDir(), "a.wav", 8000, 16, 1, make([]int, 8000*3/2))

	d, err := Open(path, Options{ChunkFrames: 1000})
	require.NoError(t, err)
	defer d.Close()

	dur, ok := d.Duration()
	require.True(t, ok)
	assert.InDelta(t, 1.5, dur, 1e-9)
	assert.Zero(t, d.CurrentPosition())

	chunk, err := d.DecodeNext()
	require.NoError(t, err)
	assert.Len(t, chunk, 1000)
	assert.InDelta(t, 0.125, d.CurrentPosition(), 1e-9)

	decodeAll(t, d)
	assert.InDelta(t, 1.5, d.CurrentPosition(), 1e-9)

	_, err = d.DecodeNext()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_Seek(t *testing.T) {
	const rate = 8000
	path := writeWAV(t, t.TempDir(), "a.wav", rate, 16, 2, ramp(rate*2, 2, 16))

	tests := []struct {
		name    string
		target  float64
		wantPos float64
		wantEOF bool
	}{
		{name: "middle", target: 0.75, wantPos: 0.75},
		{name: "start", target: 0, wantPos: 0},
		{name: "negative clamps to start", target: -3, wantPos: 0},
		{name: "past end", target: 10, wantPos: 2, wantEOF: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Open(path, Options{ChunkFrames: 256})
			require.NoError(t, err)
			defer d.Close()

			// Move away from the start first.
			_, err = d.DecodeNext()
			require.NoError(t, err)

			require.NoError(t, d.Seek(tt.target))
			assert.InDelta(t, tt.wantPos, d.CurrentPosition(), 1.0/rate)

			chunk, err := d.DecodeNext()
			if tt.wantEOF {
				assert.ErrorIs(t, err, io.EOF)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, chunk)
			// The first chunk after the seek covers the target.
			assert.InDelta(t, tt.wantPos+256.0/rate, d.CurrentPosition(), 1.0/rate)
		})
	}
}

func TestDecoder_SeekMatchesLinearDecode(t *testing.T) {
	const rate = 8000
	data := ramp(rate, 1, 16)
	path := writeWAV(t, t.TempDir(), "a.wav", rate, 16, 1, data)

	d, err := Open(path, Options{ChunkFrames: 100})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Seek(0.5))
	chunk, err := d.DecodeNext()
	require.NoError(t, err)
	require.Len(t, chunk, 100)

	lsb := 1 / float64(audio.IntMaxSignedValue(16))
	for i, v := range chunk {
		assert.InDelta(t, float64(data[rate/2+i])*lsb, float64(v), lsb)
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	wavPath := writeWAV(t, dir, "a.wav", 8000, 16, 1, make([]int, 100))

	disguised := filepath.Join(dir, "disguised.mp3")
	raw, err := os.ReadFile(wavPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(disguised, raw, 0o644))

	text := filepath.Join(dir, "notes.mp3")
	require.NoError(t, os.WriteFile(text, []byte("this is not audio at all\n"), 0o644))

	tests := []struct {
		name     string
		path     string
		expected string
		wantErr  error
	}{
		{name: "wav by content", path: wavPath, expected: "wav"},
		{name: "content wins over extension", path: disguised, expected: "wav"},
		{name: "text is rejected", path: text, wantErr: ErrUnsupportedFormat},
		{name: "missing file", path: filepath.Join(dir, "missing.flac")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := Probe(tt.path)
			if tt.expected == "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o644))
	_, err := Open(text, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Open(filepath.Join(dir, "missing.wav"), DefaultOptions())
	assert.Error(t, err)
}

func TestReadInfo(t *testing.T) {
	path := writeWAV(t, t.TempDir(), "My Song.wav", 22050, 24, 1, make([]int, 22050))

	info, err := ReadInfo(path)
	require.NoError(t, err)

	assert.Equal(t, path, info.Path)
	assert.Equal(t, "wav", info.Format)
	assert.Equal(t, "My Song", info.DisplayTitle())
	require.NotNil(t, info.SampleRate)
	assert.Equal(t, 22050, *info.SampleRate)
	require.NotNil(t, info.Channels)
	assert.Equal(t, 1, *info.Channels)
	require.NotNil(t, info.BitDepth)
	assert.Equal(t, 24, *info.BitDepth)
	require.NotNil(t, info.DurationSec)
	assert.InDelta(t, 1.0, *info.DurationSec, 1e-9)
}

func TestNewPCMConverter_Unknown(t *testing.T) {
	assert.Nil(t, newPCMConverter(12, false))
	assert.Nil(t, newPCMConverter(16, true))
	assert.NotNil(t, newPCMConverter(64, true))
}
