package decoder

import (
	"encoding/binary"
	"math"

	"github.com/go-audio/audio"
)

var int16Scale = 1 / float32(audio.IntMaxSignedValue(16))

// pcmConverter turns little-endian PCM bytes into float32 samples in [-1, 1].
type pcmConverter func(src []byte, dst []float32)

// newPCMConverter returns the converter for a bit depth; float selects IEEE
// float input. Unknown layouts return nil.
func newPCMConverter(bitDepth int, float bool) pcmConverter {
	if float {
		switch bitDepth {
		case 32:
			return func(src []byte, dst []float32) {
				for i := range dst {
					dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
				}
			}
		case 64:
			return func(src []byte, dst []float32) {
				for i := range dst {
					dst[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(src[i*8:])))
				}
			}
		}
		return nil
	}

	scale := 1 / float32(audio.IntMaxSignedValue(bitDepth))
	switch bitDepth {
	case 8:
		// 8-bit PCM is unsigned with 128 as silence.
		return func(src []byte, dst []float32) {
			for i := range dst {
				dst[i] = float32(int(src[i])-128) * scale
			}
		}
	case 16:
		return func(src []byte, dst []float32) {
			for i := range dst {
				dst[i] = float32(int16(binary.LittleEndian.Uint16(src[i*2:]))) * scale
			}
		}
	case 24:
		return func(src []byte, dst []float32) {
			for i := range dst {
				b := src[i*3:]
				v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
				dst[i] = float32(v) * scale
			}
		}
	case 32:
		return func(src []byte, dst []float32) {
			for i := range dst {
				dst[i] = float32(int32(binary.LittleEndian.Uint32(src[i*4:]))) * scale
			}
		}
	}
	return nil
}
