package equalizer

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownPreset is returned when a preset name is not registered.
var ErrUnknownPreset = errors.New("unknown equalizer preset")

// Presets maps a lower-case preset name to its gains.
type Presets map[string]Gains

// DefaultPresets returns the built-in presets.
func DefaultPresets() Presets {
	return Presets{
		"flat":      {},
		"rock":      {5, 4, 3, 1, -1, -1, 1, 3, 4, 5},
		"pop":       {-1, 0, 2, 4, 5, 4, 2, 0, -1, -1},
		"jazz":      {3, 2, 1, 2, -1, -1, 0, 1, 2, 3},
		"classical": {4, 3, 2, 1, 0, 0, 0, 1, 2, 3},
		"bass":      {8, 7, 5, 3, 1, 0, 0, 0, 0, 0},
		"treble":    {0, 0, 0, 0, 0, 1, 3, 5, 7, 8},
		"vocal":     {-2, -2, -1, 1, 3, 4, 3, 1, 0, -1},
	}
}

// Merge returns a copy of p with extra added on top. Gains are clamped.
func (p Presets) Merge(extra map[string][]float64) (Presets, error) {
	out := make(Presets, len(p)+len(extra))
	for name, g := range p {
		out[name] = g
	}
	for name, values := range extra {
		if len(values) != NumBands {
			return nil, errors.Newf("preset %q: expected %d gains, got %d", name, NumBands, len(values))
		}
		var g Gains
		for i, v := range values {
			g[i] = ClampGain(v)
		}
		out[strings.ToLower(name)] = g
	}
	return out, nil
}

// Lookup returns the gains registered under name.
func (p Presets) Lookup(name string) (Gains, error) {
	g, ok := p[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Gains{}, errors.Wrapf(ErrUnknownPreset, "%q", name)
	}
	return g, nil
}

// Names returns the preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
