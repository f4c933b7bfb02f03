package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/osa030/oneamp/internal/app/capture"
	"github.com/osa030/oneamp/internal/app/equalizer"
	"github.com/osa030/oneamp/internal/app/playback"
	"github.com/osa030/oneamp/internal/domain/track"
)

const meterBars = 16

var meterRunes = []rune("▁▂▃▄▅▆▇█")

var (
	colorDim     = lipgloss.ANSIColor(8)
	colorAccent  = lipgloss.ANSIColor(11)
	colorPlaying = lipgloss.ANSIColor(10)
	colorError   = lipgloss.ANSIColor(9)

	stateStyle = lipgloss.NewStyle().Foreground(colorPlaying).Bold(true)
	titleStyle = lipgloss.NewStyle().Foreground(colorAccent)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true)

	meterLow  = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(10))
	meterMid  = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(11))
	meterHigh = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(9))
)

// status tracks what the engine last reported and renders it as one line.
type status struct {
	state     playback.State
	track     *track.Info
	current   float64
	total     float64
	eqEnabled bool
	gains     equalizer.Gains
	preset    string
	channels  int
	levels    []float64
	analyzer  *capture.Analyzer
}

func newStatus() *status {
	return &status{
		channels: 2,
		levels:   make([]float64, meterBars),
		analyzer: capture.NewAnalyzer(meterBars, equalizer.DefaultSampleRate),
	}
}

// apply updates the status from an event.
func (s *status) apply(ev playback.Event) {
	switch ev.Type {
	case playback.EventTrackLoaded:
		s.track = ev.Track
		s.current, s.total = 0, 0
		if d, ok := ev.Track.Duration(); ok {
			s.total = d.Seconds()
		}
		if ev.Track.SampleRate != nil {
			s.analyzer.SetSampleRate(float64(*ev.Track.SampleRate))
		}
		if ev.Track.Channels != nil {
			s.channels = *ev.Track.Channels
		}
		s.state = playback.StateLoaded
	case playback.EventPlaying:
		s.state = playback.StatePlaying
	case playback.EventPaused:
		s.state = playback.StatePaused
	case playback.EventStopped, playback.EventFinished:
		s.state = playback.StateIdle
		s.current = 0
		clear(s.levels)
	case playback.EventPosition:
		s.current, s.total = ev.Current, ev.Total
	case playback.EventEqUpdated:
		s.eqEnabled, s.gains = ev.Enabled, ev.Gains
	case playback.EventVisualizationData:
		s.levels = s.analyzer.Analyze(ev.Samples, s.channels)
	case playback.EventError:
		s.state = playback.StateIdle
	}
}

// render returns the status line without a trailing newline.
func (s *status) render() string {
	parts := []string{stateStyle.Render(stateIcon(s.state))}
	if s.track != nil {
		parts = append(parts, titleStyle.Render(s.track.DisplayTitle()))
	}
	parts = append(parts,
		fmt.Sprintf("%s / %s", formatClock(s.current), formatClock(s.total)),
		renderMeter(s.levels),
		dimStyle.Render(s.eqLabel()),
	)
	return strings.Join(parts, "  ")
}

func (s *status) eqLabel() string {
	if !s.eqEnabled {
		return "EQ off"
	}
	if s.preset != "" {
		return "EQ " + s.preset
	}
	return "EQ on"
}

// draw rewrites the current terminal line.
func (s *status) draw(w io.Writer) {
	fmt.Fprint(w, "\r\033[K"+s.render())
}

func stateIcon(st playback.State) string {
	switch st {
	case playback.StatePlaying:
		return "▶"
	case playback.StatePaused:
		return "⏸"
	case playback.StateLoaded:
		return "…"
	default:
		return "■"
	}
}

// formatClock formats seconds as m:ss, or h:mm:ss past an hour.
func formatClock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	h, m, ss := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, ss)
	}
	return fmt.Sprintf("%d:%02d", m, ss)
}

// renderMeter draws one block per level, colored by height.
func renderMeter(levels []float64) string {
	var b strings.Builder
	top := len(meterRunes) - 1
	for _, v := range levels {
		v = max(0, min(1, v))
		idx := int(v * float64(top))
		r := string(meterRunes[idx])
		switch {
		case v > 0.8:
			b.WriteString(meterHigh.Render(r))
		case v > 0.5:
			b.WriteString(meterMid.Render(r))
		default:
			b.WriteString(meterLow.Render(r))
		}
	}
	return b.String()
}

func formatGains(g equalizer.Gains) string {
	parts := make([]string, len(g))
	for i, v := range g {
		parts[i] = fmt.Sprintf("%s:%+.1f", bandLabel(equalizer.Frequencies[i]), v)
	}
	return strings.Join(parts, " ")
}

func bandLabel(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%gk", hz/1000)
	}
	return fmt.Sprintf("%g", hz)
}
