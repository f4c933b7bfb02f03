package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/oneamp/internal/app/playback"
	"github.com/osa030/oneamp/internal/domain/playlist"
	"github.com/osa030/oneamp/internal/infra/config"
)

// frameInterval is how often the player polls events and redraws.
const frameInterval = 16 * time.Millisecond

var errNoPlayableTracks = errors.New("no playable tracks")

// runPlay plays files in order until the playlist ends or a signal arrives.
func runPlay(cfg *config.Config, files []string, repeat, shuffle bool, preset string) error {
	pl := playlist.New(files, playlist.WithRepeat(repeat))
	if shuffle {
		seed := uint64(time.Now().UnixNano())
		pl.Shuffle(rand.New(rand.NewPCG(seed, seed>>1)))
	}

	engine, backend, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer engine.Close()

	st := newStatus()
	for _, cmd := range initialEq(cfg, preset) {
		if cmd.Type == playback.CommandSetEqPreset {
			st.preset = cmd.Preset
		}
		if err := engine.SendCommand(cmd); err != nil {
			return err
		}
	}

	p := &player{engine: engine, playlist: pl, status: st}
	path, _ := pl.Current()
	if err := p.play(path); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println()
			zlog.Info().Msg("player: received shutdown signal")
			return nil
		case <-engine.Done():
			fmt.Println()
			return playback.ErrEngineClosed
		case <-ticker.C:
			done, err := p.drain()
			st.draw(os.Stdout)
			if done || err != nil {
				fmt.Println()
				return err
			}
		}
	}
}

// player advances a playlist in response to engine events.
type player struct {
	engine   *playback.Engine
	playlist *playlist.Playlist
	status   *status
	loadID   string
	failures int
}

func (p *player) play(path string) error {
	p.loadID = ""
	return p.engine.SendCommand(playback.Play(path))
}

// drain handles every queued event. It reports done when the playlist
// has no more tracks to play.
func (p *player) drain() (bool, error) {
	for {
		ev, ok := p.engine.TryRecvEvent()
		if !ok {
			return false, nil
		}
		p.status.apply(ev)

		switch ev.Type {
		case playback.EventTrackLoaded:
			p.loadID = ev.LoadID
		case playback.EventPlaying:
			p.failures = 0
		case playback.EventFinished, playback.EventRequestNext:
			if ev.LoadID != p.loadID {
				continue
			}
			path, ok := p.playlist.Next()
			if !ok {
				return true, nil
			}
			if err := p.play(path); err != nil {
				return false, err
			}
		case playback.EventRequestPrevious:
			if ev.LoadID != p.loadID {
				continue
			}
			path, ok := p.playlist.Prev()
			if !ok {
				path, _ = p.playlist.Current()
			}
			if err := p.play(path); err != nil {
				return false, err
			}
		case playback.EventError:
			fmt.Println()
			fmt.Println(errorStyle.Render("error: " + ev.Message))
			p.failures++
			if p.failures >= p.playlist.Len() {
				return false, errNoPlayableTracks
			}
			path, ok := p.playlist.Next()
			if !ok {
				return true, nil
			}
			if err := p.play(path); err != nil {
				return false, err
			}
		}
	}
}
