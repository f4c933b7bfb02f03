package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"

	"github.com/osa030/oneamp/internal/app/equalizer"
	"github.com/osa030/oneamp/internal/app/playback"
	"github.com/osa030/oneamp/internal/domain/playlist"
	"github.com/osa030/oneamp/internal/infra/config"
)

var errQuit = errors.New("quit")

const shellHelp = `Commands:
  load PATH | play PATH   load and play a file
  pause | resume | stop
  seek SECONDS
  next | prev
  eq on|off
  eq band INDEX DB
  eq reset
  eq preset NAME
  eq show
  status
  quit`

// shell is an interactive prompt driving one engine.
type shell struct {
	engine  *playback.Engine
	presets []string
	out     io.Writer

	mu       sync.Mutex
	playlist *playlist.Playlist
	status   *status
	loadID   string
}

func runShell(cfg *config.Config) error {
	engine, backend, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer engine.Close()

	presets, err := equalizer.DefaultPresets().Merge(cfg.Equalizer.Presets)
	if err != nil {
		return err
	}

	sh := &shell{
		engine:   engine,
		presets:  presets.Names(),
		playlist: playlist.New(nil),
		status:   newStatus(),
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "oneamp> ",
		AutoComplete: sh.completer(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to start shell")
	}
	defer rl.Close()
	sh.out = rl.Stdout()

	for _, cmd := range initialEq(cfg, "") {
		if cmd.Type == playback.CommandSetEqPreset {
			sh.status.preset = cmd.Preset
		}
		if err := engine.SendCommand(cmd); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sh.printEvents()
	}()

	fmt.Fprintln(sh.out, shellHelp)
	for {
		line, err := rl.Readline()
		if err != nil {
			// Ctrl-C or Ctrl-D
			break
		}
		if err := sh.exec(line); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			fmt.Fprintln(sh.out, errorStyle.Render(err.Error()))
		}
	}

	_ = engine.Close()
	wg.Wait()
	return nil
}

func (sh *shell) completer() *readline.PrefixCompleter {
	presetItems := make([]readline.PrefixCompleterInterface, 0, len(sh.presets))
	for _, name := range sh.presets {
		presetItems = append(presetItems, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("load"),
		readline.PcItem("play"),
		readline.PcItem("pause"),
		readline.PcItem("resume"),
		readline.PcItem("stop"),
		readline.PcItem("seek"),
		readline.PcItem("next"),
		readline.PcItem("prev"),
		readline.PcItem("eq",
			readline.PcItem("on"),
			readline.PcItem("off"),
			readline.PcItem("band"),
			readline.PcItem("reset"),
			readline.PcItem("preset", presetItems...),
			readline.PcItem("show"),
		),
		readline.PcItem("status"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// exec runs one command line.
func (sh *shell) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "load", "play":
		if len(args) == 0 {
			return errors.Newf("usage: %s PATH", cmd)
		}
		path := strings.Join(args, " ")
		sh.mu.Lock()
		sh.playlist.Add(path)
		sh.playlist.Jump(sh.playlist.Len() - 1)
		sh.mu.Unlock()
		return sh.engine.SendCommand(playback.Play(path))
	case "pause":
		return sh.engine.SendCommand(playback.Pause())
	case "resume":
		return sh.engine.SendCommand(playback.Resume())
	case "stop":
		return sh.engine.SendCommand(playback.Stop())
	case "seek":
		if len(args) != 1 {
			return errors.New("usage: seek SECONDS")
		}
		sec, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return errors.Wrap(err, "invalid seconds")
		}
		return sh.engine.SendCommand(playback.Seek(sec))
	case "next":
		return sh.engine.SendCommand(playback.Next())
	case "prev", "previous":
		return sh.engine.SendCommand(playback.Previous())
	case "eq":
		return sh.execEq(args)
	case "status":
		sh.mu.Lock()
		fmt.Fprintln(sh.out, sh.status.render())
		sh.mu.Unlock()
		return nil
	case "help":
		fmt.Fprintln(sh.out, shellHelp)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return errors.Newf("unknown command %q (try help)", cmd)
	}
}

func (sh *shell) execEq(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: eq on|off|band|reset|preset|show")
	}

	switch args[0] {
	case "on", "off":
		return sh.engine.SendCommand(playback.SetEqEnabled(args[0] == "on"))
	case "band":
		if len(args) != 3 {
			return errors.New("usage: eq band INDEX DB")
		}
		band, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrap(err, "invalid band index")
		}
		gain, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return errors.Wrap(err, "invalid gain")
		}
		sh.setPreset("")
		return sh.engine.SendCommand(playback.SetEqBand(band, gain))
	case "reset":
		sh.setPreset("")
		return sh.engine.SendCommand(playback.ResetEq())
	case "preset":
		if len(args) != 2 {
			return errors.Newf("usage: eq preset %s", strings.Join(sh.presets, "|"))
		}
		name := strings.ToLower(args[1])
		if !slices.Contains(sh.presets, name) {
			return errors.Newf("unknown preset %q", args[1])
		}
		sh.setPreset(name)
		return sh.engine.SendCommand(playback.SetEqPreset(name))
	case "show":
		sh.mu.Lock()
		fmt.Fprintf(sh.out, "%s\n%s\n", sh.status.eqLabel(), formatGains(sh.status.gains))
		sh.mu.Unlock()
		return nil
	default:
		return errors.Newf("unknown eq command %q", args[0])
	}
}

func (sh *shell) setPreset(name string) {
	sh.mu.Lock()
	sh.status.preset = name
	sh.mu.Unlock()
}

// printEvents prints engine events until the event channel closes.
// It also advances the playlist on Finished and navigation requests.
func (sh *shell) printEvents() {
	for ev := range sh.engine.Events() {
		sh.mu.Lock()
		sh.status.apply(ev)
		line := sh.describe(ev)
		next := sh.follow(ev)
		sh.mu.Unlock()

		if line != "" {
			fmt.Fprintln(sh.out, line)
		}
		if next != "" {
			if err := sh.engine.SendCommand(playback.Play(next)); err != nil {
				fmt.Fprintln(sh.out, errorStyle.Render(err.Error()))
			}
		}
	}
}

// describe returns the line to print for ev, or "" for periodic events.
func (sh *shell) describe(ev playback.Event) string {
	switch ev.Type {
	case playback.EventPosition, playback.EventVisualizationData:
		return ""
	case playback.EventTrackLoaded:
		return "loaded: " + titleStyle.Render(ev.Track.DisplayTitle())
	case playback.EventEqUpdated:
		return dimStyle.Render(sh.status.eqLabel() + " " + formatGains(ev.Gains))
	case playback.EventError:
		return errorStyle.Render("error: " + ev.Message)
	default:
		return dimStyle.Render(ev.Type.String())
	}
}

// follow returns the next path to play in response to ev, if any.
func (sh *shell) follow(ev playback.Event) string {
	switch ev.Type {
	case playback.EventTrackLoaded:
		sh.loadID = ev.LoadID
	case playback.EventFinished, playback.EventRequestNext:
		if ev.LoadID != sh.loadID {
			return ""
		}
		if path, ok := sh.playlist.Next(); ok {
			return path
		}
	case playback.EventRequestPrevious:
		if ev.LoadID != sh.loadID {
			return ""
		}
		path, ok := sh.playlist.Prev()
		if !ok {
			path, _ = sh.playlist.Current()
		}
		return path
	}
	return ""
}
