// Package main provides the oneamp command line player.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/oneamp/internal/app/equalizer"
	"github.com/osa030/oneamp/internal/app/playback"
	"github.com/osa030/oneamp/internal/infra/config"
	"github.com/osa030/oneamp/internal/infra/decoder"
	"github.com/osa030/oneamp/internal/infra/logger"
	"github.com/osa030/oneamp/internal/infra/output"
)

var (
	app        = kingpin.New("oneamp", "oneamp audio player")
	configPath = app.Flag("config", "Path to config file (default: built-in defaults)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()
	backend    = app.Flag("backend", "Output backend name").String()

	playCmd     = app.Command("play", "Play files (default)").Default()
	playFiles   = playCmd.Arg("files", "Audio files to play").Required().ExistingFiles()
	playRepeat  = playCmd.Flag("repeat", "Repeat the playlist").Bool()
	playShuffle = playCmd.Flag("shuffle", "Shuffle the playlist").Bool()
	playPreset  = playCmd.Flag("preset", "Equalizer preset").String()

	shellCmd = app.Command("shell", "Interactive player shell")

	probeCmd   = app.Command("probe", "Print track information and exit")
	probeFiles = probeCmd.Arg("files", "Audio files to probe").Required().Strings()

	backendsCmd = app.Command("backends", "List available output backends and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == backendsCmd.FullCommand() {
		printBackends()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(loggerConfig(cfg)); err != nil {
		panic(err)
	}
	defer logger.Close()

	switch command {
	case probeCmd.FullCommand():
		err = probe(*probeFiles)
	case shellCmd.FullCommand():
		err = runShell(cfg)
	default:
		err = runPlay(cfg, *playFiles, *playRepeat, *playShuffle, *playPreset)
	}
	if err != nil {
		zlog.Error().Msgf("oneamp: %v", err)
		_ = logger.Close()
		os.Exit(1)
	}
}

// loadConfig reads the config file when given and applies flag overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if *backend != "" {
		cfg.Output.Backend = *backend
	}
	return cfg, nil
}

func loggerConfig(cfg *config.Config) logger.Config {
	lc := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
	}
	if *verbose {
		lc.Level = "debug"
	}
	if *logfile != "" {
		lc.Output = "file"
		lc.File = *logfile
	}
	return lc
}

// newEngine creates the output backend and the engine that drives it.
// The backend must be closed after the engine.
func newEngine(cfg *config.Config) (*playback.Engine, output.Backend, error) {
	presets, err := equalizer.DefaultPresets().Merge(cfg.Equalizer.Presets)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid equalizer presets")
	}

	name := cfg.Output.Backend
	b, err := output.NewBackend(name, output.Options{
		CapacityMs: cfg.Output.CapacityMs,
		LowWaterMs: cfg.Output.LowWaterMs,
	}, cfg.BackendSettings(name))
	if err != nil {
		return nil, nil, err
	}

	engine, err := playback.New(playback.Config{
		TickInterval:          cfg.Engine.TickInterval(),
		PositionInterval:      cfg.Engine.PositionInterval(),
		VisualizationInterval: cfg.Engine.VisualizationInterval(),
		CommandQueueSize:      cfg.Engine.CommandQueueSize,
		EventQueueSize:        cfg.Engine.EventQueueSize,
		CaptureSize:           cfg.Engine.CaptureSize,
		Decoder: decoder.Options{
			ChunkFrames:          cfg.Decoder.ChunkFrames,
			MaxConsecutiveErrors: cfg.Decoder.MaxConsecutiveErrors,
		},
		Presets: presets,
	}, b)
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	return engine, b, nil
}

// initialEq returns the commands that apply the configured equalizer state.
// A preset, from the flag or the config, wins over explicit gains.
func initialEq(cfg *config.Config, preset string) []playback.Command {
	cmds := []playback.Command{playback.SetEqEnabled(cfg.EqEnabled())}
	if preset == "" {
		preset = cfg.Equalizer.Preset
	}
	switch {
	case preset != "":
		cmds = append(cmds, playback.SetEqPreset(preset))
	case len(cfg.Equalizer.Gains) == equalizer.NumBands:
		var g [equalizer.NumBands]float64
		copy(g[:], cfg.Equalizer.Gains)
		cmds = append(cmds, playback.SetEqBands(g))
	}
	return cmds
}

func printBackends() {
	fmt.Println("Available Backends:")
	for _, name := range output.Registered() {
		fmt.Printf("  %s\n", name)
	}
}
