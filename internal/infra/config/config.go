// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Decoder   DecoderConfig   `yaml:"decoder"`
	Output    OutputConfig    `yaml:"output"`
	Equalizer EqualizerConfig `yaml:"equalizer"`
	Log       LogConfig       `yaml:"log"`
}

// EngineConfig represents engine loop configuration.
type EngineConfig struct {
	TickIntervalMs     int `yaml:"tick_interval_ms" default:"1" validate:"gte=1,lte=100"`
	PositionIntervalMs int `yaml:"position_interval_ms" default:"100" validate:"gte=10,lte=10000"`
	// 0 sends visualization data on every loop iteration.
	VisualizationIntervalMs *int `yaml:"visualization_interval_ms" default:"33" validate:"omitempty,gte=0,lte=10000"`
	CommandQueueSize        int  `yaml:"command_queue_size" default:"256" validate:"gte=1,lte=65536"`
	EventQueueSize          int  `yaml:"event_queue_size" default:"1024" validate:"gte=2,lte=65536"`
	CaptureSize             int  `yaml:"capture_size" default:"2048" validate:"gte=64,lte=65536"`
}

// DecoderConfig represents decoder configuration.
type DecoderConfig struct {
	ChunkFrames          int `yaml:"chunk_frames" default:"2048" validate:"gte=64,lte=65536"`
	MaxConsecutiveErrors int `yaml:"max_consecutive_errors" default:"32" validate:"gte=1,lte=10000"`
}

// OutputConfig represents output device configuration.
type OutputConfig struct {
	Backend    string `yaml:"backend" default:"malgo" validate:"required"`
	CapacityMs int    `yaml:"capacity_ms" default:"4000" validate:"gte=100,lte=60000"`
	LowWaterMs int    `yaml:"low_water_ms" default:"250" validate:"gte=10,ltfield=CapacityMs"`
	// Settings holds per-backend settings keyed by backend name.
	Settings map[string]map[string]any `yaml:"settings"`
}

// EqualizerConfig represents the initial equalizer state.
type EqualizerConfig struct {
	Enabled *bool     `yaml:"enabled" default:"true"`
	Gains   []float64 `yaml:"gains" validate:"omitempty,len=10,dive,gte=-12,lte=12"`
	// Preset, when set, wins over Gains.
	Preset  string               `yaml:"preset"`
	Presets map[string][]float64 `yaml:"presets" validate:"dive,len=10"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stderr" validate:"oneof=stdout stderr file"`
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn warning error"`
	File   string `yaml:"file" validate:"required_if=Output file"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the default configuration with environment overrides applied.
func Default() (*Config, error) {
	var cfg Config
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	// Override with environment variables
	c.overrideFromEnv()

	if err := defaults.Set(c); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "config validation failed")
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("ONEAMP_OUTPUT_BACKEND"); v != "" {
		c.Output.Backend = v
	}
	if v := os.Getenv("ONEAMP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ONEAMP_EQ_PRESET"); v != "" {
		c.Equalizer.Preset = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// BackendSettings returns the settings map for the named backend.
func (c *Config) BackendSettings(name string) map[string]any {
	return c.Output.Settings[name]
}

// EqEnabled reports whether the equalizer starts enabled.
func (c *Config) EqEnabled() bool {
	return c.Equalizer.Enabled == nil || *c.Equalizer.Enabled
}

// TickInterval returns the engine wait between steps.
func (c *EngineConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// PositionInterval returns the minimum spacing of position events.
func (c *EngineConfig) PositionInterval() time.Duration {
	return time.Duration(c.PositionIntervalMs) * time.Millisecond
}

// VisualizationInterval returns the minimum spacing of visualization events.
func (c *EngineConfig) VisualizationInterval() time.Duration {
	if c.VisualizationIntervalMs == nil {
		return 33 * time.Millisecond
	}
	return time.Duration(*c.VisualizationIntervalMs) * time.Millisecond
}
