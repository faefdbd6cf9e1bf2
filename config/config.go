// Package config loads the settings of the mixseq command line tools: the
// defaults, merged with a YAML file and overridden by MIXSEQ_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		Audio    AudioConfig
		Session  SessionConfig
		MIDI     MIDIConfig
		LogLevel slog.Level
		// MetricsAddr is the address to serve /metrics on; empty disables
		// serving metrics.
		MetricsAddr string
	}

	AudioConfig struct {
		SampleRate int
		Format     string // "float32" or "int16"
		BufferSize time.Duration
		Lookahead  time.Duration
	}

	SessionConfig struct {
		// Template is the path of a session template; empty means the
		// built-in one.
		Template     string
		UndoCapacity int
		SampleDir    string
	}

	MIDIConfig struct {
		// Port is a case-insensitive substring of the output port name. The
		// tracks get MIDI instruments instead of samplers when it is set.
		Port    string
		Channel int
	}

	// fileConfig mirrors Config in the YAML file. Pointers and zero values
	// mean "not set", so that the file only overrides what it mentions.
	fileConfig struct {
		Audio struct {
			SampleRate int           `yaml:"sampleRate"`
			Format     string        `yaml:"format"`
			BufferSize time.Duration `yaml:"bufferSize"`
			Lookahead  time.Duration `yaml:"lookahead"`
		} `yaml:"audio"`
		Session struct {
			Template     string `yaml:"template"`
			UndoCapacity int    `yaml:"undoCapacity"`
			SampleDir    string `yaml:"sampleDir"`
		} `yaml:"session"`
		MIDI struct {
			Port    string `yaml:"port"`
			Channel *int   `yaml:"channel"`
		} `yaml:"midi"`
		LogLevel    string `yaml:"logLevel"`
		MetricsAddr string `yaml:"metricsAddr"`
	}
)

const (
	FormatFloat32 = "float32"
	FormatInt16   = "int16"

	envPrefix = "MIXSEQ_"
)

func Default() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: 44100,
			Format:     FormatFloat32,
			BufferSize: 20 * time.Millisecond,
			Lookahead:  50 * time.Millisecond,
		},
		Session:  SessionConfig{UndoCapacity: 50},
		LogLevel: slog.LevelInfo,
	}
}

// Load returns the defaults merged with the file at path and the
// environment overrides. An empty path skips the file. The result is
// validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("could not read config: %w", err)
		}
		if err := Merge(&cfg, data); err != nil {
			return Config{}, fmt.Errorf("could not parse config %v: %w", path, err)
		}
	}
	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge overrides the fields of dst set in the YAML data.
func Merge(dst *Config, data []byte) error {
	var src fileConfig
	if err := yaml.Unmarshal(data, &src); err != nil {
		return err
	}
	if src.Audio.SampleRate != 0 {
		dst.Audio.SampleRate = src.Audio.SampleRate
	}
	if src.Audio.Format != "" {
		dst.Audio.Format = src.Audio.Format
	}
	if src.Audio.BufferSize != 0 {
		dst.Audio.BufferSize = src.Audio.BufferSize
	}
	if src.Audio.Lookahead != 0 {
		dst.Audio.Lookahead = src.Audio.Lookahead
	}
	if src.Session.Template != "" {
		dst.Session.Template = src.Session.Template
	}
	if src.Session.UndoCapacity != 0 {
		dst.Session.UndoCapacity = src.Session.UndoCapacity
	}
	if src.Session.SampleDir != "" {
		dst.Session.SampleDir = src.Session.SampleDir
	}
	if src.MIDI.Port != "" {
		dst.MIDI.Port = src.MIDI.Port
	}
	if src.MIDI.Channel != nil {
		dst.MIDI.Channel = *src.MIDI.Channel
	}
	if src.LogLevel != "" {
		if err := dst.LogLevel.UnmarshalText([]byte(src.LogLevel)); err != nil {
			return err
		}
	}
	if src.MetricsAddr != "" {
		dst.MetricsAddr = src.MetricsAddr
	}
	return nil
}

// ApplyEnvOverrides overrides cfg with the MIXSEQ_* environment variables
// that are set, e.g. MIXSEQ_SAMPLE_RATE or MIXSEQ_MIDI_PORT.
func ApplyEnvOverrides(cfg *Config) error {
	var errs []error
	envInt("SAMPLE_RATE", &cfg.Audio.SampleRate, &errs)
	envString("AUDIO_FORMAT", &cfg.Audio.Format)
	envDuration("BUFFER_SIZE", &cfg.Audio.BufferSize, &errs)
	envDuration("LOOKAHEAD", &cfg.Audio.Lookahead, &errs)
	envString("TEMPLATE", &cfg.Session.Template)
	envInt("UNDO_CAPACITY", &cfg.Session.UndoCapacity, &errs)
	envString("SAMPLE_DIR", &cfg.Session.SampleDir)
	envString("MIDI_PORT", &cfg.MIDI.Port)
	envInt("MIDI_CHANNEL", &cfg.MIDI.Channel, &errs)
	envString("METRICS_ADDR", &cfg.MetricsAddr)
	if raw := envValue("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			errs = append(errs, fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err))
		}
	}
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample rate %d out of range [8000, 192000]", c.Audio.SampleRate))
	}
	if c.Audio.Format != FormatFloat32 && c.Audio.Format != FormatInt16 {
		errs = append(errs, fmt.Errorf("audio format %q is not %s or %s", c.Audio.Format, FormatFloat32, FormatInt16))
	}
	if c.Audio.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("buffer size %v is not positive", c.Audio.BufferSize))
	}
	if c.Audio.Lookahead < 0 {
		errs = append(errs, fmt.Errorf("lookahead %v is negative", c.Audio.Lookahead))
	}
	if c.Session.UndoCapacity < 1 {
		errs = append(errs, fmt.Errorf("undo capacity %d is less than 1", c.Session.UndoCapacity))
	}
	if c.MIDI.Channel < 0 || c.MIDI.Channel > 15 {
		errs = append(errs, fmt.Errorf("MIDI channel %d out of range [0, 15]", c.MIDI.Channel))
	}
	return errors.Join(errs...)
}

// BufferFrames returns the audio buffer size in frames.
func (c AudioConfig) BufferFrames() int {
	return max(int(math.Round(c.BufferSize.Seconds()*float64(c.SampleRate))), 1)
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func envString(key string, dst *string) {
	if v := envValue(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int, errs *[]error) {
	raw := envValue(key)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
		return
	}
	*dst = v
}

func envDuration(key string, dst *time.Duration, errs *[]error) {
	raw := envValue(key)
	if raw == "" {
		return
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
		return
	}
	*dst = v
}
