package session

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// Config is the configuration of a session, read from a YAML file.
	// Fields missing from the file keep their default values.
	Config struct {
		SampleRate    int             `yaml:"sample_rate"`
		BufferSize    int             `yaml:"buffer_size"`
		OutputLatency time.Duration   `yaml:"output_latency"`
		LogLevel      string          `yaml:"log_level"`
		MIDIInput     string          `yaml:"midi_input,omitempty"` // prefix of the MIDI input device name; "*" takes the first device
		OKSound       string          `yaml:"ok_sound,omitempty"`   // wave file played after every successful change
		Metronome     MetronomeConfig `yaml:"metronome"`
		Samples       []string        `yaml:"samples,omitempty"` // wave files offered as sample: plugins
		Tracks        []TrackConfig   `yaml:"tracks,omitempty"`
	}

	MetronomeConfig struct {
		BPM    float64 `yaml:"bpm"`
		Volume float32 `yaml:"volume"`
	}

	// TrackConfig is a track created when the session starts.
	TrackConfig struct {
		Name    string   `yaml:"name,omitempty"`
		Plugins []string `yaml:"plugins,omitempty"`
		Volume  *float32 `yaml:"volume,omitempty"`
		Armed   bool     `yaml:"armed,omitempty"`
	}
)

//go:embed config.yml
var defaultConfigYaml []byte

// DefaultConfig returns the configuration used when there is no config file.
func DefaultConfig() Config {
	var c Config
	if err := decodeConfig(defaultConfigYaml, &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// DefaultConfigPath returns the path of the config file in the user config
// directory.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "leebee", "config.yml"), nil
}

// ParseConfig parses a YAML document on top of DefaultConfig and validates
// the result. Unknown fields are an error.
func ParseConfig(b []byte) (Config, error) {
	c := DefaultConfig()
	if err := decodeConfig(b, &c); err != nil {
		return Config{}, fmt.Errorf("could not parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig reads and parses the config file at path.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config: %w", err)
	}
	c, err := ParseConfig(b)
	if err != nil {
		return Config{}, fmt.Errorf("%v: %w", path, err)
	}
	return c, nil
}

func decodeConfig(b []byte, c *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the ranges of the fields. The error names the first
// offending field.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample_rate: must be positive, got %d", c.SampleRate)
	case c.BufferSize <= 0:
		return fmt.Errorf("buffer_size: must be positive, got %d", c.BufferSize)
	case c.OutputLatency < 0:
		return fmt.Errorf("output_latency: must not be negative, got %v", c.OutputLatency)
	case c.Metronome.BPM <= 0:
		return fmt.Errorf("metronome.bpm: must be positive, got %v", c.Metronome.BPM)
	case c.Metronome.Volume < 0:
		return fmt.Errorf("metronome.volume: must not be negative, got %v", c.Metronome.Volume)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	armed := 0
	for i, t := range c.Tracks {
		if t.Volume != nil && *t.Volume < 0 {
			return fmt.Errorf("tracks[%d].volume: must not be negative, got %v", i, *t.Volume)
		}
		if t.Armed {
			armed++
		}
	}
	if armed > 1 {
		return fmt.Errorf("tracks: %d tracks armed, at most one can be", armed)
	}
	return nil
}

// ParseLevel parses a log level name: debug, info, warn or error. The empty
// string is info.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}
