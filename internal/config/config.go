// Package config holds the tunables of a rhythm session.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	TotalTicks    int           `yaml:"total_ticks"`
	TicksPerBeat  int           `yaml:"ticks_per_beat"`
	BPM           float64       `yaml:"bpm"`
	Lookahead     float64       `yaml:"lookahead"`
	FallbackGrace time.Duration `yaml:"fallback_grace"`
	UnlockTimeout time.Duration `yaml:"unlock_timeout"`
	SampleRate    int           `yaml:"sample_rate"`
	Volume        float64       `yaml:"volume"`
	NoiseLayer    bool          `yaml:"noise_layer"`
	Catalog       string        `yaml:"catalog,omitempty"`
	LogLevel      string        `yaml:"log_level"`
}

func Default() Config {
	return Config{
		TotalTicks:    16,
		TicksPerBeat:  4,
		BPM:           70,
		Lookahead:     0.06,
		FallbackGrace: 120 * time.Millisecond,
		UnlockTimeout: 500 * time.Millisecond,
		SampleRate:    48000,
		Volume:        1,
		NoiseLayer:    true,
		LogLevel:      "info",
	}
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.TotalTicks <= 0:
		return errors.Errorf("total_ticks must be positive, got %d", c.TotalTicks)
	case c.TicksPerBeat <= 0:
		return errors.Errorf("ticks_per_beat must be positive, got %d", c.TicksPerBeat)
	case c.BPM <= 0:
		return errors.Errorf("bpm must be positive, got %v", c.BPM)
	case c.Lookahead < 0:
		return errors.Errorf("lookahead must not be negative, got %v", c.Lookahead)
	case c.FallbackGrace < 0:
		return errors.Errorf("fallback_grace must not be negative, got %v", c.FallbackGrace)
	case c.UnlockTimeout < 0:
		return errors.Errorf("unlock_timeout must not be negative, got %v", c.UnlockTimeout)
	case c.SampleRate <= 0:
		return errors.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	case c.Volume < 0 || c.Volume > 1:
		return errors.Errorf("volume must be within [0,1], got %v", c.Volume)
	}
	return nil
}

// Decode reads YAML over the defaults; fields not present keep their
// default values and unknown fields are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// TotalSeconds is the length of one bar.
func (c Config) TotalSeconds() float64 {
	return float64(c.TotalTicks) * 60 / c.BPM / float64(c.TicksPerBeat)
}
