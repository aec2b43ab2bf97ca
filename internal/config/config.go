// Package config loads runner settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is read from the working directory when no path is given.
const DefaultFileName = "segsweep.toml"

// Features the segmenter is known to accept.
var KnownFeatures = []string{"mfcc", "hpcp", "tonnetz"}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type Config struct {
	Segmenter        string `toml:"segmenter"`
	Jobs             int    `toml:"jobs"`
	Dataset          string `toml:"dataset"`
	CheckExit        bool   `toml:"check_exit"`
	SharedBoundsFile bool   `toml:"shared_bounds_file"`
	ScratchDir       string `toml:"scratch_dir"`
	MetricsAddr      string `toml:"metrics_addr"`
	NatsURL          string `toml:"nats_url"`
	NatsSubject      string `toml:"nats_subject"`
	Log              Log    `toml:"log"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Segmenter: "./segmenter",
		Jobs:      4,
		Dataset:   "*",
		Log: Log{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load starts from Default, overlays the TOML file at path and then the
// environment. An empty path reads DefaultFileName if it exists.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SEGSWEEP_NATS_URL"); v != "" {
		c.NatsURL = v
	}
	if v := os.Getenv("SEGSWEEP_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("SEGSWEEP_SEGMENTER"); v != "" {
		c.Segmenter = v
	}
}

func (c *Config) normalize() {
	c.Segmenter = strings.TrimSpace(c.Segmenter)
	c.Dataset = strings.TrimSpace(c.Dataset)
	if c.Dataset == "" {
		c.Dataset = "*"
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate reports settings the runner cannot work with.
func (c Config) Validate() error {
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Segmenter == "" {
		return errors.New("segmenter path is empty")
	}
	switch c.Log.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("log format: unsupported value %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level: unsupported value %q", c.Log.Level)
	}
	return nil
}

// IsKnownFeature reports whether name is one of KnownFeatures.
func IsKnownFeature(name string) bool {
	for _, f := range KnownFeatures {
		if f == name {
			return true
		}
	}
	return false
}
