// Package config loads tapectl configuration files.
//
// The decoder follows the file extension: .toml files use BurntSushi/toml
// and .yaml/.yml files use yaml.v3. Values absent from the file keep their
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/arloliu/mdwire/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config is the tapectl configuration.
type Config struct {
	Tape      string  `toml:"tape" yaml:"tape"`
	Location  string  `toml:"location" yaml:"location"`
	Direction string  `toml:"direction" yaml:"direction"`
	Log       Log     `toml:"log" yaml:"log"`
	Metrics   Metrics `toml:"metrics" yaml:"metrics"`
	Sample    Sample  `toml:"sample" yaml:"sample"`
	Writer    Writer  `toml:"writer" yaml:"writer"`
}

// Log configures logging.
type Log struct {
	Level   string `toml:"level" yaml:"level"`
	JSON    bool   `toml:"json" yaml:"json"`
	NoColor bool   `toml:"no_color" yaml:"no_color"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// Sample holds sampling defaults for the sample command.
type Sample struct {
	Interval string   `toml:"interval" yaml:"interval"`
	Fields   []string `toml:"fields" yaml:"fields"`
}

// Writer holds layout defaults for generated tapes.
type Writer struct {
	MaxRecords  uint32 `toml:"max_records" yaml:"max_records"`
	SecPerIndex uint32 `toml:"sec_per_index" yaml:"sec_per_index"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Location:  "Local",
		Direction: "chronological",
		Log:       Log{Level: "info"},
		Sample:    Sample{Interval: "60s"},
		Writer:    Writer{MaxRecords: 4096, SecPerIndex: 60},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := c.TimeLocation(); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Direction)) {
	case "chronological", "reverse":
	default:
		return fmt.Errorf("config: direction %q must be chronological or reverse", c.Direction)
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	if _, err := c.SampleInterval(); err != nil {
		return err
	}

	return nil
}

// TimeLocation resolves Location. Empty and "Local" mean time.Local.
func (c *Config) TimeLocation() (*time.Location, error) {
	switch strings.TrimSpace(c.Location) {
	case "", "Local":
		return time.Local, nil
	default:
		loc, err := time.LoadLocation(c.Location)
		if err != nil {
			return nil, fmt.Errorf("config: location: %w", err)
		}

		return loc, nil
	}
}

// SampleInterval parses Sample.Interval as a duration.
func (c *Config) SampleInterval() (time.Duration, error) {
	if strings.TrimSpace(c.Sample.Interval) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Sample.Interval)
	if err != nil {
		return 0, fmt.Errorf("config: sample interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: sample interval %s is negative", d)
	}

	return d, nil
}

// Reverse reports whether Direction selects reverse replay.
func (c *Config) Reverse() bool {
	return strings.EqualFold(strings.TrimSpace(c.Direction), "reverse")
}

// Logging converts the log section to a logging.Config.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Log.Level
	lc.JSON = c.Log.JSON
	lc.NoColor = c.Log.NoColor

	return lc
}
