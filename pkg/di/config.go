package di

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-script-cache/cache"
	"github.com/goliatone/go-script-cache/content"
	"github.com/goliatone/go-script-cache/logging"
	"github.com/goliatone/go-script-cache/warmup"
)

// Config aggregates the configuration of every component the Container builds.
type Config struct {
	Store   content.Config `yaml:"store"`
	Cache   cache.Config   `yaml:"cache"`
	Warmup  warmup.Config  `yaml:"warmup"`
	Stats   StatsConfig    `yaml:"stats"`
	Logging logging.Config `yaml:"logging"`
}

// StatsConfig controls how often a running process publishes its cache
// statistics to the shared backend. A zero interval disables publishing.
type StatsConfig struct {
	PublishInterval time.Duration `yaml:"publish_interval"`
}

// DefaultStatsConfig publishes once a minute.
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{PublishInterval: time.Minute}
}

// Validate rejects a negative interval.
func (c StatsConfig) Validate() error {
	if c.PublishInterval < 0 {
		return errors.New("publish_interval must not be negative")
	}
	return nil
}

// DefaultConfig returns the defaults of every component.
func DefaultConfig() Config {
	return Config{
		Store:   content.DefaultConfig(),
		Cache:   cache.DefaultConfig(),
		Warmup:  warmup.DefaultConfig(),
		Stats:   DefaultStatsConfig(),
		Logging: logging.DefaultConfig(),
	}
}

// Validate checks every section and returns the first invalid one.
func (c Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Warmup.Validate(); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	if err := c.Stats.Validate(); err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// LoadConfig reads a YAML file and overlays it on DefaultConfig. Keys absent
// from the file keep their default. Durations are written as "5m", "1h".
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML onto DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
