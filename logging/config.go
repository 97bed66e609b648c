package logging

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

const (
	BackendZap    = "zap"
	BackendLogrus = "logrus"
	BackendNop    = "nop"
)

// Config selects and tunes the logging backend.
type Config struct {
	// Backend is one of "zap", "logrus" or "nop". Default: "zap"
	Backend string `yaml:"backend"`
	// Level is parsed by the backend ("debug", "info", "warn", "error").
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{Backend: BackendZap, Level: "info", Format: "json"}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendZap, BackendLogrus, BackendNop:
	default:
		return &ConfigError{Field: "Backend", Message: "must be one of zap, logrus, nop"}
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return &ConfigError{Field: "Format", Message: "must be json or console"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "logging config error in field " + e.Field + ": " + e.Message
}

// New builds a Logger from the configuration.
func New(cfg Config) (Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendNop:
		return Nop{}, nil
	case BackendLogrus:
		l := logrus.New()
		if cfg.Level != "" {
			lvl, err := logrus.ParseLevel(cfg.Level)
			if err != nil {
				return nil, &ConfigError{Field: "Level", Message: err.Error()}
			}
			l.SetLevel(lvl)
		}
		if cfg.Format != "console" {
			l.SetFormatter(&logrus.JSONFormatter{})
		}
		return Logrus{E: logrus.NewEntry(l)}, nil
	default:
		zc := zap.NewProductionConfig()
		if cfg.Format == "console" {
			zc.Encoding = "console"
		}
		if cfg.Level != "" {
			lvl, err := zap.ParseAtomicLevel(cfg.Level)
			if err != nil {
				return nil, &ConfigError{Field: "Level", Message: err.Error()}
			}
			zc.Level = lvl
		}
		l, err := zc.Build()
		if err != nil {
			return nil, err
		}
		return Zap{L: l}, nil
	}
}
