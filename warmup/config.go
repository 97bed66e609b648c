package warmup

import "time"

// DefaultLockKey is the advisory lock held for the duration of a run.
const DefaultLockKey = "script_cache_warming_up"

// Config holds the per-category limits and lock settings of a Scheduler.
type Config struct {
	// RecentlyUpdated is how many of the most recently updated items to warm.
	RecentlyUpdated int `yaml:"recently_updated"`
	// Latest is how many of the newest items to warm.
	Latest int `yaml:"latest"`
	// Active is how many recently updated active items to warm.
	Active int `yaml:"active"`
	// Versions is how many multi-version titles get their version list warmed.
	Versions int `yaml:"versions"`

	LockKey string        `yaml:"lock_key"`
	LockTTL time.Duration `yaml:"lock_ttl"`

	// Interval is the period of Every. Zero disables periodic runs.
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig returns the limits 100/50/200/50 with a one hour lock.
func DefaultConfig() Config {
	return Config{
		RecentlyUpdated: 100,
		Latest:          50,
		Active:          200,
		Versions:        50,
		LockKey:         DefaultLockKey,
		LockTTL:         time.Hour,
	}
}

// Scale derives every category limit from a single base limit: the base for
// recently updated items, half of it for latest items and version lists, and
// twice it for active items.
func (c Config) Scale(limit int) Config {
	c.RecentlyUpdated = limit
	c.Latest = limit / 2
	c.Active = limit * 2
	c.Versions = limit / 2
	return c
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	limits := []struct {
		field string
		value int
	}{
		{"RecentlyUpdated", c.RecentlyUpdated},
		{"Latest", c.Latest},
		{"Active", c.Active},
		{"Versions", c.Versions},
	}
	for _, l := range limits {
		if l.value < 0 {
			return &ConfigError{Field: l.field, Message: "must be non-negative"}
		}
	}
	if c.LockKey == "" {
		return &ConfigError{Field: "LockKey", Message: "must not be empty"}
	}
	if c.LockTTL <= 0 {
		return &ConfigError{Field: "LockTTL", Message: "must be positive"}
	}
	if c.Interval < 0 {
		return &ConfigError{Field: "Interval", Message: "must be non-negative"}
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
	return "warmup config error in field " + e.Field + ": " + e.Message
}
