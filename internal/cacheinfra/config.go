package cacheinfra

import "time"

// SturdycConfig holds the settings of the in-process sturdyc backend.
type SturdycConfig struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the upper bound on any entry's lifetime. Shorter per-entry TTLs
	// are enforced by the adapter. Must be greater than 0. Default: 24h
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultSturdycConfig returns a SturdycConfig with sensible defaults.
func DefaultSturdycConfig() SturdycConfig {
	return SturdycConfig{
		Capacity:           10000,
		NumShards:          256,
		TTL:                24 * time.Hour,
		EvictionPercentage: 10,
	}
}

// Validate checks if the configuration values are valid.
func (c SturdycConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

// RedisConfig holds the connection settings of the redis backend.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	// ScanCount is the COUNT hint used while scanning for a prefix. Default: 100
	ScanCount int64
}

// DefaultRedisConfig targets a local server.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		DialTimeout: 5 * time.Second,
		ScanCount:   100,
	}
}

// Validate checks if the configuration values are valid.
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return &ConfigError{Field: "Addr", Message: "cannot be empty"}
	}
	if c.DB < 0 {
		return &ConfigError{Field: "DB", Message: "must be non-negative"}
	}
	if c.ScanCount <= 0 {
		return &ConfigError{Field: "ScanCount", Message: "must be greater than 0"}
	}
	return nil
}

// RistrettoConfig holds the sizing of the ristretto backend.
type RistrettoConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

// DefaultRistrettoConfig sizes the cache for roughly 100k entries and 64MiB.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 1_000_000,
		MaxCost:     64 << 20,
		BufferItems: 64,
	}
}

// Validate checks if the configuration values are valid.
func (c RistrettoConfig) Validate() error {
	if c.NumCounters <= 0 {
		return &ConfigError{Field: "NumCounters", Message: "must be greater than 0"}
	}
	if c.MaxCost <= 0 {
		return &ConfigError{Field: "MaxCost", Message: "must be greater than 0"}
	}
	if c.BufferItems <= 0 {
		return &ConfigError{Field: "BufferItems", Message: "must be greater than 0"}
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
	return "config error in field " + e.Field + ": " + e.Message
}
