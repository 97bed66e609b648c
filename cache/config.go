package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-script-cache/internal/cacheinfra"
)

// Backend kinds accepted by Config.Backend.
const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendRistretto = "ristretto"
)

// ConfigError reports the invalid field of a Config.
type ConfigError = cacheinfra.ConfigError

// Config selects and sizes the cache backend and the Manager's codec and TTLs.
type Config struct {
	Backend   string          `yaml:"backend"`
	Codec     string          `yaml:"codec"`
	TTL       TTLs            `yaml:"ttl"`
	Memory    MemoryConfig    `yaml:"memory"`
	Redis     RedisConfig     `yaml:"redis"`
	Ristretto RistrettoConfig `yaml:"ristretto"`
}

// MemoryConfig mirrors the in-process sturdyc backend options.
type MemoryConfig struct {
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	TTL                time.Duration `yaml:"ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
}

// RedisConfig mirrors the redis backend options.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	ScanCount   int64         `yaml:"scan_count"`
}

// RistrettoConfig mirrors the ristretto backend options.
type RistrettoConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	memory := cacheinfra.DefaultSturdycConfig()
	redis := cacheinfra.DefaultRedisConfig()
	ristretto := cacheinfra.DefaultRistrettoConfig()

	return Config{
		Backend: BackendMemory,
		Codec:   CodecMsgpack,
		TTL:     DefaultTTLs(),
		Memory: MemoryConfig{
			Capacity:           memory.Capacity,
			NumShards:          memory.NumShards,
			TTL:                memory.TTL,
			EvictionPercentage: memory.EvictionPercentage,
			EvictionInterval:   memory.EvictionInterval,
		},
		Redis: RedisConfig{
			Addr:        redis.Addr,
			Password:    redis.Password,
			DB:          redis.DB,
			DialTimeout: redis.DialTimeout,
			ScanCount:   redis.ScanCount,
		},
		Ristretto: RistrettoConfig{
			NumCounters: ristretto.NumCounters,
			MaxCost:     ristretto.MaxCost,
			BufferItems: ristretto.BufferItems,
		},
	}
}

// Validate checks the selected backend's options, the codec and the TTLs.
func (c Config) Validate() error {
	if _, err := NewCodec(c.Codec); err != nil {
		return &ConfigError{Field: "Codec", Message: err.Error()}
	}

	ttls := []struct {
		field string
		value time.Duration
	}{
		{"TTL.Detail", c.TTL.Detail},
		{"TTL.List", c.TTL.List},
		{"TTL.Versions", c.TTL.Versions},
		{"TTL.Tags", c.TTL.Tags},
		{"TTL.Stats", c.TTL.Stats},
	}
	for _, ttl := range ttls {
		if ttl.value <= 0 {
			return &ConfigError{Field: ttl.field, Message: "must be greater than 0"}
		}
	}

	switch c.Backend {
	case BackendMemory:
		mem := c.memory()
		if err := mem.Validate(); err != nil {
			return err
		}
		for _, ttl := range ttls {
			if ttl.value > mem.TTL {
				return &ConfigError{Field: ttl.field, Message: "cannot exceed Memory.TTL"}
			}
		}
		return nil
	case BackendRedis:
		return c.redis().Validate()
	case BackendRistretto:
		return c.ristretto().Validate()
	default:
		return &ConfigError{Field: "Backend", Message: "must be one of memory, redis, ristretto"}
	}
}

// NewBackend builds the backend selected by cfg.
func NewBackend(ctx context.Context, cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendRedis:
		b, err := cacheinfra.NewRedisBackend(ctx, cfg.redis())
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendRistretto:
		b, err := cacheinfra.NewRistrettoBackend(cfg.ristretto())
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		b, err := cacheinfra.NewSturdycBackend(cfg.memory())
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// NewManagerFromConfig builds a Manager with the codec and TTLs of cfg.
func NewManagerFromConfig(backend Backend, cfg Config, opts ...ManagerOption) (*Manager, error) {
	codec, err := NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	base := []ManagerOption{WithCodec(codec), WithTTLs(cfg.TTL)}
	return NewManager(backend, append(base, opts...)...), nil
}

func (c Config) memory() cacheinfra.SturdycConfig {
	return cacheinfra.SturdycConfig{
		Capacity:           c.Memory.Capacity,
		NumShards:          c.Memory.NumShards,
		TTL:                c.Memory.TTL,
		EvictionPercentage: c.Memory.EvictionPercentage,
		EvictionInterval:   c.Memory.EvictionInterval,
	}
}

func (c Config) redis() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		DialTimeout: c.Redis.DialTimeout,
		ScanCount:   c.Redis.ScanCount,
	}
}

func (c Config) ristretto() cacheinfra.RistrettoConfig {
	return cacheinfra.RistrettoConfig{
		NumCounters: c.Ristretto.NumCounters,
		MaxCost:     c.Ristretto.MaxCost,
		BufferItems: c.Ristretto.BufferItems,
	}
}
