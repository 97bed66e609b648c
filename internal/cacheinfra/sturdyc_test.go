package cacheinfra

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDefaultSturdycConfig(t *testing.T) {
	cfg := DefaultSturdycConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}
	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}
	if cfg.TTL != 24*time.Hour {
		t.Errorf("expected TTL to be 24 hours, got %v", cfg.TTL)
	}
	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestSturdycConfig_Validate(t *testing.T) {
	valid := DefaultSturdycConfig()

	tests := []struct {
		name   string
		mutate func(*SturdycConfig)
		field  string
	}{
		{name: "zero capacity", mutate: func(c *SturdycConfig) { c.Capacity = 0 }, field: "Capacity"},
		{name: "zero shards", mutate: func(c *SturdycConfig) { c.NumShards = 0 }, field: "NumShards"},
		{name: "zero ttl", mutate: func(c *SturdycConfig) { c.TTL = 0 }, field: "TTL"},
		{name: "eviction too low", mutate: func(c *SturdycConfig) { c.EvictionPercentage = 0 }, field: "EvictionPercentage"},
		{name: "eviction too high", mutate: func(c *SturdycConfig) { c.EvictionPercentage = 101 }, field: "EvictionPercentage"},
		{name: "negative interval", mutate: func(c *SturdycConfig) { c.EvictionInterval = -time.Second }, field: "EvictionInterval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	want := "config error in field TTL: must be greater than 0"

	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func newTestSturdyc(t *testing.T) *SturdycBackend {
	t.Helper()
	b, err := NewSturdycBackend(SturdycConfig{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Hour,
		EvictionPercentage: 10,
	})
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	return b
}

func TestSturdycBackend(t *testing.T) {
	exerciseBackend(t, newTestSturdyc(t), "")
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSturdycBackend_EntryTTL(t *testing.T) {
	ctx := context.Background()
	b := newTestSturdyc(t)
	clock := &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b.now = clock.Now

	if err := b.Set(ctx, "short", []byte("x"), 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := b.Set(ctx, "long", []byte("y"), 30*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	clock.Advance(6 * time.Minute)

	if _, ok, _ := b.Get(ctx, "short"); ok {
		t.Error("expected the short entry to expire")
	}
	if _, ok, _ := b.Get(ctx, "long"); !ok {
		t.Error("expected the long entry to survive")
	}
}

func TestSturdycBackend_ExpiredLockCanBeRetaken(t *testing.T) {
	ctx := context.Background()
	b := newTestSturdyc(t)
	clock := &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b.now = clock.Now

	if ok, _ := b.SetIfAbsent(ctx, "lock", []byte("1"), time.Minute); !ok {
		t.Fatal("expected first acquisition")
	}
	if ok, _ := b.SetIfAbsent(ctx, "lock", []byte("1"), time.Minute); ok {
		t.Fatal("expected held lock to block")
	}

	clock.Advance(2 * time.Minute)

	if ok, _ := b.SetIfAbsent(ctx, "lock", []byte("1"), time.Minute); !ok {
		t.Error("expected an expired lock to be acquirable")
	}
}

func TestNewSturdycBackend_InvalidConfig(t *testing.T) {
	if _, err := NewSturdycBackend(SturdycConfig{}); err == nil {
		t.Fatal("expected an error for an empty config")
	}
}
