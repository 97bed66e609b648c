package cacheinfra

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/viccon/sturdyc"
)

// entry wraps a value with its own deadline. sturdyc applies a single TTL to
// the whole client, so shorter lifetimes are checked on read.
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// SturdycBackend is an in-process backend on top of a sturdyc client.
type SturdycBackend struct {
	client *sturdyc.Client[entry]
	ttl    time.Duration
	now    func() time.Time

	// mu makes SetIfAbsent a single step with respect to other writers.
	mu sync.Mutex
}

// NewSturdycBackend creates a new sturdyc backend.
// It validates the configuration and initializes a sturdyc client with the provided settings.
func NewSturdycBackend(cfg SturdycConfig) (*SturdycBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		opts...,
	)

	return &SturdycBackend{client: client, ttl: cfg.TTL, now: time.Now}, nil
}

func (b *SturdycBackend) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 || ttl >= b.ttl {
		return time.Time{}
	}
	return b.now().Add(ttl)
}

func (b *SturdycBackend) lookup(key string) ([]byte, bool) {
	e, ok := b.client.Get(key)
	if !ok {
		return nil, false
	}
	if e.expired(b.now()) {
		b.client.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Get returns the stored bytes. Callers must not modify them.
func (b *SturdycBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := b.lookup(key)
	return value, ok, nil
}

// Set stores value for ttl, capped at the client TTL.
func (b *SturdycBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client.Set(key, entry{value: value, expiresAt: b.deadline(ttl)})
	return nil
}

// Delete removes a single entry.
func (b *SturdycBackend) Delete(_ context.Context, key string) error {
	b.client.Delete(key)
	return nil
}

// DeleteByPrefix removes all entries whose key starts with prefix.
func (b *SturdycBackend) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range b.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			b.client.Delete(key)
		}
	}
	return nil
}

// SetIfAbsent stores value only when key is missing or expired.
func (b *SturdycBackend) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.lookup(key); ok {
		return false, nil
	}
	b.client.Set(key, entry{value: value, expiresAt: b.deadline(ttl)})
	return true, nil
}

// Size reports the number of stored entries, expired ones included.
func (b *SturdycBackend) Size() int {
	return b.client.Size()
}

// Close is a no-op; the client holds no external resources.
func (b *SturdycBackend) Close() error {
	return nil
}
