package cacheinfra

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/puzpuzpuz/xsync/v3"
)

// RistrettoBackend is an in-process backend on a ristretto cache. Ristretto
// cannot enumerate its keys, so written keys are tracked in a registry for
// prefix deletes. A key that has expired or been evicted leaves the registry
// on the next Get miss.
type RistrettoBackend struct {
	cache *ristretto.Cache
	keys  *xsync.MapOf[string, struct{}]
	mu    sync.Mutex
}

// NewRistrettoBackend builds a ristretto cache from cfg.
func NewRistrettoBackend(cfg RistrettoConfig) (*RistrettoBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoBackend{cache: c, keys: xsync.NewMapOf[string, struct{}]()}, nil
}

func (b *RistrettoBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := b.cache.Get(key)
	if !ok {
		b.forget(key)
		return nil, false, nil
	}
	value, _ := v.([]byte)
	if value == nil {
		b.cache.Del(key)
		b.forget(key)
		return nil, false, nil
	}
	return value, true, nil
}

// forget drops key from the registry once the cache no longer holds it. The
// check runs under mu so a concurrent put of the same key is never lost.
func (b *RistrettoBackend) forget(key string) {
	if _, tracked := b.keys.Load(key); !tracked {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cache.Get(key); !ok {
		b.keys.Delete(key)
	}
}

// Set stores value with its length as cost. Ristretto applies writes
// asynchronously; Set waits until the write is visible.
func (b *RistrettoBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.put(key, value, ttl)
	return nil
}

func (b *RistrettoBackend) put(key string, value []byte, ttl time.Duration) bool {
	if ttl < 0 {
		ttl = 0
	}
	if !b.cache.SetWithTTL(key, value, int64(len(value)), ttl) {
		return false
	}
	b.cache.Wait()
	b.keys.Store(key, struct{}{})
	return true
}

func (b *RistrettoBackend) Delete(_ context.Context, key string) error {
	b.cache.Del(key)
	b.keys.Delete(key)
	return nil
}

func (b *RistrettoBackend) DeleteByPrefix(_ context.Context, prefix string) error {
	b.keys.Range(func(key string, _ struct{}) bool {
		if strings.HasPrefix(key, prefix) {
			b.cache.Del(key)
			b.keys.Delete(key)
		}
		return true
	})
	return nil
}

// SetIfAbsent is atomic with respect to other writers of this backend.
func (b *RistrettoBackend) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.cache.Get(key); ok {
		return false, nil
	}
	return b.put(key, value, ttl), nil
}

func (b *RistrettoBackend) Close() error {
	b.cache.Close()
	return nil
}
