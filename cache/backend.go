package cache

import (
	"context"
	"time"
)

// Backend is the shared key-value store the Manager talks to. Values are
// opaque bytes. Implementations must be safe for concurrent use and may be
// shared with other processes.
type Backend interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	// SetIfAbsent stores value only when key is missing, as one atomic step.
	// It reports whether the value was stored.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Close() error
}

// Observer receives the outcome of every typed get and set the Manager makes.
type Observer interface {
	ObserveGet(prefix string, latency time.Duration, hit bool)
	ObserveSet(prefix string, latency time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveGet(string, time.Duration, bool) {}
func (nopObserver) ObserveSet(string, time.Duration)       {}
