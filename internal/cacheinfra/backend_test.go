package cacheinfra

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Close() error
}

var (
	_ backend = (*SturdycBackend)(nil)
	_ backend = (*RistrettoBackend)(nil)
	_ backend = (*RedisBackend)(nil)
)

// exerciseBackend runs the behaviour every backend must share. Keys are
// namespaced so the suite can run against a shared server.
func exerciseBackend(t *testing.T, b backend, ns string) {
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		_, ok, err := b.Get(ctx, ns+"missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected a miss")
		}
	})

	t.Run("set then get", func(t *testing.T) {
		if err := b.Set(ctx, ns+"k1", []byte("v1"), time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, ok, err := b.Get(ctx, ns+"k1")
		if err != nil || !ok {
			t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
		}
		if string(got) != "v1" {
			t.Errorf("expected v1, got %q", got)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := b.Set(ctx, ns+"k1", []byte("v2"), time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, _, _ := b.Get(ctx, ns+"k1")
		if string(got) != "v2" {
			t.Errorf("expected v2, got %q", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := b.Delete(ctx, ns+"k1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, ok, _ := b.Get(ctx, ns+"k1"); ok {
			t.Error("expected key to be gone")
		}
		if err := b.Delete(ctx, ns+"never-set"); err != nil {
			t.Errorf("expected deleting a missing key to succeed, got %v", err)
		}
	})

	t.Run("delete by prefix", func(t *testing.T) {
		keys := []string{ns + "script:list:a", ns + "script:list:b", ns + "script:detail:a"}
		for _, key := range keys {
			if err := b.Set(ctx, key, []byte("x"), time.Minute); err != nil {
				t.Fatalf("set %s: %v", key, err)
			}
		}

		if err := b.DeleteByPrefix(ctx, ns+"script:list:"); err != nil {
			t.Fatalf("delete by prefix: %v", err)
		}

		for key, want := range map[string]bool{keys[0]: false, keys[1]: false, keys[2]: true} {
			if _, ok, _ := b.Get(ctx, key); ok != want {
				t.Errorf("key %s: expected present=%v, got %v", key, want, ok)
			}
		}
	})

	t.Run("set if absent", func(t *testing.T) {
		key := ns + "lock"
		ok, err := b.SetIfAbsent(ctx, key, []byte("1"), time.Minute)
		if err != nil || !ok {
			t.Fatalf("expected first acquisition, got ok=%v err=%v", ok, err)
		}
		ok, err = b.SetIfAbsent(ctx, key, []byte("2"), time.Minute)
		if err != nil || ok {
			t.Fatalf("expected second acquisition to fail, got ok=%v err=%v", ok, err)
		}
		got, _, _ := b.Get(ctx, key)
		if string(got) != "1" {
			t.Errorf("expected the first value to be kept, got %q", got)
		}

		if err := b.Delete(ctx, key); err != nil {
			t.Fatalf("delete: %v", err)
		}
		ok, err = b.SetIfAbsent(ctx, key, []byte("3"), time.Minute)
		if err != nil || !ok {
			t.Fatalf("expected acquisition after release, got ok=%v err=%v", ok, err)
		}
		_ = b.Delete(ctx, key)
	})

	t.Run("set if absent under contention", func(t *testing.T) {
		key := ns + "contended"
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, err := b.SetIfAbsent(ctx, key, []byte("1"), time.Minute); err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if wins.Load() != 1 {
			t.Errorf("expected exactly one winner, got %d", wins.Load())
		}
		_ = b.Delete(ctx, key)
	})
}
