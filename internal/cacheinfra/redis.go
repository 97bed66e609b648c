package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisBackend is a shared backend on a redis server.
type RedisBackend struct {
	rdb         goredis.UniversalClient
	scanCount   int64
	closeClient bool
}

// NewRedisBackend dials a redis server and checks it responds.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &RedisBackend{rdb: rdb, scanCount: cfg.ScanCount, closeClient: true}, nil
}

// NewRedisBackendFromClient wraps a client owned by the caller. Close leaves
// the client open.
func NewRedisBackendFromClient(rdb goredis.UniversalClient, scanCount int64) *RedisBackend {
	if scanCount <= 0 {
		scanCount = DefaultRedisConfig().ScanCount
	}
	return &RedisBackend{rdb: rdb, scanCount: scanCount}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return b.rdb.Set(ctx, key, value, ttl).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

// DeleteByPrefix walks the keyspace with SCAN and deletes matches page by page.
func (b *RedisBackend) DeleteByPrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := b.rdb.Scan(ctx, cursor, pattern, b.scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := b.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// SetIfAbsent maps to SET NX with an expiry.
func (b *RedisBackend) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return b.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Close releases the client only when this backend dialed it.
func (b *RedisBackend) Close() error {
	if !b.closeClient {
		return nil
	}
	if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
