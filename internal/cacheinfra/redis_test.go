package cacheinfra

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

// Set SCRIPTCACHE_REDIS_ADDR (host:port) to run these against a live server.
func redisBackend(t *testing.T) *RedisBackend {
	t.Helper()

	addr := os.Getenv("SCRIPTCACHE_REDIS_ADDR")
	if addr == "" {
		t.Skip("SCRIPTCACHE_REDIS_ADDR not set")
	}

	cfg := DefaultRedisConfig()
	cfg.Addr = addr
	b, err := NewRedisBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to connect to redis at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestRedisBackend(t *testing.T) {
	b := redisBackend(t)
	exerciseBackend(t, b, "scriptcache-test:"+uuid.NewString()+":")
}

func TestEscapeGlob(t *testing.T) {
	tests := map[string]string{
		"script:list:":        "script:list:",
		"script:versions:a*b": `script:versions:a\*b`,
		"q?[x]":               `q\?\[x\]`,
		`back\slash`:          `back\\slash`,
	}
	for in, want := range tests {
		if got := escapeGlob(in); got != want {
			t.Errorf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedisConfig_Validate(t *testing.T) {
	if err := DefaultRedisConfig().Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cfg := DefaultRedisConfig()
	cfg.Addr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an empty address")
	}
}
