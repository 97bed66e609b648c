// Package warmup populates the script cache from the store ahead of reads.
//
// A Scheduler warms four categories: recently updated items, newest items,
// recently updated active items and the version lists of titles with more
// than one version. Each category is independent and safe to re-run. Run
// executes all four under an advisory lock in the shared cache so that only
// one process warms at a time; a caller that finds the lock held skips the
// run instead of waiting.
//
// Failures stay inside the Scheduler. A failing category is logged and the
// remaining categories still run.
package warmup

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-script-cache/content"
	"github.com/goliatone/go-script-cache/logging"
)

// Source is the read side of the store the Scheduler warms from.
type Source interface {
	RecentlyUpdated(ctx context.Context, limit int) ([]*content.Item, error)
	RecentlyCreated(ctx context.Context, limit int) ([]*content.Item, error)
	ActiveRecentlyUpdated(ctx context.Context, limit int) ([]*content.Item, error)
	VersionedTitles(ctx context.Context, limit int) ([]string, error)
	ListVersions(ctx context.Context, title string) ([]*content.Item, error)
}

// Cache is the part of cache.Manager the Scheduler writes to.
type Cache interface {
	SetItem(ctx context.Context, item *content.Item)
	SetVersions(ctx context.Context, title string, items []*content.Item)
	TryLock(ctx context.Context, key string, ttl time.Duration) bool
	Unlock(ctx context.Context, key string)
}

// Scheduler warms the cache.
type Scheduler struct {
	source Source
	cache  Cache
	cfg    Config
	logger logging.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Default: logging.Nop.
func WithLogger(l logging.Logger) Option {
	return func(s *Scheduler) { s.logger = logging.OrNop(l) }
}

// New creates a Scheduler. An invalid cfg is rejected.
func New(source Source, cache Cache, cfg Config, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		source: source,
		cache:  cache,
		cfg:    cfg,
		logger: logging.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration the Scheduler runs with.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// WithLimit returns a copy of s using cfg.Scale(limit).
func (s *Scheduler) WithLimit(limit int) *Scheduler {
	clone := *s
	clone.cfg = s.cfg.Scale(limit)
	return &clone
}

func (s *Scheduler) warmItems(ctx context.Context, items []*content.Item, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		s.cache.SetItem(ctx, item)
	}
	return len(items), nil
}

// WarmRecentlyUpdated caches the details of the most recently updated items.
func (s *Scheduler) WarmRecentlyUpdated(ctx context.Context) (int, error) {
	items, err := s.source.RecentlyUpdated(ctx, s.cfg.RecentlyUpdated)
	return s.warmItems(ctx, items, err)
}

// WarmLatest caches the details of the newest items.
func (s *Scheduler) WarmLatest(ctx context.Context) (int, error) {
	items, err := s.source.RecentlyCreated(ctx, s.cfg.Latest)
	return s.warmItems(ctx, items, err)
}

// WarmActive caches the details of the most recently updated active items.
func (s *Scheduler) WarmActive(ctx context.Context) (int, error) {
	items, err := s.source.ActiveRecentlyUpdated(ctx, s.cfg.Active)
	return s.warmItems(ctx, items, err)
}

// WarmVersions caches the version lists of titles with more than one
// version, most recently updated titles first. It returns the number of
// titles warmed.
func (s *Scheduler) WarmVersions(ctx context.Context) (int, error) {
	titles, err := s.source.VersionedTitles(ctx, s.cfg.Versions)
	if err != nil {
		return 0, err
	}
	warmed := 0
	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return warmed, err
		}
		versions, err := s.source.ListVersions(ctx, title)
		if err != nil {
			return warmed, fmt.Errorf("versions of %q: %w", title, err)
		}
		s.cache.SetVersions(ctx, title, versions)
		warmed++
	}
	return warmed, nil
}

type category struct {
	name string
	warm func(context.Context) (int, error)
}

func (s *Scheduler) categories() []category {
	return []category{
		{"recently_updated", s.WarmRecentlyUpdated},
		{"latest", s.WarmLatest},
		{"active", s.WarmActive},
		{"versions", s.WarmVersions},
	}
}

// WarmAll runs every category in a fixed order and returns how many entries
// each one warmed. Errors and panics are logged per category and never stop
// the remaining ones.
func (s *Scheduler) WarmAll(ctx context.Context) map[string]int {
	s.logger.Info("cache warmup started", nil)
	started := time.Now()

	counts := make(map[string]int, 4)
	for _, c := range s.categories() {
		n, err := s.safely(ctx, c)
		if err != nil {
			s.logger.Error("cache warmup category failed", logging.Fields{
				"category": c.name,
				"error":    err.Error(),
			})
			continue
		}
		counts[c.name] = n
		s.logger.Info("cache warmup category done", logging.Fields{
			"category": c.name,
			"count":    n,
		})
	}

	s.logger.Info("cache warmup finished", logging.Fields{"duration": time.Since(started).String()})
	return counts
}

func (s *Scheduler) safely(ctx context.Context, c category) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.warm(ctx)
}

// Run warms everything while holding the advisory lock. It returns false
// without touching the store when another run holds the lock. The lock is
// released when the run ends, whatever the outcome.
func (s *Scheduler) Run(ctx context.Context) bool {
	if !s.cache.TryLock(ctx, s.cfg.LockKey, s.cfg.LockTTL) {
		s.logger.Info("cache warmup already in progress", logging.Fields{"lock": s.cfg.LockKey})
		return false
	}
	defer s.cache.Unlock(context.WithoutCancel(ctx), s.cfg.LockKey)

	s.WarmAll(ctx)
	return true
}

// Every calls Run immediately and then once per interval until ctx is done.
// It returns ctx.Err().
func (s *Scheduler) Every(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("warmup interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.Run(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
