// Package scriptcache composes the content store, the cache manager, the
// cache monitor and the warmup scheduler into the operations exposed to the
// HTTP layer.
//
// Reads go through the cache with an explicit lookup, fetch and fill
// (cache.GetOrFetch). Writes go to the store first and invalidate the
// affected cache entries only after the store has committed. A cache that is
// down never fails a call; reads fall back to the store.
//
// Basic usage:
//
//	store := content.NewStore(db)
//	mon := monitor.New()
//	mgr := cache.NewManager(backend, cache.WithObserver(mon))
//	sched, _ := warmup.New(store, mgr, warmup.DefaultConfig())
//	svc := scriptcache.New(store, mgr, mon, sched)
//
//	item, err := svc.GetItem(ctx, id)
package scriptcache

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-script-cache/cache"
	"github.com/goliatone/go-script-cache/content"
	"github.com/goliatone/go-script-cache/logging"
	"github.com/goliatone/go-script-cache/monitor"
	"github.com/goliatone/go-script-cache/warmup"
)

// Store is the authoritative side of the Service.
type Store interface {
	warmup.Source

	CreateItem(ctx context.Context, fields content.ItemFields, actor content.Actor) (*content.Item, error)
	CreateNewVersion(ctx context.Context, parentID content.ItemID, actor content.Actor) (*content.Item, error)
	GetItem(ctx context.Context, id content.ItemID) (*content.Item, error)
	ListItems(ctx context.Context, filter content.Filter) (content.ListResult, error)
	UpdateItem(ctx context.Context, id content.ItemID, patch content.ItemPatch, actor content.Actor) (before, after *content.Item, err error)
	DeleteItem(ctx context.Context, id content.ItemID) (*content.Item, error)
	AttachTag(ctx context.Context, itemID content.ItemID, tagID content.TagID, actor content.Actor) (*content.ItemTag, error)
	DetachTag(ctx context.Context, itemID content.ItemID, tagID content.TagID) error
	ItemTagIDs(ctx context.Context, itemID content.ItemID) ([]content.TagID, error)
}

// Metrics is the live counter side of the Service.
type Metrics interface {
	Stats() monitor.Stats
	Clear()
}

// Warmer runs a lock-guarded warmup.
type Warmer interface {
	Run(ctx context.Context) bool
}

var (
	_ Store   = (*content.Store)(nil)
	_ Metrics = (*monitor.Monitor)(nil)
	_ Warmer  = (*warmup.Scheduler)(nil)
)

// Service is the cached script API.
type Service struct {
	store   Store
	cache   *cache.Manager
	metrics Metrics
	warmer  Warmer
	logger  logging.Logger
	now     func() time.Time

	mu        sync.Mutex
	lastReset time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: logging.Nop.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

// WithClock sets the time source for statistics resets. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service. A nil warmer makes RunWarmup a no-op.
func New(store Store, manager *cache.Manager, metrics Metrics, warmer Warmer, opts ...Option) *Service {
	s := &Service{
		store:   store,
		cache:   manager,
		metrics: metrics,
		warmer:  warmer,
		logger:  logging.Nop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastReset = s.now()
	return s
}

// CreateItem stores version 1 of a new title.
func (s *Service) CreateItem(ctx context.Context, fields content.ItemFields, actor content.Actor) (*content.Item, error) {
	item, err := s.store.CreateItem(ctx, fields, actor)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateOnCreate(ctx, item)
	return item, nil
}

// CreateNewVersion appends a version to the chain of parentID's title.
func (s *Service) CreateNewVersion(ctx context.Context, parentID content.ItemID, actor content.Actor) (*content.Item, error) {
	item, err := s.store.CreateNewVersion(ctx, parentID, actor)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateOnCreate(ctx, item)
	return item, nil
}

// GetItem returns one item. Not-found results are not cached.
func (s *Service) GetItem(ctx context.Context, id content.ItemID) (*content.Item, error) {
	return cache.GetOrFetch(ctx,
		func(ctx context.Context) (*content.Item, bool) { return s.cache.GetItem(ctx, id) },
		func(ctx context.Context) (*content.Item, error) { return s.store.GetItem(ctx, id) },
		s.cache.SetItem,
	)
}

// ListVersions returns every version of title, newest first.
func (s *Service) ListVersions(ctx context.Context, title string) ([]*content.Item, error) {
	return cache.GetOrFetch(ctx,
		func(ctx context.Context) ([]*content.Item, bool) { return s.cache.GetVersions(ctx, title) },
		func(ctx context.Context) ([]*content.Item, error) { return s.store.ListVersions(ctx, title) },
		func(ctx context.Context, items []*content.Item) { s.cache.SetVersions(ctx, title, items) },
	)
}

// ListItems returns the page of items matching filter.
func (s *Service) ListItems(ctx context.Context, filter content.Filter) (content.ListResult, error) {
	params := filter.Params()
	return cache.GetOrFetch(ctx,
		func(ctx context.Context) (content.ListResult, bool) { return s.cache.GetList(ctx, params) },
		func(ctx context.Context) (content.ListResult, error) { return s.store.ListItems(ctx, filter) },
		func(ctx context.Context, res content.ListResult) { s.cache.SetList(ctx, params, res) },
	)
}

// ItemTags returns the tag ids attached to an item.
func (s *Service) ItemTags(ctx context.Context, id content.ItemID) ([]content.TagID, error) {
	return cache.GetOrFetch(ctx,
		func(ctx context.Context) ([]content.TagID, bool) { return s.cache.GetTags(ctx, id) },
		func(ctx context.Context) ([]content.TagID, error) { return s.store.ItemTagIDs(ctx, id) },
		func(ctx context.Context, ids []content.TagID) { s.cache.SetTags(ctx, id, ids) },
	)
}

// UpdateItem applies patch in place and returns the updated item.
func (s *Service) UpdateItem(ctx context.Context, id content.ItemID, patch content.ItemPatch, actor content.Actor) (*content.Item, error) {
	before, after, err := s.store.UpdateItem(ctx, id, patch, actor)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateOnUpdate(ctx, before, after)
	return after, nil
}

// DeleteItem removes one item. Other versions of its title are kept.
func (s *Service) DeleteItem(ctx context.Context, id content.ItemID) error {
	deleted, err := s.store.DeleteItem(ctx, id)
	if err != nil {
		return err
	}
	s.cache.InvalidateOnDelete(ctx, deleted)
	return nil
}

// AttachTag links an active tag to an item.
func (s *Service) AttachTag(ctx context.Context, itemID content.ItemID, tagID content.TagID, actor content.Actor) (*content.ItemTag, error) {
	rel, err := s.store.AttachTag(ctx, itemID, tagID, actor)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateOnTagChange(ctx, itemID)
	return rel, nil
}

// DetachTag removes a tag from an item.
func (s *Service) DetachTag(ctx context.Context, itemID content.ItemID, tagID content.TagID) error {
	if err := s.store.DetachTag(ctx, itemID, tagID); err != nil {
		return err
	}
	s.cache.InvalidateOnTagChange(ctx, itemID)
	return nil
}

// CacheStats returns the counters recorded by this process.
func (s *Service) CacheStats() monitor.Stats {
	return s.metrics.Stats()
}

// PublishCacheStats writes this process's counters to the shared cache. If
// another process cleared the statistics since this one last looked, the
// local counters are zeroed first.
func (s *Service) PublishCacheStats(ctx context.Context) {
	if at, ok := s.cache.StatsResetAt(ctx); ok && s.observeReset(at) {
		s.metrics.Clear()
		s.logger.Info("cache metrics reset by another process", logging.Fields{
			"reset_at": at.Format(time.RFC3339Nano),
		})
	}
	s.cache.PublishStats(ctx, s.metrics.Stats())
}

// observeReset reports whether at is newer than the last reset seen.
func (s *Service) observeReset(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !at.After(s.lastReset) {
		return false
	}
	s.lastReset = at
	return true
}

// PublishedCacheStats reads the last snapshot any process published.
func (s *Service) PublishedCacheStats(ctx context.Context) (monitor.Stats, bool) {
	var stats monitor.Stats
	ok := s.cache.LoadStats(ctx, &stats)
	return stats, ok
}

// ClearCacheMetrics zeroes the live counters, drops the published snapshot
// and records the reset so that publishers in other processes zero theirs
// on their next publish.
func (s *Service) ClearCacheMetrics(ctx context.Context) {
	at := s.now()
	s.mu.Lock()
	s.lastReset = at
	s.mu.Unlock()

	s.metrics.Clear()
	s.cache.DeleteStats(ctx)
	s.cache.MarkStatsReset(ctx, at)
	s.logger.Info("cache metrics cleared", nil)
}

// RunWarmup warms the cache unless another run holds the warmup lock. It
// blocks until the run ends; callers that do not care about the outcome run
// it in a goroutine. Errors are logged by the scheduler.
func (s *Service) RunWarmup(ctx context.Context) bool {
	if s.warmer == nil {
		return false
	}
	return s.warmer.Run(ctx)
}
