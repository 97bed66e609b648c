package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-script-cache/content"
	"github.com/goliatone/go-script-cache/logging"
)

// TTLs are the lifetimes of each entry class.
type TTLs struct {
	Detail   time.Duration `yaml:"detail"`
	List     time.Duration `yaml:"list"`
	Versions time.Duration `yaml:"versions"`
	Tags     time.Duration `yaml:"tags"`
	Stats    time.Duration `yaml:"stats"`
}

// DefaultTTLs returns one hour for detail, version and tag entries, five
// minutes for lists and a day for published stats.
func DefaultTTLs() TTLs {
	return TTLs{
		Detail:   time.Hour,
		List:     5 * time.Minute,
		Versions: time.Hour,
		Tags:     time.Hour,
		Stats:    24 * time.Hour,
	}
}

// Manager reads, writes and invalidates script entries in a Backend.
//
// The Manager never returns backend or codec errors. They are logged and the
// call degrades to a miss or a no-op, so callers always fall back to the store.
type Manager struct {
	backend  Backend
	codec    Codec
	ttl      TTLs
	observer Observer
	logger   logging.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCodec sets the value codec. Default: msgpack.
func WithCodec(c Codec) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.codec = c
		}
	}
}

// WithTTLs overrides DefaultTTLs.
func WithTTLs(ttl TTLs) ManagerOption {
	return func(m *Manager) { m.ttl = ttl }
}

// WithObserver reports typed gets and sets to o.
func WithObserver(o Observer) ManagerOption {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithLogger sets the logger for backend failures and hits.
func WithLogger(l logging.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logging.OrNop(l) }
}

// NewManager builds a Manager over backend.
func NewManager(backend Backend, opts ...ManagerOption) *Manager {
	m := &Manager{
		backend:  backend,
		codec:    MsgpackCodec{},
		ttl:      DefaultTTLs(),
		observer: nopObserver{},
		logger:   logging.Nop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backend returns the underlying backend.
func (m *Manager) Backend() Backend {
	return m.backend
}

func (m *Manager) get(ctx context.Context, prefix, key string, dst any) bool {
	start := time.Now()
	hit := m.load(ctx, key, dst)
	m.observer.ObserveGet(prefix, time.Since(start), hit)
	if hit {
		m.logger.Debug("cache hit", logging.Fields{"key": key})
	}
	return hit
}

func (m *Manager) load(ctx context.Context, key string, dst any) bool {
	raw, ok, err := m.backend.Get(ctx, key)
	if err != nil {
		m.warn("cache get failed", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := m.codec.Unmarshal(raw, dst); err != nil {
		m.warn("cache decode failed", key, err)
		m.delete(ctx, key)
		return false
	}
	return true
}

func (m *Manager) set(ctx context.Context, prefix, key string, v any, ttl time.Duration) {
	start := time.Now()
	m.store(ctx, key, v, ttl)
	m.observer.ObserveSet(prefix, time.Since(start))
}

func (m *Manager) store(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := m.codec.Marshal(v)
	if err != nil {
		m.warn("cache encode failed", key, err)
		return
	}
	if err := m.backend.Set(ctx, key, raw, ttl); err != nil {
		m.warn("cache set failed", key, err)
	}
}

func (m *Manager) delete(ctx context.Context, key string) {
	if err := m.backend.Delete(ctx, key); err != nil {
		m.warn("cache delete failed", key, err)
	}
}

func (m *Manager) deletePrefix(ctx context.Context, prefix string) {
	if err := m.backend.DeleteByPrefix(ctx, prefix); err != nil {
		m.warn("cache prefix delete failed", prefix, err)
	}
}

func (m *Manager) warn(msg, key string, err error) {
	m.logger.Warn(msg, logging.Fields{"key": key, "error": err.Error()})
}

// GetItem returns the cached item.
func (m *Manager) GetItem(ctx context.Context, id content.ItemID) (*content.Item, bool) {
	item := new(content.Item)
	if !m.get(ctx, DetailPrefix, DetailKey(id), item) {
		return nil, false
	}
	return item, true
}

// SetItem caches item under its detail key.
func (m *Manager) SetItem(ctx context.Context, item *content.Item) {
	if item == nil {
		return
	}
	m.set(ctx, DetailPrefix, DetailKey(item.ID), item, m.ttl.Detail)
}

// GetList returns the cached result of the query described by params.
func (m *Manager) GetList(ctx context.Context, params map[string]any) (content.ListResult, bool) {
	var result content.ListResult
	if !m.get(ctx, ListPrefix, ListKey(params), &result) {
		return content.ListResult{}, false
	}
	return result, true
}

// SetList caches the result of the query described by params.
func (m *Manager) SetList(ctx context.Context, params map[string]any, result content.ListResult) {
	m.set(ctx, ListPrefix, ListKey(params), result, m.ttl.List)
}

// GetVersions returns the cached version list of title.
func (m *Manager) GetVersions(ctx context.Context, title string) ([]*content.Item, bool) {
	var items []*content.Item
	if !m.get(ctx, VersionsPrefix, VersionsKey(title), &items) {
		return nil, false
	}
	return items, true
}

// SetVersions caches the version list of title.
func (m *Manager) SetVersions(ctx context.Context, title string, items []*content.Item) {
	m.set(ctx, VersionsPrefix, VersionsKey(title), items, m.ttl.Versions)
}

// GetTags returns the cached tag ids of an item.
func (m *Manager) GetTags(ctx context.Context, id content.ItemID) ([]content.TagID, bool) {
	var ids []content.TagID
	if !m.get(ctx, TagsPrefix, TagsKey(id), &ids) {
		return nil, false
	}
	return ids, true
}

// SetTags caches the tag ids of an item.
func (m *Manager) SetTags(ctx context.Context, id content.ItemID, ids []content.TagID) {
	if ids == nil {
		ids = []content.TagID{}
	}
	m.set(ctx, TagsPrefix, TagsKey(id), ids, m.ttl.Tags)
}

// InvalidateItem drops the detail entry of an item.
func (m *Manager) InvalidateItem(ctx context.Context, id content.ItemID) {
	m.delete(ctx, DetailKey(id))
}

// InvalidateTags drops the tag entry of an item.
func (m *Manager) InvalidateTags(ctx context.Context, id content.ItemID) {
	m.delete(ctx, TagsKey(id))
}

// InvalidateLists drops every cached list.
func (m *Manager) InvalidateLists(ctx context.Context) {
	m.deletePrefix(ctx, ListPrefix)
}

// InvalidateVersions drops the version list of title.
func (m *Manager) InvalidateVersions(ctx context.Context, title string) {
	m.delete(ctx, VersionsKey(title))
}

// InvalidateOnCreate runs after a new item (first or later version) commits.
func (m *Manager) InvalidateOnCreate(ctx context.Context, item *content.Item) {
	m.InvalidateLists(ctx)
	if item != nil {
		m.InvalidateVersions(ctx, item.Title)
	}
}

// InvalidateOnUpdate runs after an update commits. before and after are the
// item as returned by the store; a rename drops the version lists of both titles.
func (m *Manager) InvalidateOnUpdate(ctx context.Context, before, after *content.Item) {
	for _, item := range []*content.Item{before, after} {
		if item == nil {
			continue
		}
		m.InvalidateItem(ctx, item.ID)
		m.InvalidateTags(ctx, item.ID)
		m.InvalidateVersions(ctx, item.Title)
	}
	m.InvalidateLists(ctx)
}

// InvalidateOnDelete runs after a delete commits, with the deleted item.
func (m *Manager) InvalidateOnDelete(ctx context.Context, item *content.Item) {
	if item != nil {
		m.InvalidateItem(ctx, item.ID)
		m.InvalidateTags(ctx, item.ID)
		m.InvalidateVersions(ctx, item.Title)
	}
	m.InvalidateLists(ctx)
}

// InvalidateOnTagChange runs after a relation of the item is added or removed.
func (m *Manager) InvalidateOnTagChange(ctx context.Context, id content.ItemID) {
	m.InvalidateTags(ctx, id)
	m.InvalidateLists(ctx)
}

// TryLock acquires an advisory lock that expires after ttl. A backend failure
// counts as not acquired.
func (m *Manager) TryLock(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := m.backend.SetIfAbsent(ctx, key, []byte("1"), ttl)
	if err != nil {
		m.warn("cache lock failed", key, err)
		return false
	}
	return ok
}

// Unlock releases an advisory lock.
func (m *Manager) Unlock(ctx context.Context, key string) {
	m.delete(ctx, key)
}

// PublishStats stores a stats snapshot under StatsKey.
func (m *Manager) PublishStats(ctx context.Context, snapshot any) {
	m.store(ctx, StatsKey, snapshot, m.ttl.Stats)
}

// LoadStats decodes the last published snapshot into dst.
func (m *Manager) LoadStats(ctx context.Context, dst any) bool {
	return m.load(ctx, StatsKey, dst)
}

// DeleteStats removes the published snapshot.
func (m *Manager) DeleteStats(ctx context.Context) {
	m.delete(ctx, StatsKey)
}

// MarkStatsReset records at as the time statistics were last cleared, so
// that other processes sharing the backend can drop their own counters.
func (m *Manager) MarkStatsReset(ctx context.Context, at time.Time) {
	m.store(ctx, StatsResetKey, at.UTC(), m.ttl.Stats)
}

// StatsResetAt returns the time recorded by MarkStatsReset.
func (m *Manager) StatsResetAt(ctx context.Context) (time.Time, bool) {
	var at time.Time
	ok := m.load(ctx, StatsResetKey, &at)
	return at, ok
}
