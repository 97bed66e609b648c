// Package cache derives cache keys for scripts and reads, writes and
// invalidates them in a shared key-value Backend.
//
// # Keys
//
// Four key classes are used, each under a fixed prefix:
//
//   - DetailKey(id):      script:detail:<id>
//   - ListKey(params):    script:list:<fingerprint>
//   - VersionsKey(title): script:versions:<title>
//   - TagsKey(id):        script:tags:<id>
//
// The list fingerprint is an xxhash of the canonical form of the query
// parameters. Canonical sorts map keys and expands nested values recursively,
// so equivalent parameter sets always produce the same key:
//
//	cache.ListKey(map[string]any{"a": 1, "b": 2}) == cache.ListKey(map[string]any{"b": 2, "a": 1})
//
// # Manager
//
// Manager stores typed values through a Codec (msgpack by default, cbor and
// json are available). Detail, version and tag entries live for one hour;
// lists live for five minutes.
//
// The Manager never returns backend errors. A failed get is a miss, a failed
// set or delete is a no-op, and both are logged. The cache is advisory: the
// store stays the source of truth.
//
// # Invalidation
//
// Invalidation is explicit. Write paths call it after their transaction
// commits:
//
//	item, err := store.CreateNewVersion(ctx, id, actor)
//	if err == nil {
//		manager.InvalidateOnCreate(ctx, item)
//	}
//
// InvalidateOnCreate drops every list and the title's version list.
// InvalidateOnUpdate and InvalidateOnDelete also drop the item's detail and
// tag entries. Reads never invalidate.
//
// # Read-through
//
// GetOrFetch composes a lookup, a fetch on miss and a fill:
//
//	item, err := cache.GetOrFetch(ctx,
//		func(ctx context.Context) (*content.Item, bool) { return manager.GetItem(ctx, id) },
//		func(ctx context.Context) (*content.Item, error) { return store.GetItem(ctx, id) },
//		manager.SetItem,
//	)
//
// Concurrent misses may both fill the same key; the last write wins until the
// entry expires or is invalidated.
//
// # Backends
//
// NewBackend builds the backend named by Config.Backend: "memory" (sturdyc,
// in-process), "redis" (shared across processes) or "ristretto"
// (in-process). TryLock maps to the backend's atomic SetIfAbsent.
package cache
