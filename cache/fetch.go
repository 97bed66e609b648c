package cache

import "context"

// FetchFn loads a value from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// GetOrFetch composes a cache lookup, a fetch on miss and a cache fill. The
// fill happens only after a successful fetch. Two concurrent misses may both
// fetch and fill; the last fill wins.
func GetOrFetch[T any](
	ctx context.Context,
	lookup func(ctx context.Context) (T, bool),
	fetch FetchFn[T],
	fill func(ctx context.Context, v T),
) (T, error) {
	if v, ok := lookup(ctx); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	fill(ctx, v)
	return v, nil
}
