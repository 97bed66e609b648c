package content

import (
	"context"
	"time"
)

// RetryPolicy bounds the automatic retries of a store transaction that failed
// with a transient error. Delays grow as BaseDelay, 2*BaseDelay, 4*BaseDelay...
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first. Default: 3
	Attempts int `yaml:"attempts"`
	// BaseDelay is the wait before the second attempt. Default: 1s
	BaseDelay time.Duration `yaml:"base_delay"`
}

// DefaultRetryPolicy returns the policy used by the store when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: time.Second}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

// run calls fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. exhausted is true only in the last case.
func (p RetryPolicy) run(
	ctx context.Context,
	retryable func(error) bool,
	onRetry func(attempt int, wait time.Duration, err error),
	fn func(ctx context.Context) error,
) (attempts int, exhausted bool, err error) {
	limit := p.Attempts
	if limit < 1 {
		limit = 1
	}

	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !retryable(err) {
			return attempt, false, err
		}
		if attempt >= limit {
			return attempt, true, err
		}

		wait := p.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, false, ctx.Err()
		case <-timer.C:
		}
	}
}
