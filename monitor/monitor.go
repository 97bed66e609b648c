// Package monitor aggregates cache hit, miss and latency counters per key
// prefix and overall.
//
// A Monitor implements cache.Observer. Recording is lock-free on the hot path;
// Stats and Clear briefly exclude recorders so a snapshot or a reset is never
// mixed with a half-applied observation.
package monitor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Monitor holds live counters. The zero value is not usable; call New.
type Monitor struct {
	mu    *xsync.RBMutex
	state *state
	now   func() time.Time
}

type state struct {
	keys       *xsync.MapOf[string, *keyCounters]
	hits       *xsync.Counter
	misses     *xsync.Counter
	lastUpdate atomic.Int64
}

func newState() *state {
	return &state{
		keys:   xsync.NewMapOf[string, *keyCounters](),
		hits:   xsync.NewCounter(),
		misses: xsync.NewCounter(),
	}
}

type keyCounters struct {
	hits   atomic.Int64
	misses atomic.Int64

	mu      sync.Mutex
	latency latencyAgg
}

type latencyAgg struct {
	min, max, sum time.Duration
	count         int64
}

func (a *latencyAgg) add(d time.Duration) {
	if a.count == 0 || d < a.min {
		a.min = d
	}
	if d > a.max {
		a.max = d
	}
	a.sum += d
	a.count++
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock overrides the time source of LastUpdate.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// New returns a Monitor with zeroed counters.
func New(opts ...Option) *Monitor {
	m := &Monitor{mu: xsync.NewRBMutex(), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.state = newState()
	return m
}

func (m *Monitor) record(prefix string, latency time.Duration, fn func(s *state, k *keyCounters)) {
	token := m.mu.RLock()
	defer m.mu.RUnlock(token)

	s := m.state
	k, _ := s.keys.LoadOrCompute(prefix, func() *keyCounters { return &keyCounters{} })

	k.mu.Lock()
	k.latency.add(latency)
	k.mu.Unlock()

	if fn != nil {
		fn(s, k)
	}
	s.lastUpdate.Store(m.now().UnixNano())
}

// ObserveGet records a get against prefix.
func (m *Monitor) ObserveGet(prefix string, latency time.Duration, hit bool) {
	m.record(prefix, latency, func(s *state, k *keyCounters) {
		if hit {
			k.hits.Add(1)
			s.hits.Inc()
			return
		}
		k.misses.Add(1)
		s.misses.Inc()
	})
}

// ObserveSet records the latency of a set against prefix.
func (m *Monitor) ObserveSet(prefix string, latency time.Duration) {
	m.record(prefix, latency, nil)
}

// Clear resets every counter.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = newState()
}
