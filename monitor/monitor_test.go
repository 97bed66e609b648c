package monitor

import (
	"sync"
	"testing"
	"time"
)

func TestMonitor_EmptyStats(t *testing.T) {
	stats := New().Stats()

	if stats.Overall.Total != 0 || stats.Overall.HitRate != 0 {
		t.Errorf("expected zeroed overall metrics, got %+v", stats.Overall)
	}
	if !stats.Overall.LastUpdate.IsZero() {
		t.Errorf("expected no last update, got %v", stats.Overall.LastUpdate)
	}
	if len(stats.Keys) != 0 {
		t.Errorf("expected no keys, got %v", stats.Keys)
	}
}

func TestMonitor_Accounting(t *testing.T) {
	tests := []struct {
		name   string
		hits   int
		misses int
		rate   float64
	}{
		{name: "all hits", hits: 4, misses: 0, rate: 1},
		{name: "all misses", hits: 0, misses: 3, rate: 0},
		{name: "mixed", hits: 3, misses: 1, rate: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			for i := 0; i < tt.hits; i++ {
				m.ObserveGet("script:detail:", time.Millisecond, true)
			}
			for i := 0; i < tt.misses; i++ {
				m.ObserveGet("script:detail:", time.Millisecond, false)
			}

			key := m.Stats().Keys["script:detail:"]
			if key.Hits != int64(tt.hits) || key.Misses != int64(tt.misses) {
				t.Errorf("expected %d/%d, got %d/%d", tt.hits, tt.misses, key.Hits, key.Misses)
			}
			if key.HitRate != tt.rate {
				t.Errorf("expected hit rate %v, got %v", tt.rate, key.HitRate)
			}
		})
	}
}

func TestMonitor_SetsAreNotClassified(t *testing.T) {
	m := New()
	m.ObserveSet("script:list:", 2*time.Millisecond)
	m.ObserveSet("script:list:", 4*time.Millisecond)

	stats := m.Stats()
	key := stats.Keys["script:list:"]
	if key.Hits != 0 || key.Misses != 0 || key.HitRate != 0 {
		t.Errorf("expected sets to leave hit counters alone, got %+v", key)
	}
	if key.Latency.Count != 2 {
		t.Errorf("expected 2 latency samples, got %d", key.Latency.Count)
	}
	if stats.Overall.Total != 0 {
		t.Errorf("expected no overall observations, got %d", stats.Overall.Total)
	}
}

func TestMonitor_Latency(t *testing.T) {
	m := New()
	for _, d := range []time.Duration{3 * time.Millisecond, time.Millisecond, 8 * time.Millisecond} {
		m.ObserveGet("script:versions:", d, false)
	}

	lat := m.Stats().Keys["script:versions:"].Latency
	want := Latency{
		Average: 4 * time.Millisecond,
		Min:     time.Millisecond,
		Max:     8 * time.Millisecond,
		Sum:     12 * time.Millisecond,
		Count:   3,
	}
	if lat != want {
		t.Errorf("expected %+v, got %+v", want, lat)
	}
}

func TestMonitor_OverallAcrossPrefixes(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := New(WithClock(func() time.Time { return at }))

	m.ObserveGet("script:detail:", time.Millisecond, true)
	m.ObserveGet("script:list:", time.Millisecond, false)
	m.ObserveGet("script:tags:", time.Millisecond, true)
	m.ObserveGet("script:tags:", time.Millisecond, true)

	overall := m.Stats().Overall
	if overall.Hits != 3 || overall.Misses != 1 || overall.Total != 4 {
		t.Errorf("unexpected overall counters: %+v", overall)
	}
	if overall.HitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %v", overall.HitRate)
	}
	if !overall.LastUpdate.Equal(at) {
		t.Errorf("expected last update %v, got %v", at, overall.LastUpdate)
	}
}

func TestMonitor_Clear(t *testing.T) {
	m := New()
	m.ObserveGet("script:detail:", time.Millisecond, true)
	m.ObserveSet("script:detail:", time.Millisecond)

	m.Clear()

	stats := m.Stats()
	if stats.Overall != (Overall{}) {
		t.Errorf("expected zeroed overall metrics, got %+v", stats.Overall)
	}
	if len(stats.Keys) != 0 {
		t.Errorf("expected keys to be cleared, got %v", stats.Keys)
	}

	m.ObserveGet("script:detail:", time.Millisecond, false)
	if got := m.Stats().Keys["script:detail:"]; got.Misses != 1 || got.Hits != 0 {
		t.Errorf("expected counting to restart from zero, got %+v", got)
	}
}

func TestMonitor_Concurrent(t *testing.T) {
	m := New()
	const workers, perWorker = 8, 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m.ObserveGet("script:detail:", time.Microsecond, i%2 == 0)
				if i%50 == 0 {
					_ = m.Stats()
				}
			}
		}(w)
	}
	wg.Wait()

	stats := m.Stats()
	if stats.Overall.Total != workers*perWorker {
		t.Errorf("expected %d observations, got %d", workers*perWorker, stats.Overall.Total)
	}
	key := stats.Keys["script:detail:"]
	if key.Hits != workers*perWorker/2 || key.Latency.Count != workers*perWorker {
		t.Errorf("unexpected key counters: %+v", key)
	}
}

func TestHitRate(t *testing.T) {
	if HitRate(0, 0) != 0 {
		t.Error("expected 0 for no observations")
	}
	if HitRate(1, 3) != 0.25 {
		t.Errorf("expected 0.25, got %v", HitRate(1, 3))
	}
}
