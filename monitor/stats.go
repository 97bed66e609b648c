package monitor

import "time"

// Stats is a point-in-time snapshot of the counters.
type Stats struct {
	Overall Overall             `json:"overall" msgpack:"overall"`
	Keys    map[string]KeyStats `json:"keys" msgpack:"keys"`
}

// Overall aggregates every prefix. LastUpdate is zero before the first observation.
type Overall struct {
	Hits       int64     `json:"hits" msgpack:"hits"`
	Misses     int64     `json:"misses" msgpack:"misses"`
	Total      int64     `json:"total" msgpack:"total"`
	HitRate    float64   `json:"hit_rate" msgpack:"hit_rate"`
	LastUpdate time.Time `json:"last_update" msgpack:"last_update"`
}

// KeyStats are the counters of one key prefix.
type KeyStats struct {
	Hits    int64   `json:"hits" msgpack:"hits"`
	Misses  int64   `json:"misses" msgpack:"misses"`
	HitRate float64 `json:"hit_rate" msgpack:"hit_rate"`
	Latency Latency `json:"latency" msgpack:"latency"`
}

// Latency aggregates the observed call durations of a prefix. Count includes
// sets as well as gets.
type Latency struct {
	Average time.Duration `json:"average" msgpack:"average"`
	Min     time.Duration `json:"min" msgpack:"min"`
	Max     time.Duration `json:"max" msgpack:"max"`
	Sum     time.Duration `json:"sum" msgpack:"sum"`
	Count   int64         `json:"count" msgpack:"count"`
}

// HitRate returns hits/(hits+misses), or 0 when nothing was observed.
func HitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Stats computes a snapshot from the live counters.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	out := Stats{Keys: make(map[string]KeyStats)}

	hits, misses := s.hits.Value(), s.misses.Value()
	out.Overall = Overall{
		Hits:    hits,
		Misses:  misses,
		Total:   hits + misses,
		HitRate: HitRate(hits, misses),
	}
	if ns := s.lastUpdate.Load(); ns != 0 {
		out.Overall.LastUpdate = time.Unix(0, ns).UTC()
	}

	s.keys.Range(func(prefix string, k *keyCounters) bool {
		k.mu.Lock()
		agg := k.latency
		k.mu.Unlock()

		lat := Latency{Min: agg.min, Max: agg.max, Sum: agg.sum, Count: agg.count}
		if agg.count > 0 {
			lat.Average = agg.sum / time.Duration(agg.count)
		}

		kh, km := k.hits.Load(), k.misses.Load()
		out.Keys[prefix] = KeyStats{
			Hits:    kh,
			Misses:  km,
			HitRate: HitRate(kh, km),
			Latency: lat,
		}
		return true
	})
	return out
}
