package knowledge

import (
	"go.uber.org/atomic"
)

// CacheStats is a point-in-time view of lookup counters.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Statistics tracks cache lookup outcomes. Safe for concurrent use.
type Statistics struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func NewStatistics() *Statistics {
	return &Statistics{}
}

// Hit records a lookup that found an entry.
func (s *Statistics) Hit() {
	s.hits.Inc()
}

// Miss records a lookup that found nothing.
func (s *Statistics) Miss() {
	s.misses.Inc()
}

func (s *Statistics) Hits() int64 {
	return s.hits.Load()
}

func (s *Statistics) Misses() int64 {
	return s.misses.Load()
}

// HitRate returns hits/(hits+misses), or 0 before any lookup is recorded.
func (s *Statistics) HitRate() float64 {
	return hitRate(s.hits.Load(), s.misses.Load())
}

// Reset zeroes both counters. Cached entries are untouched.
func (s *Statistics) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
}

// Snapshot returns the counters with the rate derived from the same reads,
// so the triple is internally consistent.
func (s *Statistics) Snapshot() CacheStats {
	h := s.hits.Load()
	m := s.misses.Load()
	return CacheStats{Hits: h, Misses: m, HitRate: hitRate(h, m)}
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
