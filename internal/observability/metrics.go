package observability

import (
	"sync/atomic"
)

// CacheMetrics counts cache outcomes. Degraded means the cache errored and
// the caller fell back to the store.
type CacheMetrics struct {
	hits          atomic.Int64
	misses        atomic.Int64
	degraded      atomic.Int64
	invalidations atomic.Int64
}

// Global cache metrics instance.
var globalCacheMetrics = &CacheMetrics{}

// GlobalCacheMetrics returns the process-wide cache metrics.
func GlobalCacheMetrics() *CacheMetrics {
	return globalCacheMetrics
}

func (m *CacheMetrics) RecordHit()          { m.hits.Add(1) }
func (m *CacheMetrics) RecordMiss()         { m.misses.Add(1) }
func (m *CacheMetrics) RecordDegraded()     { m.degraded.Add(1) }
func (m *CacheMetrics) RecordInvalidation() { m.invalidations.Add(1) }

// CacheMetricsSnapshot is a point-in-time copy of the counters.
type CacheMetricsSnapshot struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Degraded      int64 `json:"degraded"`
	Invalidations int64 `json:"invalidations"`
}

// Snapshot returns a copy of the current counters.
func (m *CacheMetrics) Snapshot() CacheMetricsSnapshot {
	return CacheMetricsSnapshot{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Degraded:      m.degraded.Load(),
		Invalidations: m.invalidations.Load(),
	}
}
