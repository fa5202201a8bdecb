package cache

import (
	"sync/atomic"
	"time"
)

// CacheMetrics counts cache outcomes. Rejected counts calls refused by an
// open circuit breaker. Stale counts loads dropped because the entry was
// invalidated while they ran.
type CacheMetrics struct {
	hits          atomic.Int64
	misses        atomic.Int64
	errors        atomic.Int64
	rejected      atomic.Int64
	sets          atomic.Int64
	stale         atomic.Int64
	invalidations atomic.Int64
	startTime     time.Time
}

type MetricsSnapshot struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Errors        int64   `json:"errors"`
	Rejected      int64   `json:"rejected"`
	Sets          int64   `json:"sets"`
	Stale         int64   `json:"stale"`
	Invalidations int64   `json:"invalidations"`
	HitRate       float64 `json:"hit_rate"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

func NewCacheMetrics() *CacheMetrics {
	return &CacheMetrics{startTime: time.Now()}
}

func (m *CacheMetrics) RecordHit()          { m.hits.Add(1) }
func (m *CacheMetrics) RecordMiss()         { m.misses.Add(1) }
func (m *CacheMetrics) RecordError()        { m.errors.Add(1) }
func (m *CacheMetrics) RecordRejected()     { m.rejected.Add(1) }
func (m *CacheMetrics) RecordSet()          { m.sets.Add(1) }
func (m *CacheMetrics) RecordStale()        { m.stale.Add(1) }
func (m *CacheMetrics) RecordInvalidation() { m.invalidations.Add(1) }

// HitRate is the percentage of lookups served from the cache.
func (m *CacheMetrics) HitRate() float64 {
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

func (m *CacheMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Errors:        m.errors.Load(),
		Rejected:      m.rejected.Load(),
		Sets:          m.sets.Load(),
		Stale:         m.stale.Load(),
		Invalidations: m.invalidations.Load(),
		HitRate:       m.HitRate(),
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
	}
}
