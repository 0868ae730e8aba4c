package database

import (
	"database/sql"
	"sync/atomic"
	"time"
)

const defaultSlowQueryThreshold = 100 * time.Millisecond

// Metrics tracks query counts and latency
type Metrics struct {
	queryCount     int64
	errorCount     int64
	slowQueryCount int64
	totalDuration  int64 // nanoseconds

	slowThreshold time.Duration
}

// MetricsSnapshot is a point-in-time view of the counters
type MetricsSnapshot struct {
	QueryCount       int64         `json:"query_count"`
	ErrorCount       int64         `json:"error_count"`
	SlowQueryCount   int64         `json:"slow_query_count"`
	AvgQueryDuration time.Duration `json:"avg_query_duration"`
	OpenConnections  int           `json:"open_connections"`
	InUse            int           `json:"in_use"`
	Idle             int           `json:"idle"`
}

// NewMetrics creates a collector; a zero threshold uses 100ms
func NewMetrics(slowThreshold time.Duration) *Metrics {
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowQueryThreshold
	}
	return &Metrics{slowThreshold: slowThreshold}
}

// Record counts one statement and reports whether it was slow
func (m *Metrics) Record(d time.Duration, err error) bool {
	atomic.AddInt64(&m.queryCount, 1)
	atomic.AddInt64(&m.totalDuration, int64(d))
	if err != nil && err != sql.ErrNoRows {
		atomic.AddInt64(&m.errorCount, 1)
	}
	if d > m.slowThreshold {
		atomic.AddInt64(&m.slowQueryCount, 1)
		return true
	}
	return false
}

// Snapshot combines the counters with pool stats
func (m *Metrics) Snapshot(stats sql.DBStats) MetricsSnapshot {
	count := atomic.LoadInt64(&m.queryCount)
	s := MetricsSnapshot{
		QueryCount:      count,
		ErrorCount:      atomic.LoadInt64(&m.errorCount),
		SlowQueryCount:  atomic.LoadInt64(&m.slowQueryCount),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
	}
	if count > 0 {
		s.AvgQueryDuration = time.Duration(atomic.LoadInt64(&m.totalDuration) / count)
	}
	return s
}
