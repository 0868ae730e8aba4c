package database

import (
	"context"
	"time"
)

// Health check statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is reported by the /health endpoint
type HealthStatus struct {
	Status       string          `json:"status"`
	ResponseTime string          `json:"response_time"`
	Error        string          `json:"error,omitempty"`
	Metrics      MetricsSnapshot `json:"metrics"`
}

// Health pings the database and reports pool usage. A ping slower than a
// second marks the database degraded.
func (m *Manager) Health(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := m.db.PingContext(ctx)
	elapsed := time.Since(start)

	status := &HealthStatus{
		Status:       StatusHealthy,
		ResponseTime: elapsed.String(),
		Metrics:      m.Metrics(),
	}
	switch {
	case err != nil:
		status.Status = StatusUnhealthy
		status.Error = err.Error()
	case elapsed > time.Second:
		status.Status = StatusDegraded
	}
	return status
}
