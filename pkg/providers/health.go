package providers

import (
	"log/slog"
	"sync"
	"time"
)

// Health is a snapshot of an endpoint's recent dispatch outcomes.
type Health struct {
	// Healthy is false after three consecutive failed dispatches or while
	// the circuit is not closed.
	Healthy bool

	// Circuit is the circuit breaker state.
	Circuit string

	// ConsecutiveFailures counts failed dispatches since the last success.
	ConsecutiveFailures int

	// LastError is the most recent failure (if any).
	LastError string

	// LastCheck is when an outcome was last recorded.
	LastCheck time.Time

	// LastSuccessfulRequest is when a dispatch last succeeded.
	LastSuccessfulRequest time.Time

	// TotalRequests and FailedRequests count dispatches, not attempts.
	TotalRequests  int64
	FailedRequests int64
}

// unhealthyAfter is the number of consecutive failures that marks an
// endpoint unhealthy.
const unhealthyAfter = 3

// healthTracker records dispatch outcomes for readiness reporting.
type healthTracker struct {
	endpoint string

	mu     sync.RWMutex
	health Health
}

func newHealthTracker(endpoint string) *healthTracker {
	return &healthTracker{
		endpoint: endpoint,
		health:   Health{Healthy: true},
	}
}

// record updates the health status after a dispatch.
func (t *healthTracker) record(success bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.health.LastCheck = now
	t.health.TotalRequests++

	if success {
		if !t.health.Healthy {
			slog.Info("endpoint marked healthy",
				"endpoint", t.endpoint,
				"previous_failures", t.health.ConsecutiveFailures,
			)
		}
		t.health.Healthy = true
		t.health.ConsecutiveFailures = 0
		t.health.LastError = ""
		t.health.LastSuccessfulRequest = now
		return
	}

	t.health.FailedRequests++
	t.health.ConsecutiveFailures++
	if err != nil {
		t.health.LastError = err.Error()
	}
	if t.health.Healthy && t.health.ConsecutiveFailures >= unhealthyAfter {
		t.health.Healthy = false
		slog.Warn("endpoint marked unhealthy",
			"endpoint", t.endpoint,
			"consecutive_failures", t.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

func (t *healthTracker) snapshot() Health {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.health
}
