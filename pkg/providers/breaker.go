package providers

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"aicentral-hq/gateway/pkg/limits/ratelimit"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// CircuitClosed allows requests to pass through
	CircuitClosed CircuitState = iota
	// CircuitOpen blocks all requests
	CircuitOpen
	// CircuitHalfOpen allows a single probe request through
	CircuitHalfOpen
)

// String returns the string representation of the circuit state
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds configuration for the circuit breaker
type BreakerConfig struct {
	// Disabled turns the breaker off entirely
	Disabled bool

	// FailureRatio opens the circuit once failures/total reaches it
	FailureRatio float64

	// SamplingDuration is the rolling window outcomes are counted over
	SamplingDuration time.Duration

	// MinimumThroughput is the number of outcomes in the window required
	// before the ratio is evaluated
	MinimumThroughput int64

	// BreakDuration is how long the circuit stays open before a probe
	BreakDuration time.Duration
}

// DefaultBreakerConfig returns the default breaker: open at a 50% failure
// ratio over 5 seconds once 100 outcomes were seen, for 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureRatio:      0.5,
		SamplingDuration:  5 * time.Second,
		MinimumThroughput: 100,
		BreakDuration:     30 * time.Second,
	}
}

// Validate checks the breaker configuration.
func (c BreakerConfig) Validate() error {
	if c.Disabled {
		return nil
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		return fmt.Errorf("breaker failure ratio must be in (0, 1]")
	}
	if c.SamplingDuration <= 0 || c.BreakDuration <= 0 {
		return fmt.Errorf("breaker durations must be positive")
	}
	if c.MinimumThroughput < 1 {
		return fmt.Errorf("breaker minimum throughput must be at least 1")
	}
	return nil
}

// samplingBuckets is the number of sliding window buckets per sampling
// duration.
const samplingBuckets = 10

// CircuitBreaker tracks the rolling failure ratio of one endpoint. It sees
// the outcome of a whole dispatch after retries, never single attempts.
//
// Closed: every call is admitted and its outcome sampled. Open: calls are
// rejected without a network call until BreakDuration has passed. Half-open:
// exactly one probe is admitted; its success closes the circuit and its
// failure opens it again.
type CircuitBreaker struct {
	endpoint string
	config   BreakerConfig
	now      ratelimit.Clock

	mu       sync.Mutex
	state    CircuitState
	openedAt time.Time
	probing  bool
	total    *ratelimit.SlidingWindow
	failures *ratelimit.SlidingWindow

	rejectLog rate.Sometimes
}

// NewCircuitBreaker creates a closed circuit breaker for endpoint. A nil
// clock uses time.Now.
func NewCircuitBreaker(endpoint string, config BreakerConfig, now ratelimit.Clock) *CircuitBreaker {
	if now == nil {
		now = time.Now
	}
	window := config.SamplingDuration
	if window <= 0 {
		window = time.Second
	}
	bucket := window / samplingBuckets
	return &CircuitBreaker{
		endpoint:  endpoint,
		config:    config,
		now:       now,
		state:     CircuitClosed,
		total:     ratelimit.NewSlidingWindowWithClock(window, bucket, now),
		failures:  ratelimit.NewSlidingWindowWithClock(window, bucket, now),
		rejectLog: rate.Sometimes{Interval: time.Second},
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Allow admits a call or rejects it with a CircuitOpenError. Every admitted
// call must be followed by exactly one Record or Cancel.
func (cb *CircuitBreaker) Allow() error {
	if cb.config.Disabled {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		elapsed := cb.now().Sub(cb.openedAt)
		if elapsed < cb.config.BreakDuration {
			return cb.rejectLocked(cb.config.BreakDuration - elapsed)
		}
		cb.state = CircuitHalfOpen
		cb.probing = true
		slog.Warn("circuit breaker transitioning from open to half-open",
			"endpoint", cb.endpoint,
			"break_duration", cb.config.BreakDuration,
		)
		return nil

	case CircuitHalfOpen:
		if cb.probing {
			return cb.rejectLocked(0)
		}
		cb.probing = true
		return nil

	default:
		return nil
	}
}

func (cb *CircuitBreaker) rejectLocked(retryAfter time.Duration) error {
	cb.rejectLog.Do(func() {
		slog.Warn("circuit breaker rejected request",
			"endpoint", cb.endpoint,
			"state", cb.state.String(),
			"retry_after", retryAfter,
		)
	})
	return &CircuitOpenError{Endpoint: cb.endpoint, RetryAfter: retryAfter}
}

// Record reports the outcome of an admitted call.
func (cb *CircuitBreaker) Record(failure bool) {
	if cb.config.Disabled {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.probing = false
		if failure {
			cb.openLocked("probe request failed")
			return
		}
		cb.state = CircuitClosed
		cb.total.Reset()
		cb.failures.Reset()
		slog.Warn("circuit breaker transitioning from half-open to closed (endpoint recovered)",
			"endpoint", cb.endpoint,
		)

	case CircuitClosed:
		cb.total.Add(1)
		if !failure {
			return
		}
		cb.failures.Add(1)

		total := cb.total.Sum()
		if total < cb.config.MinimumThroughput {
			return
		}
		failures := cb.failures.Sum()
		if float64(failures)/float64(total) >= cb.config.FailureRatio {
			cb.openLocked(fmt.Sprintf("%d of %d calls failed", failures, total))
		}

	case CircuitOpen:
		// Outcome of a call admitted before the circuit opened.
	}
}

// Cancel releases an admitted call that ended without an outcome, such as
// when the caller went away.
func (cb *CircuitBreaker) Cancel() {
	if cb.config.Disabled {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitHalfOpen {
		cb.probing = false
	}
}

// openLocked opens the circuit. Caller must hold mu.
func (cb *CircuitBreaker) openLocked(reason string) {
	from := cb.state
	cb.state = CircuitOpen
	cb.openedAt = cb.now()
	slog.Warn("circuit breaker opened",
		"endpoint", cb.endpoint,
		"from", from.String(),
		"reason", reason,
		"break_duration", cb.config.BreakDuration,
	)
}
