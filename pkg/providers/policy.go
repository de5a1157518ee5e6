package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Policy is the resiliency policy applied to every dispatch, outermost
// first: circuit breaker, then retry, then the per-attempt timeout.
type Policy struct {
	// Timeout is the ceiling for one attempt. For streamed responses it
	// covers the wait for response headers only.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the first backoff delay. Each retry doubles it.
	BaseDelay time.Duration

	// MaxRetryAfter caps a Retry-After delay requested by the endpoint.
	// Zero ignores the header and always uses exponential backoff.
	MaxRetryAfter time.Duration

	// RetryStatuses are the downstream statuses retried locally. Transport
	// failures and attempt timeouts are always retried.
	RetryStatuses []int

	// Breaker configures the circuit breaker.
	Breaker BreakerConfig
}

// DefaultPolicy returns the policy used when an endpoint configures none:
// a 30s attempt timeout, 3 retries of HTTP 429 starting at 200ms, and the
// default breaker.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:       30 * time.Second,
		MaxRetries:    3,
		BaseDelay:     200 * time.Millisecond,
		RetryStatuses: []int{http.StatusTooManyRequests},
		Breaker:       DefaultBreakerConfig(),
	}
}

// Validate checks the policy for impossible values.
func (p Policy) Validate() error {
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if p.BaseDelay < 0 || p.MaxRetryAfter < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}
	return p.Breaker.Validate()
}

// retryableStatus reports whether a downstream status is retried locally.
func (p Policy) retryableStatus(status int) bool {
	for _, s := range p.RetryStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// backoff returns the delay before retry number attempt (1-based).
func (p Policy) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 && p.MaxRetryAfter > 0 {
		return min(retryAfter, p.MaxRetryAfter)
	}
	return p.BaseDelay * time.Duration(1<<uint(attempt-1))
}

// breakerFailure reports whether a downstream status counts against the
// circuit breaker: server errors, request timeouts and throttling.
func breakerFailure(status int) bool {
	return status >= http.StatusInternalServerError ||
		status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the default SleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	// Try parsing as seconds
	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	// Try parsing as HTTP date
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}
