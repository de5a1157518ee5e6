package ratelimit

import "time"

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// CheckResult is the outcome of a fixed window admission check.
type CheckResult struct {
	// Allowed indicates if the request is permitted.
	Allowed bool

	// Limit is the configured permit count per window.
	Limit int64

	// Remaining is how many permits remain in the current window.
	Remaining int64

	// Reset is when the current window ends.
	Reset time.Time

	// RetryAfter is the time until Reset, set only when rejected.
	RetryAfter time.Duration
}
