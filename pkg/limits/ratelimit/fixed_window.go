package ratelimit

import (
	"sync"
	"time"
)

// FixedWindow counts requests in consecutive windows of equal length. The
// counter resets at each window boundary.
//
// # Thread Safety
//
// FixedWindow is safe for concurrent use; every check is one locked
// read-modify-write.
type FixedWindow struct {
	window time.Duration
	limit  int64
	now    Clock

	mu    sync.Mutex
	start time.Time
	count int64
}

// NewFixedWindow creates a window of the given length admitting limit
// requests per window.
func NewFixedWindow(window time.Duration, limit int64) *FixedWindow {
	return NewFixedWindowWithClock(window, limit, time.Now)
}

// NewFixedWindowWithClock creates a FixedWindow that reads time from now.
func NewFixedWindowWithClock(window time.Duration, limit int64, now Clock) *FixedWindow {
	return &FixedWindow{
		window: window,
		limit:  limit,
		now:    now,
		start:  now(),
	}
}

// Allow consumes one permit if one is left in the current window.
func (fw *FixedWindow) Allow() CheckResult {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.now()
	fw.rollLocked(now)
	reset := fw.start.Add(fw.window)

	if fw.count >= fw.limit {
		return CheckResult{
			Allowed:    false,
			Limit:      fw.limit,
			Remaining:  0,
			Reset:      reset,
			RetryAfter: reset.Sub(now),
		}
	}

	fw.count++
	return CheckResult{
		Allowed:   true,
		Limit:     fw.limit,
		Remaining: fw.limit - fw.count,
		Reset:     reset,
	}
}

// Remaining returns the permits left in the current window.
func (fw *FixedWindow) Remaining() int64 {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.rollLocked(fw.now())
	return fw.limit - fw.count
}

// rollLocked advances start to the window containing now.
// Caller must hold mu.
func (fw *FixedWindow) rollLocked(now time.Time) {
	elapsed := now.Sub(fw.start)
	if elapsed < fw.window {
		return
	}
	fw.start = fw.start.Add(elapsed - elapsed%fw.window)
	fw.count = 0
}
