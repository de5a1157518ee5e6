package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
)

// Diagnostic headers set by the steps.
const (
	RemainingHeader  = "x-aicentral-ratelimit-remaining"
	RetryAfterHeader = "Retry-After"
)

// RateLimit is a pipeline step admitting a fixed number of requests per
// window.
type RateLimit struct {
	name   string
	window *FixedWindow
}

// NewRateLimit creates a RateLimit step.
func NewRateLimit(name string, window time.Duration, limit int64) (*RateLimit, error) {
	return NewRateLimitWithClock(name, window, limit, time.Now)
}

// NewRateLimitWithClock creates a RateLimit step reading time from now.
func NewRateLimitWithClock(name string, window time.Duration, limit int64, now Clock) (*RateLimit, error) {
	if window <= 0 {
		return nil, fmt.Errorf("rate limit %q: window must be positive", name)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("rate limit %q: limit must be positive", name)
	}
	return &RateLimit{name: name, window: NewFixedWindowWithClock(window, limit, now)}, nil
}

// Name implements pipeline.Step.
func (rl *RateLimit) Name() string { return rl.name }

// Handle implements pipeline.Step.
func (rl *RateLimit) Handle(ctx context.Context, call *pipeline.Call, next pipeline.Next) (*types.Response, error) {
	res := rl.window.Allow()
	call.SetDiagnostic(RemainingHeader, strconv.FormatInt(res.Remaining, 10))

	if !res.Allowed {
		retryAfter := int64(math.Ceil(res.RetryAfter.Seconds()))
		call.SetDiagnostic(RetryAfterHeader, strconv.FormatInt(retryAfter, 10))
		slog.WarnContext(ctx, "rate limit exceeded",
			"step", rl.name,
			"pipeline", call.Pipeline,
			"limit", res.Limit,
			"reset", res.Reset,
		)
		return nil, types.NewCapacityError(http.StatusTooManyRequests, types.CodeRateLimited,
			fmt.Sprintf("rate limit of %d requests per window exceeded", res.Limit))
	}

	return next(ctx, call)
}

// ErrBulkheadFull is the cause of every bulkhead rejection.
var ErrBulkheadFull = errors.New("no concurrency slot available")

// Bulkhead is a pipeline step capping the number of requests in flight.
//
// Slots are counted with atomic operations: increment, and if the count
// exceeds the limit decrement again and reject. A slot taken by a request
// is released when the rest of the chain returns, whether it succeeded,
// failed, panicked or was cancelled.
type Bulkhead struct {
	name    string
	limit   int64
	current atomic.Int64
}

// NewBulkhead creates a Bulkhead step allowing maxConcurrency requests.
func NewBulkhead(name string, maxConcurrency int) (*Bulkhead, error) {
	if maxConcurrency <= 0 {
		return nil, fmt.Errorf("bulkhead %q: max concurrency must be positive", name)
	}
	return &Bulkhead{name: name, limit: int64(maxConcurrency)}, nil
}

// Name implements pipeline.Step.
func (b *Bulkhead) Name() string { return b.name }

// Handle implements pipeline.Step.
func (b *Bulkhead) Handle(ctx context.Context, call *pipeline.Call, next pipeline.Next) (*types.Response, error) {
	if !b.acquire() {
		slog.WarnContext(ctx, "bulkhead full",
			"step", b.name,
			"pipeline", call.Pipeline,
			"limit", b.limit,
		)
		return nil, &types.GatewayError{
			Class:   types.ClassCapacity,
			Status:  http.StatusTooManyRequests,
			Code:    types.CodeBulkheadFull,
			Message: fmt.Sprintf("all %d concurrency slots are in use", b.limit),
			Cause:   ErrBulkheadFull,
		}
	}
	defer b.release()

	return next(ctx, call)
}

// InFlight returns the number of requests holding a slot.
func (b *Bulkhead) InFlight() int64 {
	return b.current.Load()
}

// acquire takes a slot only if one is free, so a rejected request never
// holds a slot even briefly.
func (b *Bulkhead) acquire() bool {
	for {
		n := b.current.Load()
		if n >= b.limit {
			return false
		}
		if b.current.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (b *Bulkhead) release() {
	b.current.Add(-1)
}
