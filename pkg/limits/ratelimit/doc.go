// Package ratelimit provides the admission-control steps of a pipeline.
//
// # Overview
//
// Two steps are available, both scoped to one pipeline and shared by all of
// its callers:
//
//   - RateLimit: a fixed window counter. The first Limit requests of each
//     window pass; the rest fail immediately until the window rolls over.
//   - Bulkhead: a cap on in-flight requests. A request that finds no free
//     slot fails immediately; slots are never queued for.
//
// Neither step blocks. Rejections are capacity errors rendered as 429.
//
// # Fixed Window
//
//	window := ratelimit.NewFixedWindow(time.Second, 100)
//	if res := window.Allow(); !res.Allowed {
//	    // retry after res.RetryAfter
//	}
//
// # Sliding Window
//
// SlidingWindow sums values over a rolling period using fixed-size buckets.
// The circuit breaker uses two of them to track its failure ratio.
//
//	sw := ratelimit.NewSlidingWindow(5*time.Second, 500*time.Millisecond)
//	sw.Add(1)
//	total := sw.Sum()
package ratelimit
