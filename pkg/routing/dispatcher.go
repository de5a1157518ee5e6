package routing

import (
	"context"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
)

// Dispatcher performs the outbound call to one downstream endpoint.
//
// Dispatch returns a Response only for a successful downstream call. Every
// failure is an error: a downstream failure carries the downstream response
// through types.DownstreamResponder, and gateway-side failures are classified
// with types.ClassOf.
//
// Implementations must be safe for concurrent use.
type Dispatcher interface {
	// Name identifies the endpoint in logs, metrics and diagnostic headers.
	Name() string

	// Dispatch sends call to the endpoint.
	Dispatch(ctx context.Context, call *pipeline.Call) (*types.Response, error)
}

// Attempt records the outcome of one dispatcher within a failover sequence.
type Attempt struct {
	Endpoint string
	Status   int
	Err      error
}
