package strategies

import (
	"context"
	"errors"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/routing"
)

// Single sends every call to one endpoint.
type Single struct {
	name     string
	endpoint routing.Dispatcher
}

// NewSingle creates a Single selector.
func NewSingle(name string, endpoint routing.Dispatcher) (*Single, error) {
	if endpoint == nil {
		return nil, errors.New("single selector requires an endpoint")
	}
	return &Single{name: name, endpoint: endpoint}, nil
}

// Name implements pipeline.Selector.
func (s *Single) Name() string { return s.name }

// Endpoints returns the endpoint name.
func (s *Single) Endpoints() []string { return []string{s.endpoint.Name()} }

// Handle implements pipeline.Selector.
func (s *Single) Handle(ctx context.Context, call *pipeline.Call) (*types.Response, error) {
	return routing.Failover(ctx, call, s.name, []routing.Dispatcher{s.endpoint})
}
