package strategies

import (
	"context"
	"errors"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/routing"
)

// Random tries endpoints in a uniformly random order without replacement.
type Random struct {
	name      string
	endpoints []routing.Dispatcher
	shuffle   Shuffler
}

// NewRandom creates a Random selector. A nil shuffle uses RandomShuffle.
func NewRandom(name string, endpoints []routing.Dispatcher, shuffle Shuffler) (*Random, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("random selector requires at least one endpoint")
	}
	if err := distinct(endpoints); err != nil {
		return nil, err
	}
	if shuffle == nil {
		shuffle = RandomShuffle
	}
	return &Random{
		name:      name,
		endpoints: append([]routing.Dispatcher(nil), endpoints...),
		shuffle:   shuffle,
	}, nil
}

// Name implements pipeline.Selector.
func (r *Random) Name() string { return r.name }

// Endpoints returns the endpoint names in configured order.
func (r *Random) Endpoints() []string { return endpointNames(r.endpoints) }

// Handle implements pipeline.Selector.
func (r *Random) Handle(ctx context.Context, call *pipeline.Call) (*types.Response, error) {
	if !spreadable(call) {
		return nil, routing.UnaddressedCallError(r.name)
	}

	order := append([]routing.Dispatcher(nil), r.endpoints...)
	r.shuffle(order)
	return routing.Failover(ctx, call, r.name, order)
}
