package strategies

import (
	"context"
	"errors"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/routing"
)

// Priority tries every primary endpoint before any fallback endpoint. Peers
// within a group are tried in random order.
type Priority struct {
	name     string
	primary  []routing.Dispatcher
	fallback []routing.Dispatcher
	shuffle  Shuffler
}

// NewPriority creates a Priority selector. A nil shuffle uses RandomShuffle.
func NewPriority(name string, primary, fallback []routing.Dispatcher, shuffle Shuffler) (*Priority, error) {
	if len(primary) == 0 {
		return nil, errors.New("priority selector requires at least one primary endpoint")
	}
	if err := distinct(primary, fallback); err != nil {
		return nil, err
	}
	if shuffle == nil {
		shuffle = RandomShuffle
	}
	return &Priority{
		name:     name,
		primary:  append([]routing.Dispatcher(nil), primary...),
		fallback: append([]routing.Dispatcher(nil), fallback...),
		shuffle:  shuffle,
	}, nil
}

// Name implements pipeline.Selector.
func (p *Priority) Name() string { return p.name }

// Endpoints returns the primary endpoint names followed by the fallback
// endpoint names.
func (p *Priority) Endpoints() []string {
	return append(endpointNames(p.primary), endpointNames(p.fallback)...)
}

// Handle implements pipeline.Selector.
func (p *Priority) Handle(ctx context.Context, call *pipeline.Call) (*types.Response, error) {
	if !spreadable(call) {
		return nil, routing.UnaddressedCallError(p.name)
	}

	primary := append([]routing.Dispatcher(nil), p.primary...)
	fallback := append([]routing.Dispatcher(nil), p.fallback...)
	p.shuffle(primary)
	p.shuffle(fallback)

	return routing.Failover(ctx, call, p.name, append(primary, fallback...))
}
