package pipelinefactory

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/providers"
)

// Runtime holds the live pipelines and rebuilds them when the configuration
// changes. It is safe for concurrent use.
type Runtime struct {
	opts    Options
	set     *pipeline.Set
	current atomic.Pointer[Result]

	// reloadMu serializes rebuilds.
	reloadMu sync.Mutex
}

// NewRuntime builds cfg and returns a Runtime serving it.
func NewRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	result, err := Build(cfg, opts)
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		opts: opts,
		set:  pipeline.NewSet(result.Router),
	}
	r.current.Store(result)

	slog.Info("pipelines loaded",
		"pipelines", len(result.Router.Pipelines()),
		"endpoints", len(result.Endpoints),
	)
	return r, nil
}

// Pipelines returns the Set the gateway handler routes through.
func (r *Runtime) Pipelines() *pipeline.Set {
	return r.set
}

// Current returns the active build.
func (r *Runtime) Current() *Result {
	return r.current.Load()
}

// EndpointHealth reports the health of the active endpoints.
func (r *Runtime) EndpointHealth() map[string]providers.Health {
	return r.current.Load().EndpointHealth()
}

// Reload builds cfg from scratch and swaps it in. Requests already in
// flight finish on the pipelines they started with. If the build fails the
// active pipelines stay in place and the error is returned.
//
// Rebuilt endpoints start with fresh circuit breakers and health counters.
func (r *Runtime) Reload(cfg *config.Config) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	result, err := Build(cfg, r.opts)
	if err != nil {
		slog.Error("pipeline rebuild failed, keeping active pipelines", "error", err)
		return fmt.Errorf("failed to rebuild pipelines: %w", err)
	}

	r.set.Swap(result.Router)
	r.current.Store(result)

	slog.Info("pipelines reloaded",
		"pipelines", len(result.Router.Pipelines()),
		"endpoints", len(result.Endpoints),
	)
	return nil
}
