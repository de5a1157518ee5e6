package pipelinefactory

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/limits/ratelimit"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/providers"
	"aicentral-hq/gateway/pkg/routing"
	"aicentral-hq/gateway/pkg/routing/strategies"
	"aicentral-hq/gateway/pkg/telemetry"
)

// Options are the runtime dependencies shared by every built component.
type Options struct {
	// Registry resolves type names. Nil uses DefaultRegistry.
	Registry *Registry

	// Sink receives request and attempt events. Nil discards them.
	Sink telemetry.Sink

	// Client performs downstream requests. Nil gives each endpoint its own
	// pooled client.
	Client *http.Client

	// Shuffle orders candidates for the random selectors. Nil shuffles
	// uniformly.
	Shuffle strategies.Shuffler

	// Now is the clock for rate-limiting steps. Nil uses time.Now.
	Now ratelimit.Clock
}

// Env is handed to every factory. It carries the shared dependencies and
// the endpoints built so far.
type Env struct {
	Sink    telemetry.Sink
	Client  *http.Client
	Shuffle strategies.Shuffler
	Now     ratelimit.Clock

	endpoints map[string]*providers.Dispatcher
}

// Endpoint returns the endpoint built for name.
func (e *Env) Endpoint(name string) (*providers.Dispatcher, error) {
	d, ok := e.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %q", name)
	}
	return d, nil
}

// Endpoints returns the endpoints built for names, in order.
func (e *Env) Endpoints(names []string) ([]routing.Dispatcher, error) {
	ds := make([]*providers.Dispatcher, 0, len(names))
	for _, name := range names {
		d, err := e.Endpoint(name)
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return asRouting(ds), nil
}

func (e *Env) clock() ratelimit.Clock {
	if e.Now == nil {
		return time.Now
	}
	return e.Now
}

// Result is a fully built configuration.
type Result struct {
	// Router routes hosts to the configured pipelines.
	Router *pipeline.Router

	// Endpoints holds every endpoint dispatcher by name.
	Endpoints map[string]*providers.Dispatcher
}

// EndpointHealth reports the health of every built endpoint.
func (r *Result) EndpointHealth() map[string]providers.Health {
	out := make(map[string]providers.Health, len(r.Endpoints))
	for name, d := range r.Endpoints {
		out[name] = d.Health()
	}
	return out
}

// Build builds every component of cfg and the pipelines that use them.
// Every failure is reported, not only the first, as a config.ValidationError
// whose fields name the offending entries.
//
// Endpoints, selectors and auth providers are built once and shared by the
// pipelines that refer to them, so an endpoint's circuit breaker and
// concurrency cap see all of its traffic. Generic steps are built once per
// pipeline that lists them.
func Build(cfg *config.Config, opts Options) (*Result, error) {
	reg := opts.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	sink := opts.Sink
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	env := &Env{
		Sink:      sink,
		Client:    opts.Client,
		Shuffle:   opts.Shuffle,
		Now:       opts.Now,
		endpoints: make(map[string]*providers.Dispatcher, len(cfg.Endpoints)),
	}

	var errs []config.FieldError
	fail := func(field string, entry config.ComponentConfig, err error) {
		errs = append(errs, config.FieldError{Field: field, Message: fmt.Sprintf("%s %q: %v", entry.Type, entry.Name, err)})
	}

	for i, entry := range cfg.Endpoints {
		field := fmt.Sprintf("endpoints[%d]", i)
		f, err := reg.endpoint(entry.Type)
		if err != nil {
			fail(field, entry, err)
			continue
		}
		d, err := f(env, entry)
		if err != nil {
			fail(field, entry, err)
			continue
		}
		env.endpoints[entry.Name] = d
	}

	selectors := make(map[string]pipeline.Selector, len(cfg.EndpointSelectors))
	for i, entry := range cfg.EndpointSelectors {
		field := fmt.Sprintf("endpoint_selectors[%d]", i)
		f, err := reg.selector(entry.Type)
		if err != nil {
			fail(field, entry, err)
			continue
		}
		s, err := f(env, entry)
		if err != nil {
			fail(field, entry, err)
			continue
		}
		selectors[entry.Name] = s
	}

	authProviders := make(map[string]pipeline.Step, len(cfg.AuthProviders))
	for i, entry := range cfg.AuthProviders {
		field := fmt.Sprintf("auth_providers[%d]", i)
		f, err := reg.authProvider(entry.Type)
		if err != nil {
			fail(field, entry, err)
			continue
		}
		a, err := f(env, entry)
		if err != nil {
			fail(field, entry, err)
			continue
		}
		authProviders[entry.Name] = a
	}

	stepEntries := make(map[string]int, len(cfg.GenericSteps))
	for i, entry := range cfg.GenericSteps {
		if _, err := reg.step(entry.Type); err != nil {
			fail(fmt.Sprintf("generic_steps[%d]", i), entry, err)
			continue
		}
		stepEntries[entry.Name] = i
	}

	pipelines := make([]*pipeline.Pipeline, 0, len(cfg.Pipelines))
	for i, pc := range cfg.Pipelines {
		prefix := fmt.Sprintf("pipelines[%d]", i)

		authStep, ok := authProviders[pc.AuthProvider]
		if !ok {
			errs = append(errs, config.FieldError{Field: prefix + ".auth_provider", Message: fmt.Sprintf("auth provider %q is not available", pc.AuthProvider)})
		}
		selector, ok := selectors[pc.EndpointSelector]
		if !ok {
			errs = append(errs, config.FieldError{Field: prefix + ".endpoint_selector", Message: fmt.Sprintf("endpoint selector %q is not available", pc.EndpointSelector)})
		}

		steps := make([]pipeline.Step, 0, len(pc.Steps))
		for j, name := range pc.Steps {
			field := fmt.Sprintf("%s.steps[%d]", prefix, j)
			idx, ok := stepEntries[name]
			if !ok {
				errs = append(errs, config.FieldError{Field: field, Message: fmt.Sprintf("generic step %q is not available", name)})
				continue
			}
			entry := cfg.GenericSteps[idx]
			f, _ := reg.step(entry.Type)
			step, err := f(env, entry)
			if err != nil {
				fail(fmt.Sprintf("generic_steps[%d]", idx), entry, err)
				continue
			}
			steps = append(steps, step)
		}

		if authStep == nil || selector == nil || len(steps) != len(pc.Steps) {
			continue
		}

		p, err := pipeline.New(pipeline.Options{
			Name:           pc.Name,
			Host:           pc.Host,
			Auth:           authStep,
			Steps:          steps,
			Selector:       selector,
			RequestTimeout: pc.Timeout(),
			Sink:           sink,
		})
		if err != nil {
			errs = append(errs, config.FieldError{Field: prefix, Message: err.Error()})
			continue
		}
		pipelines = append(pipelines, p)
	}

	if len(errs) > 0 {
		return nil, config.ValidationError{Errors: errs}
	}

	for _, p := range pipelines {
		slog.Debug("pipeline built",
			"pipeline", p.Name(),
			"host", p.Host(),
			"steps", p.StepNames(),
			"selector", p.Selector().Name(),
		)
	}

	return &Result{
		Router:    pipeline.NewRouter(pipelines),
		Endpoints: env.endpoints,
	}, nil
}

// decodeProperties decodes an entry's properties strictly.
func decodeProperties(entry config.ComponentConfig, out interface{}) error {
	if err := entry.Decode(out); err != nil {
		return fmt.Errorf("invalid properties: %w", err)
	}
	return nil
}
