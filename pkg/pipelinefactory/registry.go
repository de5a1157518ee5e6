package pipelinefactory

import (
	"fmt"
	"sort"
	"sync"

	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/providers"
)

// EndpointFactory builds an endpoint dispatcher from a configuration entry.
type EndpointFactory func(env *Env, entry config.ComponentConfig) (*providers.Dispatcher, error)

// SelectorFactory builds an endpoint selector. Endpoints it refers to are
// looked up with env.Endpoint.
type SelectorFactory func(env *Env, entry config.ComponentConfig) (pipeline.Selector, error)

// StepFactory builds an auth gate or a generic step.
type StepFactory func(env *Env, entry config.ComponentConfig) (pipeline.Step, error)

// Registry maps configuration type names to factories. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]EndpointFactory
	selectors map[string]SelectorFactory
	auth      map[string]StepFactory
	steps     map[string]StepFactory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		endpoints: make(map[string]EndpointFactory),
		selectors: make(map[string]SelectorFactory),
		auth:      make(map[string]StepFactory),
		steps:     make(map[string]StepFactory),
	}
}

// DefaultRegistry returns a Registry holding every built-in type.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterEndpoint(TypeAzureOpenAIEndpoint, buildAzureEndpoint)
	r.RegisterEndpoint(TypeOpenAIEndpoint, buildOpenAIEndpoint)

	r.RegisterSelector(TypeSingleEndpoint, buildSingleSelector)
	r.RegisterSelector(TypeRandomCluster, buildRandomSelector)
	r.RegisterSelector(TypePrioritised, buildPrioritySelector)

	r.RegisterAuth(TypeAllowAnonymous, buildAllowAnonymous)
	r.RegisterAuth(TypeAPIKey, buildAPIKeyGate)
	r.RegisterAuth(TypeEntraPassThrough, buildEntraPassthrough)

	r.RegisterStep(TypeFixedWindowRateLimiter, buildRateLimiter)
	r.RegisterStep(TypeBulkHead, buildBulkhead)

	return r
}

// RegisterEndpoint registers an endpoint type, replacing any previous
// factory of the same name.
func (r *Registry) RegisterEndpoint(typeName string, f EndpointFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[typeName] = f
}

// RegisterSelector registers an endpoint selector type.
func (r *Registry) RegisterSelector(typeName string, f SelectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectors[typeName] = f
}

// RegisterAuth registers an auth provider type.
func (r *Registry) RegisterAuth(typeName string, f StepFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth[typeName] = f
}

// RegisterStep registers a generic step type.
func (r *Registry) RegisterStep(typeName string, f StepFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[typeName] = f
}

func (r *Registry) endpoint(typeName string) (EndpointFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.endpoints[typeName]
	if !ok {
		return nil, unknownType("endpoint", typeName, r.endpoints)
	}
	return f, nil
}

func (r *Registry) selector(typeName string) (SelectorFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.selectors[typeName]
	if !ok {
		return nil, unknownType("endpoint selector", typeName, r.selectors)
	}
	return f, nil
}

func (r *Registry) authProvider(typeName string) (StepFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.auth[typeName]
	if !ok {
		return nil, unknownType("auth provider", typeName, r.auth)
	}
	return f, nil
}

func (r *Registry) step(typeName string) (StepFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.steps[typeName]
	if !ok {
		return nil, unknownType("generic step", typeName, r.steps)
	}
	return f, nil
}

func unknownType[F any](kind, typeName string, known map[string]F) error {
	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("unknown %s type %q (supported: %v)", kind, typeName, names)
}
