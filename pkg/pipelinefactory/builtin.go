package pipelinefactory

import (
	"errors"
	"fmt"
	"time"

	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/limits/ratelimit"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/providers"
	"aicentral-hq/gateway/pkg/providers/azure"
	"aicentral-hq/gateway/pkg/providers/openai"
	"aicentral-hq/gateway/pkg/routing"
	"aicentral-hq/gateway/pkg/routing/strategies"
	"aicentral-hq/gateway/pkg/security/auth"
)

// Built-in component type names.
const (
	TypeAzureOpenAIEndpoint = "AzureOpenAIEndpoint"
	TypeOpenAIEndpoint      = "OpenAIEndpoint"

	TypeSingleEndpoint = "SingleEndpoint"
	TypeRandomCluster  = "RandomCluster"
	TypePrioritised    = "Prioritised"

	TypeAllowAnonymous   = "AllowAnonymous"
	TypeAPIKey           = "ApiKey"
	TypeEntraPassThrough = "EntraPassThrough"

	TypeFixedWindowRateLimiter = "FixedWindowRateLimiter"
	TypeBulkHead               = "BulkHead"
)

// resiliencyProperties overrides parts of providers.DefaultPolicy.
type resiliencyProperties struct {
	Timeout       *time.Duration     `yaml:"timeout"`
	MaxRetries    *int               `yaml:"max_retries"`
	BaseDelay     *time.Duration     `yaml:"base_delay"`
	MaxRetryAfter time.Duration      `yaml:"max_retry_after"`
	RetryStatuses []int              `yaml:"retry_statuses"`
	Breaker       *breakerProperties `yaml:"breaker"`
}

type breakerProperties struct {
	Disabled          bool           `yaml:"disabled"`
	FailureRatio      *float64       `yaml:"failure_ratio"`
	SamplingDuration  *time.Duration `yaml:"sampling_duration"`
	MinimumThroughput *int64         `yaml:"minimum_throughput"`
	BreakDuration     *time.Duration `yaml:"break_duration"`
}

// policy returns the effective policy, or nil to use the default.
func (r *resiliencyProperties) policy() *providers.Policy {
	if r == nil {
		return nil
	}
	p := providers.DefaultPolicy()
	if r.Timeout != nil {
		p.Timeout = *r.Timeout
	}
	if r.MaxRetries != nil {
		p.MaxRetries = *r.MaxRetries
	}
	if r.BaseDelay != nil {
		p.BaseDelay = *r.BaseDelay
	}
	p.MaxRetryAfter = r.MaxRetryAfter
	if len(r.RetryStatuses) > 0 {
		p.RetryStatuses = append([]int(nil), r.RetryStatuses...)
	}
	if b := r.Breaker; b != nil {
		p.Breaker.Disabled = b.Disabled
		if b.FailureRatio != nil {
			p.Breaker.FailureRatio = *b.FailureRatio
		}
		if b.SamplingDuration != nil {
			p.Breaker.SamplingDuration = *b.SamplingDuration
		}
		if b.MinimumThroughput != nil {
			p.Breaker.MinimumThroughput = *b.MinimumThroughput
		}
		if b.BreakDuration != nil {
			p.Breaker.BreakDuration = *b.BreakDuration
		}
	}
	return &p
}

type azureAuthProperties struct {
	Type         string   `yaml:"type"`
	Key          string   `yaml:"key"`
	TenantID     string   `yaml:"tenant_id"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

type azureProperties struct {
	URL            string                `yaml:"url"`
	APIVersion     string                `yaml:"api_version"`
	ModelMappings  map[string]string     `yaml:"model_mappings"`
	Auth           azureAuthProperties   `yaml:"auth"`
	MaxConcurrency int64                 `yaml:"max_concurrency"`
	QueueTimeout   time.Duration         `yaml:"queue_timeout"`
	Resiliency     *resiliencyProperties `yaml:"resiliency"`
}

func buildAzureEndpoint(env *Env, entry config.ComponentConfig) (*providers.Dispatcher, error) {
	var props azureProperties
	if err := decodeProperties(entry, &props); err != nil {
		return nil, err
	}
	return azure.New(azure.Config{
		Name:          entry.Name,
		URL:           props.URL,
		APIVersion:    props.APIVersion,
		ModelMappings: props.ModelMappings,
		Auth: azure.AuthConfig{
			Type:         props.Auth.Type,
			Key:          props.Auth.Key,
			TenantID:     props.Auth.TenantID,
			ClientID:     props.Auth.ClientID,
			ClientSecret: props.Auth.ClientSecret,
			Scopes:       props.Auth.Scopes,
		},
		MaxConcurrency: props.MaxConcurrency,
		QueueTimeout:   props.QueueTimeout,
		Policy:         props.Resiliency.policy(),
		Client:         env.Client,
		Sink:           env.Sink,
	})
}

type openAIProperties struct {
	BaseURL        string                `yaml:"base_url"`
	APIKey         string                `yaml:"api_key"`
	Organization   string                `yaml:"organization"`
	ModelMappings  map[string]string     `yaml:"model_mappings"`
	MaxConcurrency int64                 `yaml:"max_concurrency"`
	QueueTimeout   time.Duration         `yaml:"queue_timeout"`
	Resiliency     *resiliencyProperties `yaml:"resiliency"`
}

func buildOpenAIEndpoint(env *Env, entry config.ComponentConfig) (*providers.Dispatcher, error) {
	var props openAIProperties
	if err := decodeProperties(entry, &props); err != nil {
		return nil, err
	}
	return openai.New(openai.Config{
		Name:           entry.Name,
		BaseURL:        props.BaseURL,
		APIKey:         props.APIKey,
		Organization:   props.Organization,
		ModelMappings:  props.ModelMappings,
		MaxConcurrency: props.MaxConcurrency,
		QueueTimeout:   props.QueueTimeout,
		Policy:         props.Resiliency.policy(),
		Client:         env.Client,
		Sink:           env.Sink,
	})
}

func buildSingleSelector(env *Env, entry config.ComponentConfig) (pipeline.Selector, error) {
	var props struct {
		Endpoint string `yaml:"endpoint"`
	}
	if err := decodeProperties(entry, &props); err != nil {
		return nil, err
	}
	if props.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	d, err := env.Endpoint(props.Endpoint)
	if err != nil {
		return nil, err
	}
	return strategies.NewSingle(entry.Name, d)
}

func buildRandomSelector(env *Env, entry config.ComponentConfig) (pipeline.Selector, error) {
	var props struct {
		Endpoints []string `yaml:"endpoints"`
	}
	if err := decodeProperties(entry, &props); err != nil {
		return nil, err
	}
	if err := distinctNames(namedList{"endpoints", props.Endpoints}); err != nil {
		return nil, err
	}
	endpoints, err := env.Endpoints(props.Endpoints)
	if err != nil {
		return nil, err
	}
	return strategies.NewRandom(entry.Name, endpoints, env.Shuffle)
}

func buildPrioritySelector(env *Env, entry config.ComponentConfig) (pipeline.Selector, error) {
	var props struct {
		Priority []string `yaml:"priority_endpoints"`
		Fallback []string `yaml:"fallback_endpoints"`
	}
	if err := decodeProperties(entry, &props); err != nil {
		return nil, err
	}
	if err := distinctNames(
		namedList{"priority_endpoints", props.Priority},
		namedList{"fallback_endpoints", props.Fallback},
	); err != nil {
		return nil, err
	}
	primary, err := env.Endpoints(props.Priority)
	if err != nil {
		return nil, fmt.Errorf("priority_endpoints: %w", err)
	}
	fallback, err := env.Endpoints(props.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback_endpoints: %w", err)
	}
	return strategies.NewPriority(entry.Name, primary, fallback, env.Shuffle)
}

type namedList struct {
	key   string
	names []string
}

// distinctNames reports the first endpoint name repeated across lists, by
// its property path.
func distinctNames(lists ...namedList) error {
	seen := make(map[string]bool)
	for _, l := range lists {
		for j, name := range l.names {
			if seen[name] {
				return fmt.Errorf("properties.%s[%d]: endpoint %q already listed", l.key, j, name)
			}
			seen[name] = true
		}
	}
	return nil
}

func buildAllowAnonymous(_ *Env, entry config.ComponentConfig) (pipeline.Step, error) {
	if err := decodeProperties(entry, &struct{}{}); err != nil {
		return nil, err
	}
	return auth.NewAllowAnonymous(entry.Name), nil
}

func buildAPIKeyGate(_ *Env, entry config.ComponentConfig) (pipeline.Step, error) {
	var props struct {
		Clients []struct {
			Name string   `yaml:"name"`
			Keys []string `yaml:"keys"`
		} `yaml:"clients"`
		Headers []struct {
			Header string `yaml:"header"`
			Scheme string `yaml:"scheme"`
		} `yaml:"headers"`
	}
	if err := decodeProperties(entry, &props); err != nil {
		return nil, err
	}

	clients := make([]auth.Client, len(props.Clients))
	for i, c := range props.Clients {
		clients[i] = auth.Client{Name: c.Name, Keys: c.Keys}
	}
	validator, err := auth.NewAPIKeyValidator(clients)
	if err != nil {
		return nil, err
	}

	var sources []auth.KeySource
	for _, h := range props.Headers {
		if h.Header == "" {
			return nil, errors.New("headers: header name is required")
		}
		sources = append(sources, auth.KeySource{Header: h.Header, Scheme: h.Scheme})
	}
	return auth.NewAPIKeyGate(entry.Name, validator, sources), nil
}

func buildEntraPassthrough(_ *Env, entry config.ComponentConfig) (pipeline.Step, error) {
	if err := decodeProperties(entry, &struct{}{}); err != nil {
		return nil, err
	}
	return auth.NewEntraPassthrough(entry.Name), nil
}

func buildRateLimiter(env *Env, entry config.ComponentConfig) (pipeline.Step, error) {
	var props struct {
		Window      time.Duration `yaml:"window"`
		PermitLimit int64         `yaml:"permit_limit"`
	}
	if err := decodeProperties(entry, &props); err != nil {
		return nil, err
	}
	return ratelimit.NewRateLimitWithClock(entry.Name, props.Window, props.PermitLimit, env.clock())
}

func buildBulkhead(_ *Env, entry config.ComponentConfig) (pipeline.Step, error) {
	var props struct {
		MaxConcurrency int `yaml:"max_concurrency"`
	}
	if err := decodeProperties(entry, &props); err != nil {
		return nil, err
	}
	return ratelimit.NewBulkhead(entry.Name, props.MaxConcurrency)
}

// asRouting widens dispatchers for the selector constructors.
func asRouting(ds []*providers.Dispatcher) []routing.Dispatcher {
	out := make([]routing.Dispatcher, len(ds))
	for i, d := range ds {
		out[i] = d
	}
	return out
}
