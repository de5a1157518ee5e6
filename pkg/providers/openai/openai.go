// Package openai implements the OpenAI endpoint kind.
//
// Calls are sent to {base_url}/v1/{operation}. The JSON body's "model"
// field is rewritten to the mapped model name, so Azure-style calls that
// address a deployment can be served by OpenAI.
package openai

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/sjson"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/providers"
	"aicentral-hq/gateway/pkg/telemetry"
)

// Kind is the endpoint type name.
const Kind = "openai"

// DefaultBaseURL is the public OpenAI API.
const DefaultBaseURL = "https://api.openai.com"

// OrganizationHeader selects the billed OpenAI organization.
const OrganizationHeader = "OpenAI-Organization"

// Target builds OpenAI requests.
type Target struct {
	base *url.URL
}

// NewTarget creates a Target. An empty baseURL uses DefaultBaseURL.
func NewTarget(baseURL string) (*Target, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := providers.ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Target{base: base}, nil
}

// Kind implements providers.Target.
func (t *Target) Kind() string { return Kind }

// Outbound implements providers.Target. Multipart bodies, such as audio
// uploads, are forwarded unchanged.
func (t *Target) Outbound(call *pipeline.Call, model string) (string, []byte, error) {
	query := call.Request.URL.Query()
	query.Del("api-version")

	body := call.Details.Body
	if model != "" && call.Details.Parsed {
		rewritten, err := sjson.SetBytes(body, "model", model)
		if err != nil {
			return "", nil, fmt.Errorf("failed to set model: %w", err)
		}
		body = rewritten
	}

	return providers.JoinURL(t.base, "/v1/"+call.Details.Operation, query), body, nil
}

// Config describes an OpenAI endpoint.
type Config struct {
	Name           string
	BaseURL        string
	APIKey         string
	Organization   string
	ModelMappings  map[string]string
	MaxConcurrency int64
	QueueTimeout   time.Duration
	Policy         *providers.Policy
	Client         *http.Client
	Sink           telemetry.Sink
}

// Authenticator returns the static key authenticator for cfg.
func (cfg Config) Authenticator() (*providers.HeaderAuth, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	auth := providers.NewAPIKeyAuth("Authorization", "Bearer "+cfg.APIKey)
	if cfg.Organization != "" {
		auth.Headers.Set(OrganizationHeader, cfg.Organization)
	}
	return auth, nil
}

// New creates a dispatcher for an OpenAI endpoint.
func New(cfg Config) (*providers.Dispatcher, error) {
	target, err := NewTarget(cfg.BaseURL)
	if err != nil {
		return nil, &providers.ConfigError{Endpoint: cfg.Name, Field: "base_url", Message: err.Error()}
	}
	auth, err := cfg.Authenticator()
	if err != nil {
		return nil, &providers.ConfigError{Endpoint: cfg.Name, Field: "api_key", Message: err.Error()}
	}
	return providers.New(providers.Options{
		Name:           cfg.Name,
		Target:         target,
		Auth:           auth,
		ModelMappings:  cfg.ModelMappings,
		Policy:         cfg.Policy,
		MaxConcurrency: cfg.MaxConcurrency,
		QueueTimeout:   cfg.QueueTimeout,
		Client:         cfg.Client,
		Sink:           cfg.Sink,
	})
}
