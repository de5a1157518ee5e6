// Package azure implements the Azure OpenAI endpoint kind.
//
// Addressed calls are sent to the deployment the model maps to:
//
//	{url}/openai/deployments/{deployment}/{operation}?api-version={version}
//
// Calls that name no model, such as image generation polling, are sent to
// the same path below /openai that the caller used.
package azure

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/providers"
	"aicentral-hq/gateway/pkg/telemetry"
)

// Kind is the endpoint type name.
const Kind = "azure-openai"

// DefaultAPIVersion is sent when neither the caller nor the configuration
// names an api-version.
const DefaultAPIVersion = "2024-02-01"

// Auth types.
const (
	AuthAPIKey      = "api_key"
	AuthBearer      = "bearer"
	AuthPassthrough = "passthrough"
)

// KeyHeader is the header Azure OpenAI reads API keys from.
const KeyHeader = "api-key"

// Target builds Azure OpenAI requests.
type Target struct {
	base       *url.URL
	apiVersion string
}

// NewTarget creates a Target for the resource at baseURL.
func NewTarget(baseURL, apiVersion string) (*Target, error) {
	base, err := providers.ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Target{base: base, apiVersion: apiVersion}, nil
}

// Kind implements providers.Target.
func (t *Target) Kind() string { return Kind }

// Outbound implements providers.Target. The body is sent unchanged: Azure
// addresses the model through the deployment path.
func (t *Target) Outbound(call *pipeline.Call, model string) (string, []byte, error) {
	query := call.Request.URL.Query()
	if query.Get("api-version") == "" {
		query.Set("api-version", t.apiVersion)
	}

	op := call.Details.Operation
	path := "/openai/" + op
	if model != "" {
		path = "/openai/deployments/" + model + "/" + op
	}
	return providers.JoinURL(t.base, path, query), call.Details.Body, nil
}

// AuthConfig selects how the gateway authenticates to the resource.
type AuthConfig struct {
	// Type is one of AuthAPIKey, AuthBearer or AuthPassthrough.
	Type string

	// Key is the resource API key (AuthAPIKey).
	Key string

	// TenantID, ClientID and ClientSecret are the Entra application
	// credentials (AuthBearer).
	TenantID     string
	ClientID     string
	ClientSecret string

	// Scopes overrides the requested token scopes (AuthBearer).
	Scopes []string
}

// Authenticator builds the configured providers.Authenticator.
func (c AuthConfig) Authenticator() (providers.Authenticator, error) {
	switch c.Type {
	case AuthAPIKey, "":
		if c.Key == "" {
			return nil, fmt.Errorf("api key is required")
		}
		return providers.NewAPIKeyAuth(KeyHeader, c.Key), nil
	case AuthBearer:
		if c.TenantID == "" || c.ClientID == "" || c.ClientSecret == "" {
			return nil, fmt.Errorf("tenant_id, client_id and client_secret are required for bearer auth")
		}
		source := providers.NewClientCredentials(c.TenantID, c.ClientID, c.ClientSecret, c.Scopes)
		return providers.NewBearerAuth(source, 0), nil
	case AuthPassthrough:
		return providers.PassthroughAuth{}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", c.Type)
	}
}

// Config describes an Azure OpenAI endpoint.
type Config struct {
	Name           string
	URL            string
	APIVersion     string
	ModelMappings  map[string]string
	Auth           AuthConfig
	MaxConcurrency int64
	QueueTimeout   time.Duration
	Policy         *providers.Policy
	Client         *http.Client
	Sink           telemetry.Sink
}

// New creates a dispatcher for an Azure OpenAI endpoint.
func New(cfg Config) (*providers.Dispatcher, error) {
	target, err := NewTarget(cfg.URL, cfg.APIVersion)
	if err != nil {
		return nil, &providers.ConfigError{Endpoint: cfg.Name, Field: "url", Message: err.Error()}
	}
	auth, err := cfg.Auth.Authenticator()
	if err != nil {
		return nil, &providers.ConfigError{Endpoint: cfg.Name, Field: "auth", Message: err.Error()}
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
