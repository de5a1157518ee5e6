package pipelinefactory

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mockproviders "aicentral-hq/gateway/internal/providers"
	"aicentral-hq/gateway/pkg/classify"
	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/providers"
	"aicentral-hq/gateway/pkg/proxy/handlers"
	"aicentral-hq/gateway/pkg/routing"
)

const chatPath = "/openai/deployments/gpt-35/chat/completions"

func gatewayYAML(url string) string {
	return `
endpoints:
  - type: AzureOpenAIEndpoint
    name: east
    properties:
      url: ` + url + `
      model_mappings: { gpt-35: gpt-35-turbo }
      auth: { type: api_key, key: east-key }
      resiliency:
        base_delay: 1ms
  - type: OpenAIEndpoint
    name: direct
    properties:
      base_url: ` + url + `
      api_key: sk-direct
      model_mappings: { gpt-35: gpt-3.5-turbo }

endpoint_selectors:
  - type: SingleEndpoint
    name: east-only
    properties:
      endpoint: east
  - type: Prioritised
    name: east-first
    properties:
      priority_endpoints: [east]
      fallback_endpoints: [direct]

auth_providers:
  - type: AllowAnonymous
    name: anonymous
  - type: ApiKey
    name: keys
    properties:
      clients:
        - name: team-a
          keys: [key-1, key-2]

generic_steps:
  - type: FixedWindowRateLimiter
    name: one-per-minute
    properties:
      window: 1m
      permit_limit: 1
  - type: BulkHead
    name: ten-at-once
    properties:
      max_concurrency: 10

pipelines:
  - name: team
    host: team.example.com
    auth_provider: keys
    steps: [one-per-minute, ten-at-once]
    endpoint_selector: east-first
  - name: open
    host: open.example.com
    auth_provider: anonymous
    steps: [one-per-minute]
    endpoint_selector: east-only
`
}

func parse(t *testing.T, doc string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func inOrder([]routing.Dispatcher) {}

func send(h http.Handler, host string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, chatPath+"?api-version=2024-02-01",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Host = host
	req.Header.Set("Content-Type", "application/json")
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestBuild(t *testing.T) {
	server := mockproviders.NewMockServer()
	defer server.Close()

	result, err := Build(parse(t, gatewayYAML(server.URL())), Options{Shuffle: inOrder})
	require.NoError(t, err)

	require.Len(t, result.Endpoints, 2)
	assert.Equal(t, "azure-openai", result.Endpoints["east"].Kind())
	assert.Equal(t, "openai", result.Endpoints["direct"].Kind())

	pipelines := result.Router.Pipelines()
	require.Len(t, pipelines, 2)
	assert.Equal(t, "team", pipelines[0].Name())
	assert.Equal(t, []string{"keys", "one-per-minute", "ten-at-once"}, pipelines[0].StepNames())
	assert.Equal(t, "east-first", pipelines[0].Selector().Name())

	p, err := result.Router.Route("OPEN.example.com:443")
	require.NoError(t, err)
	assert.Equal(t, "open", p.Name())

	health := result.EndpointHealth()
	require.Contains(t, health, "east")
	assert.True(t, health["east"].Healthy)
}

func TestBuild_ServesThroughGateway(t *testing.T) {
	server := mockproviders.NewMockServer()
	defer server.Close()
	server.SetResponse("/openai/deployments/gpt-35-turbo/chat/completions", mockproviders.MockResponse{
		StatusCode: http.StatusOK,
		Body:       mockproviders.MockChatResponse("chatcmpl-1", "hello", "gpt-35-turbo"),
	})

	rt, err := NewRuntime(parse(t, gatewayYAML(server.URL())), Options{Shuffle: inOrder})
	require.NoError(t, err)
	gw := handlers.NewGatewayHandler(rt.Pipelines(), classify.Default())

	t.Run("api key gate", func(t *testing.T) {
		w := send(gw, "team.example.com", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = send(gw, "team.example.com", func(r *http.Request) { r.Header.Set("api-key", "key-2") })
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "east", w.Header().Get("x-aicentral-endpoint"))
		assert.Equal(t, "east-key", server.LastRequest().Header.Get("api-key"))
	})

	t.Run("each pipeline gets its own step instance", func(t *testing.T) {
		w := send(gw, "open.example.com", nil)
		require.Equal(t, http.StatusOK, w.Code, "the team pipeline's limiter must not count open's traffic")

		w = send(gw, "open.example.com", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}

func TestBuild_ReportsEveryError(t *testing.T) {
	doc := `
endpoints:
  - type: AzureOpenAIEndpoint
    name: no-key
    properties:
      url: https://east.openai.azure.com
      auth: { type: api_key }
  - type: MysteryEndpoint
    name: mystery
  - type: OpenAIEndpoint
    name: typo
    properties:
      api_key: sk-1
      organisation: contoso

endpoint_selectors:
  - type: RandomCluster
    name: pool
    properties:
      endpoints: [no-key, ghost]

auth_providers:
  - type: ApiKey
    name: empty

generic_steps:
  - type: BulkHead
    name: zero
    properties:
      max_concurrency: 0

pipelines:
  - name: main
    host: gateway.example.com
    auth_provider: empty
    steps: [zero]
    endpoint_selector: pool
`
	_, err := Build(parse(t, doc), Options{})
	require.Error(t, err)

	var verr config.ValidationError
	require.True(t, errors.As(err, &verr))

	fields := make(map[string]string)
	for _, fe := range verr.Errors {
		fields[fe.Field] = fe.Message
	}
	assert.Contains(t, fields["endpoints[0]"], "api key is required")
	assert.Contains(t, fields["endpoints[1]"], `unknown endpoint type "MysteryEndpoint"`)
	assert.Contains(t, fields["endpoints[2]"], "organisation")
	assert.Contains(t, fields["endpoint_selectors[0]"], "unknown endpoint")
	assert.Contains(t, fields["auth_providers[0]"], "at least one client")
	assert.Contains(t, fields["generic_steps[0]"], "max concurrency must be positive")
	assert.Contains(t, fields, "pipelines[0].auth_provider")
	assert.Contains(t, fields, "pipelines[0].endpoint_selector")
}

func TestRegistry_CustomType(t *testing.T) {
	reg := DefaultRegistry()
	var built []string
	reg.RegisterAuth("Recording", func(env *Env, entry config.ComponentConfig) (pipeline.Step, error) {
		built = append(built, entry.Name)
		return buildAllowAnonymous(env, entry)
	})

	doc := strings.Replace(gatewayYAML("https://example.invalid"), "type: AllowAnonymous", "type: Recording", 1)
	_, err := Build(parse(t, doc), Options{Registry: reg})
	require.NoError(t, err)
	assert.Equal(t, []string{"anonymous"}, built)
}

func TestResiliencyProperties(t *testing.T) {
	var none *resiliencyProperties
	assert.Nil(t, none.policy())

	timeout := 5 * time.Second
	retries := 0
	ratio := 0.25
	props := &resiliencyProperties{
		Timeout:       &timeout,
		MaxRetries:    &retries,
		MaxRetryAfter: 10 * time.Second,
		RetryStatuses: []int{429, 503},
		Breaker:       &breakerProperties{FailureRatio: &ratio},
	}
	p := props.policy()
	require.NotNil(t, p)

	def := providers.DefaultPolicy()
	assert.Equal(t, timeout, p.Timeout)
	assert.Zero(t, p.MaxRetries)
	assert.Equal(t, def.BaseDelay, p.BaseDelay)
	assert.Equal(t, 10*time.Second, p.MaxRetryAfter)
	assert.Equal(t, []int{429, 503}, p.RetryStatuses)
	assert.Equal(t, 0.25, p.Breaker.FailureRatio)
	assert.Equal(t, def.Breaker.BreakDuration, p.Breaker.BreakDuration)
	assert.NoError(t, p.Validate())
}

func TestBuild_RejectsRepeatedSelectorEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		properties string
		want       string
	}{
		{
			name:       "random repeats",
			properties: "type: RandomCluster\n    name: pool\n    properties:\n      endpoints: [east, direct, east]",
			want:       `properties.endpoints[2]: endpoint "east" already listed`,
		},
		{
			name:       "priority repeats",
			properties: "type: Prioritised\n    name: pool\n    properties:\n      priority_endpoints: [east, east]",
			want:       `properties.priority_endpoints[1]: endpoint "east" already listed`,
		},
		{
			name:       "primary listed as fallback",
			properties: "type: Prioritised\n    name: pool\n    properties:\n      priority_endpoints: [east]\n      fallback_endpoints: [direct, east]",
			want:       `properties.fallback_endpoints[1]: endpoint "east" already listed`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `
endpoints:
  - type: AzureOpenAIEndpoint
    name: east
    properties:
      url: https://east.openai.azure.com
      auth: { type: api_key, key: east-key }
  - type: OpenAIEndpoint
    name: direct
    properties:
      api_key: sk-direct

endpoint_selectors:
  - ` + tt.properties + `

auth_providers:
  - type: AllowAnonymous
    name: anonymous

pipelines:
  - name: main
    host: gateway.example.com
    auth_provider: anonymous
    endpoint_selector: pool
`
			_, err := Build(parse(t, doc), Options{})
			require.Error(t, err)

			var verr config.ValidationError
			require.True(t, errors.As(err, &verr))
			fields := make(map[string]string)
			for _, fe := range verr.Errors {
				fields[fe.Field] = fe.Message
			}
			assert.Contains(t, fields["endpoint_selectors[0]"], tt.want)
		})
	}
}
