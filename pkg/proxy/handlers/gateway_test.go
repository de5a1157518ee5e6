package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mockproviders "aicentral-hq/gateway/internal/providers"
	"aicentral-hq/gateway/pkg/classify"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/providers"
	"aicentral-hq/gateway/pkg/providers/azure"
	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/routing"
	"aicentral-hq/gateway/pkg/routing/strategies"
	"aicentral-hq/gateway/pkg/security/auth"
)

const chatPath = "/openai/deployments/gpt-35/chat/completions"

const chatBody = `{"messages":[{"role":"user","content":"hello"}]}`

// fastPolicy is the default policy with millisecond backoff.
func fastPolicy() *providers.Policy {
	p := providers.DefaultPolicy()
	p.BaseDelay = time.Millisecond
	return &p
}

func newEndpoint(t *testing.T, name string, server *mockproviders.MockServer) *providers.Dispatcher {
	t.Helper()
	d, err := azure.New(azure.Config{
		Name:          name,
		URL:           server.URL(),
		ModelMappings: map[string]string{"gpt-35": "gpt-35"},
		Auth:          azure.AuthConfig{Type: azure.AuthAPIKey, Key: name + "-key"},
		Policy:        fastPolicy(),
	})
	require.NoError(t, err)
	return d
}

// inOrder keeps the configured endpoint order.
func inOrder([]routing.Dispatcher) {}

func newGateway(t *testing.T, gate pipeline.Step, selector pipeline.Selector) *GatewayHandler {
	t.Helper()
	p, err := pipeline.New(pipeline.Options{
		Name:     "random-pool",
		Host:     "gateway.example.com",
		Auth:     gate,
		Selector: selector,
	})
	require.NoError(t, err)
	return NewGatewayHandler(pipeline.NewSet(pipeline.NewRouter([]*pipeline.Pipeline{p})), classify.Default())
}

func serve(h http.Handler, host, path, body string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path+"?api-version=2024-02-01", strings.NewReader(body))
	req.Host = host
	req.Header.Set("Content-Type", "application/json")
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestGateway_RandomPoolFailsOverAfterRetries(t *testing.T) {
	throttled := mockproviders.NewMockServer()
	defer throttled.Close()
	throttled.SetResponse(chatPath, mockproviders.MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       mockproviders.ErrorBody("rate_limit_exceeded", "slow down"),
	})

	healthy := mockproviders.NewMockServer()
	defer healthy.Close()
	healthy.SetResponse(chatPath, mockproviders.MockResponse{
		StatusCode: http.StatusOK,
		Body:       map[string]string{"id": "X"},
	})

	a := newEndpoint(t, "a", throttled)
	b := newEndpoint(t, "b", healthy)
	selector, err := strategies.NewRandom("pool", []routing.Dispatcher{a, b}, inOrder)
	require.NoError(t, err)

	h := newGateway(t, auth.NewAllowAnonymous("anonymous"), selector)
	w := serve(h, "gateway.example.com", chatPath, chatBody, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "X", body["id"])

	assert.Equal(t, 4, throttled.GetRequestCount(), "one attempt plus three retries")
	assert.Equal(t, 1, healthy.GetRequestCount())
	assert.Equal(t, "b", w.Header().Get(types.EndpointHeader))
	assert.NotEmpty(t, w.Header().Get(types.DurationHeader))
	assert.Equal(t, "b-key", healthy.LastRequest().Header.Get("api-key"))
}

func TestGateway_UnroutedHostIsNotFound(t *testing.T) {
	server := mockproviders.NewMockServer()
	defer server.Close()

	selector, err := strategies.NewSingle("single", newEndpoint(t, "a", server))
	require.NoError(t, err)
	h := newGateway(t, auth.NewAllowAnonymous("anonymous"), selector)

	w := serve(h, "other.example.com", chatPath, chatBody, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, types.CodeUnroutedHost, errorCode(t, w))
	assert.NotEmpty(t, w.Header().Get(types.DurationHeader))
	assert.Zero(t, server.GetRequestCount())
}

func TestGateway_HostMatchIgnoresCaseAndPort(t *testing.T) {
	server := mockproviders.NewMockServer()
	defer server.Close()
	server.SetResponse(chatPath, mockproviders.MockResponse{
		Body: mockproviders.MockChatResponse("chatcmpl-1", "hi", "gpt-35"),
	})

	selector, err := strategies.NewSingle("single", newEndpoint(t, "a", server))
	require.NoError(t, err)
	h := newGateway(t, auth.NewAllowAnonymous("anonymous"), selector)

	w := serve(h, "Gateway.Example.com:8443", chatPath, chatBody, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, server.GetRequestCount())
}

func TestGateway_MalformedBodyNeverReachesEndpoint(t *testing.T) {
	server := mockproviders.NewMockServer()
	defer server.Close()

	selector, err := strategies.NewSingle("single", newEndpoint(t, "a", server))
	require.NoError(t, err)
	h := newGateway(t, auth.NewAllowAnonymous("anonymous"), selector)

	w := serve(h, "gateway.example.com", chatPath, `{"messages": [`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, types.CodeInvalidJSON, errorCode(t, w))
	assert.Zero(t, server.GetRequestCount())
}

func TestGateway_AuthGate(t *testing.T) {
	server := mockproviders.NewMockServer()
	defer server.Close()
	server.SetResponse(chatPath, mockproviders.MockResponse{
		Body: mockproviders.MockChatResponse("chatcmpl-1", "hi", "gpt-35"),
	})

	validator, err := auth.NewAPIKeyValidator([]auth.Client{{Name: "team-a", Keys: []string{"old", "new"}}})
	require.NoError(t, err)
	selector, err := strategies.NewSingle("single", newEndpoint(t, "a", server))
	require.NoError(t, err)
	h := newGateway(t, auth.NewAPIKeyGate("clients", validator, nil), selector)

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{name: "current key", key: "new", wantStatus: http.StatusOK},
		{name: "rotated key", key: "old", wantStatus: http.StatusOK},
		{name: "wrong key", key: "nope", wantStatus: http.StatusUnauthorized},
		{name: "missing key", key: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, "gateway.example.com", chatPath, chatBody, func(r *http.Request) {
				if tt.key != "" {
					r.Header.Set("api-key", tt.key)
				}
			})
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	assert.Equal(t, 2, server.GetRequestCount())
	assert.Equal(t, "a-key", server.LastRequest().Header.Get("api-key"), "caller key is replaced by the endpoint key")
}

func TestGateway_TerminalDownstreamStatusIsSurfaced(t *testing.T) {
	server := mockproviders.NewMockServer()
	defer server.Close()
	server.SetResponse(chatPath, mockproviders.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       mockproviders.ErrorBody("context_length_exceeded", "too long"),
	})

	selector, err := strategies.NewSingle("single", newEndpoint(t, "a", server))
	require.NoError(t, err)
	h := newGateway(t, auth.NewAllowAnonymous("anonymous"), selector)

	w := serve(h, "gateway.example.com", chatPath, chatBody, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "context_length_exceeded", errorCode(t, w))
	assert.Equal(t, 1, server.GetRequestCount())
}

func TestGateway_StreamsEventStream(t *testing.T) {
	server := mockproviders.NewMockServer()
	defer server.Close()
	server.SetResponse(chatPath, mockproviders.MockResponse{
		StreamChunks: []string{
			mockproviders.MockStreamChunk("Hel", ""),
			mockproviders.MockStreamChunk("lo", "stop"),
		},
	})

	selector, err := strategies.NewSingle("single", newEndpoint(t, "a", server))
	require.NoError(t, err)
	h := newGateway(t, auth.NewAllowAnonymous("anonymous"), selector)

	w := serve(h, "gateway.example.com", chatPath,
		`{"stream":true,"messages":[{"role":"user","content":"hello"}]}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "a", w.Header().Get(types.EndpointHeader))
	assert.Contains(t, w.Body.String(), `"content":"Hel"`)
	assert.Contains(t, w.Body.String(), "data: [DONE]")
	assert.True(t, w.Flushed)
}
