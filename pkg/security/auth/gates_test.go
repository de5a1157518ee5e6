package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"aicentral-hq/gateway/pkg/classify"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
)

func newCall(setup func(*http.Request)) *pipeline.Call {
	r := httptest.NewRequest(http.MethodPost, "/openai/deployments/gpt-4/chat/completions", nil)
	if setup != nil {
		setup(r)
	}
	return pipeline.NewCall(r, httptest.NewRecorder(), classify.CallDetails{CallType: classify.CallChat, Model: "gpt-4"})
}

// terminal records whether the rest of the chain ran and which client it saw.
type terminal struct {
	called bool
	client string
}

func (t *terminal) next(ctx context.Context, call *pipeline.Call) (*types.Response, error) {
	t.called = true
	t.client, _ = ClientFrom(ctx)
	return &types.Response{StatusCode: http.StatusOK}, nil
}

func TestAllowAnonymous(t *testing.T) {
	gate := NewAllowAnonymous("anon")
	term := &terminal{}

	resp, err := gate.Handle(context.Background(), newCall(nil), term.next)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !term.called || resp.StatusCode != http.StatusOK {
		t.Error("anonymous gate did not pass the request on")
	}
	if gate.Name() != "anon" {
		t.Errorf("Name() = %q", gate.Name())
	}
}

func TestAPIKeyGate_Handle(t *testing.T) {
	validator, err := NewAPIKeyValidator([]Client{
		{Name: "billing", Keys: []string{"key-one", "key-two"}},
	})
	if err != nil {
		t.Fatalf("NewAPIKeyValidator() error = %v", err)
	}
	gate := NewAPIKeyGate("keys", validator, nil)

	tests := []struct {
		name       string
		setup      func(*http.Request)
		wantCode   string
		wantClient string
	}{
		{
			name:       "first key in api-key header",
			setup:      func(r *http.Request) { r.Header.Set("api-key", "key-one") },
			wantClient: "billing",
		},
		{
			name:       "second key in api-key header",
			setup:      func(r *http.Request) { r.Header.Set("api-key", "key-two") },
			wantClient: "billing",
		},
		{
			name:       "bearer key",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer key-two") },
			wantClient: "billing",
		},
		{
			name:     "missing key",
			setup:    nil,
			wantCode: types.CodeMissingCredentials,
		},
		{
			name:     "wrong key",
			setup:    func(r *http.Request) { r.Header.Set("api-key", "key-three") },
			wantCode: types.CodeInvalidCredentials,
		},
		{
			name:     "basic auth is not a key",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Basic key-one") },
			wantCode: types.CodeMissingCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := &terminal{}
			_, err := gate.Handle(context.Background(), newCall(tt.setup), term.next)

			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Handle() error = %v", err)
				}
				if term.client != tt.wantClient {
					t.Errorf("client = %q, want %q", term.client, tt.wantClient)
				}
				return
			}

			if term.called {
				t.Error("rejected request reached the rest of the chain")
			}
			gwErr, ok := err.(*types.GatewayError)
			if !ok {
				t.Fatalf("Handle() error = %T %v, want *types.GatewayError", err, err)
			}
			if gwErr.Status != http.StatusUnauthorized || gwErr.Code != tt.wantCode {
				t.Errorf("error = %d %s, want 401 %s", gwErr.Status, gwErr.Code, tt.wantCode)
			}
		})
	}
}

func TestEntraPassthrough_Handle(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"aud": "https://cognitiveservices.azure.com",
		"oid": "00000000-0000-0000-0000-000000000001",
	}).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	gate := NewEntraPassthrough("entra")

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{name: "well formed token", header: "Bearer " + token},
		{name: "missing token", header: "", wantCode: types.CodeMissingCredentials},
		{name: "not a jwt", header: "Bearer opaque-token", wantCode: types.CodeInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := newCall(func(r *http.Request) {
				if tt.header != "" {
					r.Header.Set("Authorization", tt.header)
				}
			})
			term := &terminal{}
			_, err := gate.Handle(context.Background(), call, term.next)

			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Handle() error = %v", err)
				}
				if !term.called {
					t.Error("valid token did not reach the rest of the chain")
				}
				return
			}
			if term.called {
				t.Error("rejected request reached the rest of the chain")
			}
			if types.StatusOf(err) != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", types.StatusOf(err))
			}
			var gwErr *types.GatewayError
			if ge, ok := err.(*types.GatewayError); ok {
				gwErr = ge
			}
			if gwErr == nil || gwErr.Code != tt.wantCode {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}
