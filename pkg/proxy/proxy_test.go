package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicentral-hq/gateway/pkg/classify"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
)

type downstreamErr struct {
	resp *types.Response
}

func (e *downstreamErr) Error() string                       { return "downstream failed" }
func (e *downstreamErr) DownstreamResponse() *types.Response { return e.resp }

func newCall() *pipeline.Call {
	r := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	return pipeline.NewCall(r, httptest.NewRecorder(), classify.CallDetails{CallType: classify.CallChat})
}

func TestWriteResponse_Buffered(t *testing.T) {
	call := newCall()
	call.SetDiagnostic("x-aicentral-ratelimit-remaining", "4")
	rec := httptest.NewRecorder()

	resp := &types.Response{
		StatusCode: http.StatusCreated,
		Header: http.Header{
			"X-Ms-Region":       {"eastus"},
			"Connection":        {"keep-alive"},
			"Transfer-Encoding": {"chunked"},
		},
		Body:       []byte(`{"id":"X"}`),
		EndpointID: "east",
	}
	require.NoError(t, WriteResponse(rec, call, resp))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"X"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "eastus", rec.Header().Get("X-Ms-Region"))
	assert.Empty(t, rec.Header().Get("Connection"))
	assert.Equal(t, "east", rec.Header().Get(types.EndpointHeader))
	assert.Equal(t, "4", rec.Header().Get("x-aicentral-ratelimit-remaining"))
	assert.NotEmpty(t, rec.Header().Get(types.DurationHeader))
}

func TestWriteResponse_KeepsDownstreamContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	resp := &types.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       []byte("hello"),
	}
	require.NoError(t, WriteResponse(rec, newCall(), resp))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "hello", rec.Body.String())
}

func TestWriteResponse_StreamedIsNoop(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusAccepted)
	_, _ = rec.WriteString("data: already sent\n\n")

	require.NoError(t, WriteResponse(rec, newCall(), &types.Response{StatusCode: http.StatusOK, Streamed: true}))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "data: already sent\n\n", rec.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantType string
		wantErr  string
	}{
		{
			name:     "gateway client error",
			err:      types.NewUnauthorizedError(types.CodeMissingCredentials, "no api key"),
			wantCode: http.StatusUnauthorized,
			wantType: types.ErrorTypeAuthentication,
			wantErr:  types.CodeMissingCredentials,
		},
		{
			name:     "wrapped capacity error",
			err:      fmt.Errorf("step: %w", types.NewCapacityError(http.StatusTooManyRequests, types.CodeRateLimited, "slow down")),
			wantCode: http.StatusTooManyRequests,
			wantType: types.ErrorTypeRateLimitExceeded,
			wantErr:  types.CodeRateLimited,
		},
		{
			name:     "unclassified error",
			err:      errors.New("nil pointer somewhere"),
			wantCode: http.StatusInternalServerError,
			wantType: types.ErrorTypeServerError,
			wantErr:  types.CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteError(rec, newCall(), tt.err))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body types.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body.Error.Type)
			assert.Equal(t, tt.wantErr, body.Error.Code)
			assert.NotEmpty(t, rec.Header().Get(types.DurationHeader))
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, newCall(), errors.New("dial tcp 10.0.0.4:443: secret topology")))
	assert.NotContains(t, rec.Body.String(), "10.0.0.4")
}

func TestWriteError_SurfacesDownstreamResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &downstreamErr{resp: &types.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": {"7"}},
		Body:       []byte(`{"error":{"message":"busy"}}`),
		EndpointID: "west",
	}}
	require.NoError(t, WriteError(rec, newCall(), err))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"busy"}}`, rec.Body.String())
	assert.Equal(t, "7", rec.Header().Get("Retry-After"))
	assert.Equal(t, "west", rec.Header().Get(types.EndpointHeader))
}

func TestSanitizeError(t *testing.T) {
	got := SanitizeError("upstream rejected Bearer abc.def.ghi for sk-live1234567")
	assert.NotContains(t, got, "abc.def.ghi")
	assert.NotContains(t, got, "sk-live1234567")
}

func TestCopyRequestHeaders_DropsCredentials(t *testing.T) {
	src := http.Header{
		"Authorization":  {"Bearer caller"},
		"Api-Key":        {"caller-key"},
		"Content-Type":   {"application/json"},
		"Connection":     {"close, X-Private"},
		"X-Private":      {"1"},
		"X-Ms-Client-Id": {"abc"},
	}
	dst := http.Header{}
	CopyRequestHeaders(dst, src)

	assert.Empty(t, dst.Get("Authorization"))
	assert.Empty(t, dst.Get("Api-Key"))
	assert.Empty(t, dst.Get("Connection"))
	assert.Empty(t, dst.Get("X-Private"))
	assert.Equal(t, "application/json", dst.Get("Content-Type"))
	assert.Equal(t, "abc", dst.Get("X-Ms-Client-Id"))
}
