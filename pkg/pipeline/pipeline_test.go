package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicentral-hq/gateway/pkg/classify"
	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/telemetry"
)

type recordingSelector struct {
	name  string
	calls int
	resp  *types.Response
	err   error
}

func (s *recordingSelector) Name() string { return s.name }

func (s *recordingSelector) Handle(ctx context.Context, call *Call) (*types.Response, error) {
	s.calls++
	return s.resp, s.err
}

type recordingSink struct {
	mu       sync.Mutex
	requests []telemetry.RequestEvent
}

func (s *recordingSink) RecordRequest(_ context.Context, ev telemetry.RequestEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, ev)
}

func (s *recordingSink) RecordAttempt(context.Context, telemetry.AttemptEvent) {}

func passStep(name string, order *[]string) Step {
	return StepFunc{StepName: name, Fn: func(ctx context.Context, call *Call, next Next) (*types.Response, error) {
		*order = append(*order, name)
		return next(ctx, call)
	}}
}

func newTestPipeline(t *testing.T, name, host string, selector Selector) *Pipeline {
	t.Helper()
	var order []string
	p, err := New(Options{
		Name:     name,
		Host:     host,
		Auth:     passStep("auth", &order),
		Selector: selector,
	})
	require.NoError(t, err)
	return p
}

func newCall() *Call {
	r := httptest.NewRequest(http.MethodPost, "/openai/deployments/gpt-35/chat/completions", nil)
	return NewCall(r, httptest.NewRecorder(), classify.CallDetails{CallType: classify.CallChat, Model: "gpt-35"})
}

func TestRouter_Route(t *testing.T) {
	sel := &recordingSelector{name: "sel"}
	a := newTestPipeline(t, "a", "a.example.com", sel)
	b := newTestPipeline(t, "b", "b.example.com", sel)
	dup := newTestPipeline(t, "dup", "A.example.com", sel)
	router := NewRouter([]*Pipeline{a, b, dup})

	tests := []struct {
		name string
		host string
		want *Pipeline
	}{
		{name: "exact match", host: "b.example.com", want: b},
		{name: "case insensitive", host: "B.EXAMPLE.COM", want: b},
		{name: "port ignored", host: "a.example.com:8443", want: a},
		{name: "first match wins", host: "a.example.com", want: a},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := router.Route(tt.host)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestRouter_UnmatchedHostIsNotFound(t *testing.T) {
	router := NewRouter([]*Pipeline{newTestPipeline(t, "a", "a.example.com", &recordingSelector{})})

	_, err := router.Route("a.example.com.evil")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, types.StatusOf(err))
	assert.Equal(t, types.ClassClient, types.ClassOf(err))

	_, err = router.Route("sub.a.example.com")
	require.Error(t, err)
}

func TestPipeline_RunsChainInOrder(t *testing.T) {
	var order []string
	sel := &recordingSelector{name: "sel", resp: &types.Response{StatusCode: 200, EndpointID: "ep"}}
	p, err := New(Options{
		Name:     "p",
		Host:     "h",
		Auth:     passStep("auth", &order),
		Steps:    []Step{passStep("one", &order), passStep("two", &order)},
		Selector: sel,
	})
	require.NoError(t, err)

	resp, err := p.Execute(context.Background(), newCall())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []string{"auth", "one", "two"}, order)
	assert.Equal(t, 1, sel.calls)
	assert.Equal(t, []string{"auth", "one", "two"}, p.StepNames())
}

func TestPipeline_RejectionHaltsChain(t *testing.T) {
	var order []string
	rejected := types.NewUnauthorizedError(types.CodeMissingCredentials, "no key")
	reject := StepFunc{StepName: "reject", Fn: func(ctx context.Context, call *Call, next Next) (*types.Response, error) {
		order = append(order, "reject")
		return nil, rejected
	}}
	sel := &recordingSelector{name: "sel"}
	sink := &recordingSink{}

	p, err := New(Options{
		Name:     "p",
		Host:     "h",
		Auth:     reject,
		Steps:    []Step{passStep("after", &order)},
		Selector: sel,
		Sink:     sink,
	})
	require.NoError(t, err)

	_, err = p.Execute(context.Background(), newCall())
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, []string{"reject"}, order)
	assert.Zero(t, sel.calls)

	require.Len(t, sink.requests, 1)
	assert.Equal(t, http.StatusUnauthorized, sink.requests[0].Status)
	assert.Equal(t, "client", sink.requests[0].Outcome)
}

func TestPipeline_StepsCanAttachDiagnostics(t *testing.T) {
	var order []string
	diag := StepFunc{StepName: "diag", Fn: func(ctx context.Context, call *Call, next Next) (*types.Response, error) {
		call.SetDiagnostic("x-test", "1")
		return next(ctx, call)
	}}
	p, err := New(Options{
		Name:     "p",
		Host:     "h",
		Auth:     passStep("auth", &order),
		Steps:    []Step{diag},
		Selector: &recordingSelector{resp: &types.Response{StatusCode: 200}},
	})
	require.NoError(t, err)

	call := newCall()
	_, err = p.Execute(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, "1", call.Diagnostics().Get("x-test"))
}

func TestPipeline_RequestTimeoutSetsDeadline(t *testing.T) {
	var order []string
	var seen time.Duration
	sel := SelectorFunc(func(ctx context.Context, call *Call) (*types.Response, error) {
		remaining, ok := call.Remaining()
		require.True(t, ok)
		seen = remaining
		return &types.Response{StatusCode: 200}, nil
	})
	p, err := New(Options{
		Name:           "p",
		Host:           "h",
		Auth:           passStep("auth", &order),
		Selector:       sel,
		RequestTimeout: time.Minute,
	})
	require.NoError(t, err)

	call := newCall()
	_, err = p.Execute(context.Background(), call)
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), seen.Seconds(), 1)
	assert.False(t, call.Expired())
	assert.Equal(t, "p", call.Pipeline)
}

func TestPipeline_RecordsSuccessEvent(t *testing.T) {
	var order []string
	sink := &recordingSink{}
	usage := &types.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}
	p, err := New(Options{
		Name:     "p",
		Host:     "h",
		Auth:     passStep("auth", &order),
		Selector: &recordingSelector{resp: &types.Response{StatusCode: 200, EndpointID: "east", Usage: usage}},
		Sink:     sink,
	})
	require.NoError(t, err)

	_, err = p.Execute(context.Background(), newCall())
	require.NoError(t, err)

	require.Len(t, sink.requests, 1)
	ev := sink.requests[0]
	assert.Equal(t, "p", ev.Pipeline)
	assert.Equal(t, "east", ev.Endpoint)
	assert.Equal(t, "chat", ev.CallType)
	assert.Equal(t, telemetry.OutcomeSuccess, ev.Outcome)
	assert.Equal(t, usage, ev.Usage)
}

func TestNew_Validation(t *testing.T) {
	var order []string
	auth := passStep("auth", &order)
	sel := &recordingSelector{}

	_, err := New(Options{Host: "h", Auth: auth, Selector: sel})
	assert.Error(t, err)
	_, err = New(Options{Name: "p", Auth: auth, Selector: sel})
	assert.Error(t, err)
	_, err = New(Options{Name: "p", Host: "h", Selector: sel})
	assert.Error(t, err)
	_, err = New(Options{Name: "p", Host: "h", Auth: auth})
	assert.Error(t, err)
	_, err = New(Options{Name: "p", Host: "h", Auth: auth, Selector: sel, RequestTimeout: -time.Second})
	assert.Error(t, err)
}

func TestSet_Swap(t *testing.T) {
	first := NewRouter(nil)
	second := NewRouter([]*Pipeline{newTestPipeline(t, "a", "a", &recordingSelector{})})

	set := NewSet(first)
	assert.Same(t, first, set.Router())

	old := set.Swap(second)
	assert.Same(t, first, old)
	assert.Same(t, second, set.Router())
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken("Bearer"))
	assert.Empty(t, BearerToken(""))
}
