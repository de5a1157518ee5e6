package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/providers"
	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/telemetry"
)

// Helper function to create test config
func testConfig() config.MetricsConfig {
	return config.MetricsConfig{
		Enabled:                true,
		Path:                   "/metrics",
		Namespace:              "test",
		RequestDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
	}
}

func TestCollector_RecordRequest(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	ctx := context.Background()

	collector.RecordRequest(ctx, telemetry.RequestEvent{
		Pipeline: "main",
		Endpoint: "east",
		CallType: "chat",
		Model:    "gpt-35",
		Status:   200,
		Outcome:  telemetry.OutcomeSuccess,
		Duration: 300 * time.Millisecond,
		Usage:    &types.Usage{PromptTokens: 12, CompletionTokens: 30, TotalTokens: 42},
	})
	collector.RecordRequest(ctx, telemetry.RequestEvent{
		Pipeline: "main",
		CallType: "chat",
		Model:    "gpt-35",
		Status:   429,
		Outcome:  types.ClassCapacity.String(),
		Code:     types.CodeRateLimited,
		Duration: time.Millisecond,
	})

	rm := collector.requestMetrics
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.requestsTotal.WithLabelValues("main", "east", "chat", "200", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.requestsTotal.WithLabelValues("main", "", "chat", "429", types.ClassCapacity.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.errorsTotal.WithLabelValues("main", types.CodeRateLimited)))
	assert.Equal(t, 12.0, testutil.ToFloat64(rm.tokensTotal.WithLabelValues("main", "east", "gpt-35", "prompt")))
	assert.Equal(t, 30.0, testutil.ToFloat64(rm.tokensTotal.WithLabelValues("main", "east", "gpt-35", "completion")))
	assert.Equal(t, 1, testutil.CollectAndCount(rm.requestDuration), "both requests share one series")
}

func TestCollector_RecordAttempt(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	ctx := context.Background()

	for attempt := 1; attempt <= 3; attempt++ {
		outcome := types.ClassTransient.String()
		if attempt == 3 {
			outcome = telemetry.OutcomeSuccess
		}
		collector.RecordAttempt(ctx, telemetry.AttemptEvent{
			Pipeline: "main",
			Endpoint: "east",
			Attempt:  attempt,
			Outcome:  outcome,
			Duration: 50 * time.Millisecond,
			Err:      errors.New("throttled"),
		})
	}

	em := collector.endpointMetrics
	assert.Equal(t, 2.0, testutil.ToFloat64(em.attempts.WithLabelValues("east", types.ClassTransient.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(em.attempts.WithLabelValues("east", telemetry.OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(em.retries.WithLabelValues("east")))
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordRequest(context.Background(), telemetry.RequestEvent{Pipeline: "main", Outcome: "success"})
	collector.RecordAttempt(context.Background(), telemetry.AttemptEvent{Endpoint: "east", Outcome: "success"})

	assert.Zero(t, testutil.CollectAndCount(collector.requestMetrics.requestsTotal))
	assert.Zero(t, testutil.CollectAndCount(collector.endpointMetrics.attempts))
}

func TestCollector_BoundsModelLabels(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	ctx := context.Background()

	for i := 0; i < maxModelLabels+5; i++ {
		collector.RecordRequest(ctx, telemetry.RequestEvent{
			Pipeline: "main",
			Endpoint: "east",
			Model:    fmt.Sprintf("model-%d", i),
			Outcome:  telemetry.OutcomeSuccess,
			Usage:    &types.Usage{PromptTokens: 1},
		})
	}

	assert.Equal(t, maxModelLabels, collector.models.Count())
	assert.Equal(t, 5.0, testutil.ToFloat64(collector.requestMetrics.tokensTotal.WithLabelValues("main", "east", otherModel, "prompt")))
}

type staticHealth map[string]providers.Health

func (s staticHealth) EndpointHealth() map[string]providers.Health { return s }

func TestCollector_WatchEndpoints(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	require.NoError(t, collector.WatchEndpoints(staticHealth{
		"east": {Healthy: true, Circuit: "closed"},
		"west": {Healthy: false, Circuit: "open", ConsecutiveFailures: 4},
	}))

	expected := `
# HELP test_endpoint_healthy Endpoint health status (1=healthy, 0=unhealthy)
# TYPE test_endpoint_healthy gauge
test_endpoint_healthy{endpoint="east"} 1
test_endpoint_healthy{endpoint="west"} 0
# HELP test_endpoint_consecutive_failures Failed dispatches since the last success
# TYPE test_endpoint_consecutive_failures gauge
test_endpoint_consecutive_failures{endpoint="east"} 0
test_endpoint_consecutive_failures{endpoint="west"} 4
`
	err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected),
		"test_endpoint_healthy", "test_endpoint_consecutive_failures")
	assert.NoError(t, err)

	families, err := collector.Registry().Gather()
	require.NoError(t, err)
	var openSeries float64
	for _, mf := range families {
		if mf.GetName() != "test_endpoint_circuit_state" {
			continue
		}
		assert.Len(t, mf.GetMetric(), 6)
		for _, m := range mf.GetMetric() {
			openSeries += m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, 2.0, openSeries, "exactly one state per endpoint is set")
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordRequest(context.Background(), telemetry.RequestEvent{
		Pipeline: "main",
		Endpoint: "east",
		CallType: "chat",
		Status:   200,
		Outcome:  telemetry.OutcomeSuccess,
	})

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_requests_total{call_type="chat",endpoint="east",outcome="success",pipeline="main",status="200"} 1`)
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	assert.True(t, cl.Allow("a"))
	assert.True(t, cl.Allow("b"))
	assert.True(t, cl.Allow("a"), "known values stay allowed")
	assert.False(t, cl.Allow("c"))
	assert.Equal(t, 2, cl.Count())
}
