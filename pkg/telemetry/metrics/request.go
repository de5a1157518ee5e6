package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/telemetry"
)

// RequestMetrics tracks inbound requests per pipeline.
//
// Metrics:
//   - aicentral_requests_total: Requests by pipeline, endpoint, call type, status and outcome
//   - aicentral_request_duration_seconds: End-to-end duration including failover
//   - aicentral_request_errors_total: Failed requests by error code
//   - aicentral_tokens_total: Tokens reported by the endpoints
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Total number of requests handled by a pipeline",
			},
			[]string{"pipeline", "endpoint", "call_type", "status", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of pipeline requests in seconds, including failover",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"pipeline", "call_type", "streamed"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "request_errors_total",
				Help:      "Total number of failed requests by error code",
			},
			[]string{"pipeline", "code"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "tokens_total",
				Help:      "Total number of tokens reported in endpoint responses",
			},
			[]string{"pipeline", "endpoint", "model", "type"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.errorsTotal,
		rm.tokensTotal,
	)

	return rm
}

// RecordRequest records one finished request. model is the already bounded
// model label.
func (rm *RequestMetrics) RecordRequest(ev telemetry.RequestEvent, model string) {
	rm.requestsTotal.WithLabelValues(ev.Pipeline, ev.Endpoint, ev.CallType, strconv.Itoa(ev.Status), ev.Outcome).Inc()
	rm.requestDuration.WithLabelValues(ev.Pipeline, ev.CallType, strconv.FormatBool(ev.Streamed)).Observe(ev.Duration.Seconds())

	if ev.Outcome != telemetry.OutcomeSuccess {
		code := ev.Code
		if code == "" {
			code = "unknown"
		}
		rm.errorsTotal.WithLabelValues(ev.Pipeline, code).Inc()
	}

	if u := ev.Usage; u != nil {
		if u.PromptTokens > 0 {
			rm.tokensTotal.WithLabelValues(ev.Pipeline, ev.Endpoint, model, "prompt").Add(float64(u.PromptTokens))
		}
		if u.CompletionTokens > 0 {
			rm.tokensTotal.WithLabelValues(ev.Pipeline, ev.Endpoint, model, "completion").Add(float64(u.CompletionTokens))
		}
	}
}
