package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/providers"
	"aicentral-hq/gateway/pkg/telemetry"
)

// EndpointMetrics tracks downstream attempts per endpoint.
//
// Metrics:
//   - aicentral_endpoint_attempts_total: Attempts by endpoint and outcome
//   - aicentral_endpoint_attempt_duration_seconds: Attempt latency
//   - aicentral_endpoint_retries_total: Attempts after the first within one dispatch
type EndpointMetrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

// NewEndpointMetrics creates and registers endpoint metrics with the provided registry.
func NewEndpointMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *EndpointMetrics {
	em := &EndpointMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "endpoint_attempts_total",
				Help:      "Total number of downstream attempts by outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "endpoint_attempt_duration_seconds",
				Help:      "Downstream attempt latency in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"endpoint"},
		),

		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "endpoint_retries_total",
				Help:      "Total number of local retries against an endpoint",
			},
			[]string{"endpoint"},
		),
	}

	registry.MustRegister(
		em.attempts,
		em.latency,
		em.retries,
	)

	return em
}

// RecordAttempt records one downstream attempt.
func (em *EndpointMetrics) RecordAttempt(ev telemetry.AttemptEvent) {
	em.attempts.WithLabelValues(ev.Endpoint, ev.Outcome).Inc()
	em.latency.WithLabelValues(ev.Endpoint).Observe(ev.Duration.Seconds())
	if ev.Attempt > 1 {
		em.retries.WithLabelValues(ev.Endpoint).Inc()
	}
}

// EndpointHealthSource reports the health of the active endpoints.
type EndpointHealthSource interface {
	EndpointHealth() map[string]providers.Health
}

// circuitStates are the values of the circuit state label.
var circuitStates = []string{
	providers.CircuitClosed.String(),
	providers.CircuitOpen.String(),
	providers.CircuitHalfOpen.String(),
}

// endpointHealthCollector reads endpoint health at scrape time, so
// endpoints replaced by a reload disappear from the output.
type endpointHealthCollector struct {
	source EndpointHealthSource

	healthy  *prometheus.Desc
	circuit  *prometheus.Desc
	failures *prometheus.Desc
}

func newEndpointHealthCollector(namespace string, source EndpointHealthSource) *endpointHealthCollector {
	return &endpointHealthCollector{
		source: source,
		healthy: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "endpoint_healthy"),
			"Endpoint health status (1=healthy, 0=unhealthy)",
			[]string{"endpoint"}, nil,
		),
		circuit: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "endpoint_circuit_state"),
			"Circuit breaker state; the series for the current state is 1",
			[]string{"endpoint", "state"}, nil,
		),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "endpoint_consecutive_failures"),
			"Failed dispatches since the last success",
			[]string{"endpoint"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *endpointHealthCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.healthy
	ch <- c.circuit
	ch <- c.failures
}

// Collect implements prometheus.Collector.
func (c *endpointHealthCollector) Collect(ch chan<- prometheus.Metric) {
	for name, h := range c.source.EndpointHealth() {
		healthy := 0.0
		if h.Healthy {
			healthy = 1
		}
		ch <- prometheus.MustNewConstMetric(c.healthy, prometheus.GaugeValue, healthy, name)

		for _, state := range circuitStates {
			v := 0.0
			if h.Circuit == state {
				v = 1
			}
			ch <- prometheus.MustNewConstMetric(c.circuit, prometheus.GaugeValue, v, name, state)
		}

		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.GaugeValue, float64(h.ConsecutiveFailures), name)
	}
}
