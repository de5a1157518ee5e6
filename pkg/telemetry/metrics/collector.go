package metrics

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/telemetry"
)

// DefaultDurationBuckets suit completion latencies from 100ms to 2 minutes.
var DefaultDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

// maxModelLabels bounds the distinct model label values. Model names come
// from callers, so they are not trusted to be few.
const maxModelLabels = 1000

// otherModel replaces model labels beyond maxModelLabels.
const otherModel = "other"

// Collector records gateway metrics in a Prometheus registry. It implements
// telemetry.Sink, so it is wired into pipelines and dispatchers like any
// other event sink.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics  *RequestMetrics
	endpointMetrics *EndpointMetrics

	models *CardinalityLimiter
}

var _ telemetry.Sink = (*Collector)(nil)

// NewCollector creates a collector registering into registry. A nil registry
// creates a fresh one.
//
// Example:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	sink := telemetry.Sinks{telemetry.NewLogSink(nil), collector}
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = DefaultDurationBuckets
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		requestMetrics:  NewRequestMetrics(cfg, registry),
		endpointMetrics: NewEndpointMetrics(cfg, registry),
		models:          NewCardinalityLimiter(maxModelLabels),
	}
}

// RecordRequest implements telemetry.Sink.
func (c *Collector) RecordRequest(_ context.Context, ev telemetry.RequestEvent) {
	if !c.config.Enabled {
		return
	}

	model := ev.Model
	if !c.models.Allow(model) {
		model = otherModel
	}
	c.requestMetrics.RecordRequest(ev, model)
}

// RecordAttempt implements telemetry.Sink.
func (c *Collector) RecordAttempt(_ context.Context, ev telemetry.AttemptEvent) {
	if !c.config.Enabled {
		return
	}
	c.endpointMetrics.RecordAttempt(ev)
}

// WatchEndpoints reports endpoint health and circuit state from source at
// every scrape.
func (c *Collector) WatchEndpoints(source EndpointHealthSource) error {
	return c.registry.Register(newEndpointHealthCollector(c.config.Namespace, source))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique values admitted for a label.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a value is allowed. Returns true if the value was seen
// before or if the limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[value]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
