// Package metrics provides Prometheus metrics for the gateway.
//
// # Overview
//
// Collector implements telemetry.Sink. Pipelines report one event per
// inbound request and dispatchers one event per downstream attempt; the
// collector turns both into Prometheus series. Endpoint health is read at
// scrape time through WatchEndpoints, so series for endpoints removed by a
// configuration reload disappear.
//
// # Metrics
//
//   - aicentral_requests_total{pipeline,endpoint,call_type,status,outcome}
//   - aicentral_request_duration_seconds{pipeline,call_type,streamed}
//   - aicentral_request_errors_total{pipeline,code}
//   - aicentral_tokens_total{pipeline,endpoint,model,type}
//   - aicentral_endpoint_attempts_total{endpoint,outcome}
//   - aicentral_endpoint_attempt_duration_seconds{endpoint}
//   - aicentral_endpoint_retries_total{endpoint}
//   - aicentral_endpoint_healthy{endpoint}
//   - aicentral_endpoint_circuit_state{endpoint,state}
//   - aicentral_endpoint_consecutive_failures{endpoint}
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	rt, err := pipelinefactory.NewRuntime(cfg, pipelinefactory.Options{Sink: collector})
//	...
//	collector.WatchEndpoints(rt)
//	mux.Handle("/metrics", collector.Handler())
//
// # Cardinality Management
//
// Model names are chosen by callers. The collector admits at most 1000
// distinct model labels and aggregates the rest into "other".
package metrics
