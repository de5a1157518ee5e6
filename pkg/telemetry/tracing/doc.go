// Package tracing provides OpenTelemetry distributed tracing for the gateway.
//
// # Overview
//
// New installs a global tracer provider and the W3C Trace Context and
// Baggage propagators. Pipelines and endpoint dispatchers obtain their
// tracers through otel.Tracer, so they emit spans once New has run and
// stay silent otherwise.
//
// # Exporters
//
//   - otlp: OTLP over gRPC to telemetry.tracing.endpoint
//   - stdout: pretty-printed JSON spans, for local debugging
//
// # Sampling Strategies
//
//   - always: Sample all traces (default)
//   - never: Sample no traces
//   - ratio: Sample a percentage of traces by trace ID
//
// # Usage
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, tracing.Options{Version: version})
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	handler = tracing.HTTPMiddleware(handler)
//
// # Span Hierarchy
//
//	pipeline.execute            aicentral.pipeline, aicentral.call_type, aicentral.model
//	└── endpoint.dispatch       aicentral.endpoint, aicentral.endpoint_kind
//	    ├── endpoint.attempt    http.request.method, server.address
//	    └── endpoint.attempt    (retry)
package tracing
