// Package telemetry defines the events the gateway emits and the Sink
// interface that receives them.
//
// # Components
//
//   - logging: slog-based structured logging with secret redaction
//   - metrics: Prometheus Collector, itself a Sink
//   - tracing: OpenTelemetry tracer provider setup
//
// The pipeline emits one RequestEvent per inbound request and each endpoint
// dispatcher emits one AttemptEvent per downstream attempt. Sinks own storage
// and formatting; the emitters never block on them.
//
//	sink := telemetry.Sinks{telemetry.NewLogSink(slog.Default()), collector}
//	sink.RecordRequest(ctx, telemetry.RequestEvent{Pipeline: "chat", Status: 200})
package telemetry
