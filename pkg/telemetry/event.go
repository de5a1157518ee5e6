package telemetry

import (
	"context"
	"log/slog"
	"time"

	"aicentral-hq/gateway/pkg/proxy/types"
)

// Outcome values reported in events.
const (
	OutcomeSuccess = "success"
)

// RequestEvent summarizes one inbound request after its response is known.
type RequestEvent struct {
	RequestID string
	Pipeline  string
	Endpoint  string
	CallType  string
	Model     string
	Status    int
	// Outcome is OutcomeSuccess or the error class name.
	Outcome string
	// Code is the error code of a failed request.
	Code     string
	Duration time.Duration
	Streamed bool
	Usage    *types.Usage
}

// AttemptEvent describes a single downstream attempt made by a dispatcher.
type AttemptEvent struct {
	Pipeline string
	Endpoint string
	Attempt  int
	Status   int
	Outcome  string
	Code     string
	Duration time.Duration
	Err      error
}

// Sink receives telemetry events. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Sink interface {
	RecordRequest(ctx context.Context, ev RequestEvent)
	RecordAttempt(ctx context.Context, ev AttemptEvent)
}

// Sinks fans events out to several sinks in order.
type Sinks []Sink

// RecordRequest implements Sink.
func (s Sinks) RecordRequest(ctx context.Context, ev RequestEvent) {
	for _, sink := range s {
		sink.RecordRequest(ctx, ev)
	}
}

// RecordAttempt implements Sink.
func (s Sinks) RecordAttempt(ctx context.Context, ev AttemptEvent) {
	for _, sink := range s {
		sink.RecordAttempt(ctx, ev)
	}
}

// NopSink discards all events.
type NopSink struct{}

// RecordRequest implements Sink.
func (NopSink) RecordRequest(context.Context, RequestEvent) {}

// RecordAttempt implements Sink.
func (NopSink) RecordAttempt(context.Context, AttemptEvent) {}

// LogSink writes events as structured log records.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// RecordRequest implements Sink.
func (s *LogSink) RecordRequest(ctx context.Context, ev RequestEvent) {
	attrs := []any{
		"request_id", ev.RequestID,
		"pipeline", ev.Pipeline,
		"endpoint", ev.Endpoint,
		"call_type", ev.CallType,
		"model", ev.Model,
		"status", ev.Status,
		"outcome", ev.Outcome,
		"code", ev.Code,
		"duration_ms", ev.Duration.Milliseconds(),
		"streamed", ev.Streamed,
	}
	if ev.Usage != nil {
		attrs = append(attrs,
			"prompt_tokens", ev.Usage.PromptTokens,
			"completion_tokens", ev.Usage.CompletionTokens,
			"total_tokens", ev.Usage.TotalTokens,
		)
	}

	level := slog.LevelInfo
	if ev.Outcome != OutcomeSuccess {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "pipeline request completed", attrs...)
}

// RecordAttempt implements Sink.
func (s *LogSink) RecordAttempt(ctx context.Context, ev AttemptEvent) {
	if ev.Outcome == OutcomeSuccess {
		s.logger.DebugContext(ctx, "endpoint attempt succeeded",
			"pipeline", ev.Pipeline,
			"endpoint", ev.Endpoint,
			"attempt", ev.Attempt,
			"status", ev.Status,
			"duration_ms", ev.Duration.Milliseconds(),
		)
		return
	}
	s.logger.WarnContext(ctx, "endpoint attempt failed",
		"pipeline", ev.Pipeline,
		"endpoint", ev.Endpoint,
		"attempt", ev.Attempt,
		"status", ev.Status,
		"outcome", ev.Outcome,
		"code", ev.Code,
		"duration_ms", ev.Duration.Milliseconds(),
		"error", ev.Err,
	)
}
