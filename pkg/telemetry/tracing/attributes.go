package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aicentral-hq/gateway/pkg/proxy/types"
)

// Custom attribute keys use the "aicentral.*" namespace. HTTP attributes
// follow OpenTelemetry semantic conventions.
const (
	// Pipeline attributes
	AttrPipeline = "aicentral.pipeline"
	AttrCallType = "aicentral.call_type"
	AttrModel    = "aicentral.model"

	// Endpoint attributes
	AttrEndpoint     = "aicentral.endpoint"
	AttrEndpointKind = "aicentral.endpoint_kind"
	AttrStreamed     = "aicentral.streamed"

	// Token attributes
	AttrTokensPrompt     = "aicentral.tokens.prompt"
	AttrTokensCompletion = "aicentral.tokens.completion"
	AttrTokensTotal      = "aicentral.tokens.total"

	// Error attributes
	AttrErrorClass = "aicentral.error.class"
	AttrErrorCode  = "aicentral.error.code"

	// HTTP attributes
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrServerAddress  = "server.address"
)

// SetUsageAttributes sets token count attributes on a span. A nil usage
// sets nothing.
func SetUsageAttributes(span trace.Span, usage *types.Usage) {
	if usage == nil {
		return
	}
	span.SetAttributes(
		attribute.Int(AttrTokensPrompt, usage.PromptTokens),
		attribute.Int(AttrTokensCompletion, usage.CompletionTokens),
		attribute.Int(AttrTokensTotal, usage.TotalTokens),
	)
}

// SetError records err on the span, tags it with the gateway error class
// and code, and marks the span as failed.
//
// Example:
//
//	if err != nil {
//	    tracing.SetError(span, err)
//	    return nil, err
//	}
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrErrorClass, types.ClassOf(err).String()),
	}
	if code := types.CodeOf(err); code != "" {
		attrs = append(attrs, attribute.String(AttrErrorCode, code))
	}
	span.SetAttributes(attrs...)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
