package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// PipelineKey is the context key for the pipeline handling a request.
	PipelineKey contextKey = "pipeline"

	// EndpointKey is the context key for the downstream endpoint name.
	EndpointKey contextKey = "endpoint"

	// ModelKey is the context key for model names.
	ModelKey contextKey = "model"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithPipeline adds a pipeline name to the context.
func WithPipeline(ctx context.Context, pipeline string) context.Context {
	return context.WithValue(ctx, PipelineKey, pipeline)
}

// GetPipeline retrieves the pipeline name from the context.
func GetPipeline(ctx context.Context) string {
	if pipeline, ok := ctx.Value(PipelineKey).(string); ok {
		return pipeline
	}
	return ""
}

// WithEndpoint adds an endpoint name to the context.
func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, EndpointKey, endpoint)
}

// GetEndpoint retrieves the endpoint name from the context.
func GetEndpoint(ctx context.Context) string {
	if endpoint, ok := ctx.Value(EndpointKey).(string); ok {
		return endpoint
	}
	return ""
}

// WithModel adds a model name to the context.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

// GetModel retrieves the model name from the context.
func GetModel(ctx context.Context) string {
	if model, ok := ctx.Value(ModelKey).(string); ok {
		return model
	}
	return ""
}

// extractContextFields returns the context's log fields as key-value pairs.
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if pipeline := GetPipeline(ctx); pipeline != "" {
		fields = append(fields, "pipeline", pipeline)
	}
	if endpoint := GetEndpoint(ctx); endpoint != "" {
		fields = append(fields, "endpoint", endpoint)
	}
	if model := GetModel(ctx); model != "" {
		fields = append(fields, "model", model)
	}

	return fields
}
