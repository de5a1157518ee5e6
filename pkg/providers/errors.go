package providers

import (
	"fmt"
	"net/http"
	"time"

	"aicentral-hq/gateway/pkg/proxy/types"
)

// ModelNotServedError is returned without any network call when the
// endpoint has no mapping for the requested model. Selectors move on to the
// next candidate.
type ModelNotServedError struct {
	// Endpoint is the name of the endpoint that declined the call
	Endpoint string

	// Model is the requested model (empty if the call named none)
	Model string
}

// Error implements the error interface.
func (e *ModelNotServedError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("endpoint %q: call names no model", e.Endpoint)
	}
	return fmt.Sprintf("endpoint %q does not serve model %q", e.Endpoint, e.Model)
}

// ErrorClass implements types.Classified.
func (e *ModelNotServedError) ErrorClass() types.ErrorClass { return types.ClassClient }

// HTTPStatus implements types.StatusCoder.
func (e *ModelNotServedError) HTTPStatus() int { return http.StatusNotFound }

// ErrorCode implements types.Coded.
func (e *ModelNotServedError) ErrorCode() string { return types.CodeModelNotServed }

// DownstreamError is a complete non-success response from an endpoint. The
// response is kept so it can be surfaced to the caller unchanged.
type DownstreamError struct {
	// Endpoint is the name of the endpoint that responded
	Endpoint string

	// Response is the buffered downstream response
	Response *types.Response

	// Retryable reports a status in the endpoint's retryable set
	Retryable bool

	// RetryAfter is the delay requested by the endpoint (if any)
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *DownstreamError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("endpoint %q returned status %d (retry after %s)",
			e.Endpoint, e.Response.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("endpoint %q returned status %d", e.Endpoint, e.Response.StatusCode)
}

// ErrorClass implements types.Classified.
func (e *DownstreamError) ErrorClass() types.ErrorClass {
	if e.Retryable {
		return types.ClassTransient
	}
	return types.ClassTerminal
}

// HTTPStatus implements types.StatusCoder.
func (e *DownstreamError) HTTPStatus() int { return e.Response.StatusCode }

// ErrorCode implements types.Coded.
func (e *DownstreamError) ErrorCode() string { return types.CodeDownstreamError }

// DownstreamResponse implements types.DownstreamResponder.
func (e *DownstreamError) DownstreamResponse() *types.Response { return e.Response }

// CircuitOpenError is returned without any network call while an
// endpoint's circuit breaker is open.
type CircuitOpenError struct {
	// Endpoint is the name of the endpoint whose breaker is open
	Endpoint string

	// RetryAfter is the remaining break duration
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("endpoint %q circuit is open (retry after %s)", e.Endpoint, e.RetryAfter)
}

// ErrorClass implements types.Classified.
func (e *CircuitOpenError) ErrorClass() types.ErrorClass { return types.ClassCapacity }

// HTTPStatus implements types.StatusCoder.
func (e *CircuitOpenError) HTTPStatus() int { return http.StatusServiceUnavailable }

// ErrorCode implements types.Coded.
func (e *CircuitOpenError) ErrorCode() string { return types.CodeCircuitOpen }

// TransportError is a connection-level failure talking to an endpoint.
type TransportError struct {
	// Endpoint is the name of the endpoint that could not be reached
	Endpoint string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("endpoint %q request failed: %v", e.Endpoint, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error { return e.Cause }

// ErrorClass implements types.Classified.
func (e *TransportError) ErrorClass() types.ErrorClass { return types.ClassTransient }

// HTTPStatus implements types.StatusCoder.
func (e *TransportError) HTTPStatus() int { return http.StatusBadGateway }

// ErrorCode implements types.Coded.
func (e *TransportError) ErrorCode() string { return types.CodeDownstreamError }

// TimeoutError represents an attempt that exceeded its timeout.
type TimeoutError struct {
	// Endpoint is the name of the endpoint where the timeout occurred
	Endpoint string

	// Timeout is the attempt timeout that expired
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("endpoint %q attempt timed out after %s", e.Endpoint, e.Timeout)
}

// ErrorClass implements types.Classified.
func (e *TimeoutError) ErrorClass() types.ErrorClass { return types.ClassTransient }

// HTTPStatus implements types.StatusCoder.
func (e *TimeoutError) HTTPStatus() int { return http.StatusGatewayTimeout }

// ErrorCode implements types.Coded.
func (e *TimeoutError) ErrorCode() string { return types.CodeDownstreamTimeout }

// AuthError reports that the gateway could not obtain credentials for an
// endpoint. The caller's own credentials are not involved.
type AuthError struct {
	// Endpoint is the name of the endpoint being authenticated
	Endpoint string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("endpoint %q: failed to acquire credentials: %v", e.Endpoint, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *AuthError) Unwrap() error { return e.Cause }

// ErrorClass implements types.Classified.
func (e *AuthError) ErrorClass() types.ErrorClass { return types.ClassTransient }

// HTTPStatus implements types.StatusCoder.
func (e *AuthError) HTTPStatus() int { return http.StatusBadGateway }

// ErrorCode implements types.Coded.
func (e *AuthError) ErrorCode() string { return types.CodeDownstreamError }

// ConfigError represents an invalid endpoint configuration.
type ConfigError struct {
	// Endpoint is the name of the endpoint with invalid configuration
	Endpoint string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("endpoint %q config error (field %q): %s", e.Endpoint, e.Field, e.Message)
	}
	return fmt.Sprintf("endpoint %q config error: %s", e.Endpoint, e.Message)
}
