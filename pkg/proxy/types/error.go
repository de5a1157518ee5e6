package types

import "net/http"

// ErrorResponse represents an OpenAI-compatible error response.
// Gateway-originated failures are returned in this shape so that OpenAI and
// Azure OpenAI SDKs surface them as ordinary API errors.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	// Possible values: "invalid_request_error", "authentication_error",
	// "permission_denied", "not_found", "rate_limit_exceeded",
	// "server_error", "bad_gateway", "service_unavailable", "gateway_timeout".
	Type string `json:"type"`

	// Param is the name of the parameter that caused the error (if applicable).
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error type constants matching the OpenAI error envelope.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeAuthentication indicates an authentication failure (401).
	ErrorTypeAuthentication = "authentication_error"

	// ErrorTypePermissionDenied indicates an authorization failure (403).
	ErrorTypePermissionDenied = "permission_denied"

	// ErrorTypeNotFound indicates a resource was not found (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeRateLimitExceeded indicates too many requests (429).
	ErrorTypeRateLimitExceeded = "rate_limit_exceeded"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeBadGateway indicates a downstream failure (502).
	ErrorTypeBadGateway = "bad_gateway"

	// ErrorTypeServiceUnavailable indicates temporary unavailability (503).
	ErrorTypeServiceUnavailable = "service_unavailable"

	// ErrorTypeGatewayTimeout indicates a downstream or overall timeout (504).
	ErrorTypeGatewayTimeout = "gateway_timeout"
)

// Error code constants for gateway failures.
const (
	// CodeInvalidJSON indicates the request body is not valid JSON.
	CodeInvalidJSON = "invalid_json"

	// CodeRequestTooLarge indicates the request payload is too large.
	CodeRequestTooLarge = "request_too_large"

	// CodeUnrecognizedPath indicates no dialect matched the request path.
	CodeUnrecognizedPath = "unrecognized_path"

	// CodeUnroutedHost indicates no pipeline is bound to the Host header.
	CodeUnroutedHost = "unrouted_host"

	// CodeMissingCredentials indicates the caller supplied no credentials.
	CodeMissingCredentials = "missing_credentials"

	// CodeInvalidCredentials indicates the caller's credentials were rejected.
	CodeInvalidCredentials = "invalid_credentials"

	// CodeModelNotServed indicates no endpoint maps the requested model.
	CodeModelNotServed = "model_not_served"

	// CodeUnaddressedCall indicates a call that cannot be spread across endpoints.
	CodeUnaddressedCall = "unaddressed_call"

	// CodeRateLimited indicates a gateway rate limit rejected the request.
	CodeRateLimited = "rate_limited"

	// CodeBulkheadFull indicates no concurrency slot was available.
	CodeBulkheadFull = "bulkhead_full"

	// CodeCircuitOpen indicates the endpoint's circuit breaker is open.
	CodeCircuitOpen = "circuit_open"

	// CodeEndpointsExhausted indicates every candidate endpoint failed.
	CodeEndpointsExhausted = "endpoints_exhausted"

	// CodeDownstreamError indicates a transport failure talking to an endpoint.
	CodeDownstreamError = "downstream_error"

	// CodeDownstreamTimeout indicates an endpoint attempt timed out.
	CodeDownstreamTimeout = "downstream_timeout"

	// CodeRequestTimeout indicates the overall request deadline expired.
	CodeRequestTimeout = "request_timeout"

	// CodeClientClosed indicates the caller went away before a response.
	CodeClientClosed = "client_closed_request"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// StatusClientClosedRequest is the non-standard status logged when the
// caller disconnects before the gateway responds.
const StatusClientClosedRequest = 499

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// ErrorTypeForStatus returns the error type conventionally paired with an
// HTTP status code.
func ErrorTypeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return ErrorTypeInvalidRequest
	case http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case http.StatusForbidden:
		return ErrorTypePermissionDenied
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimitExceeded
	case http.StatusBadGateway:
		return ErrorTypeBadGateway
	case http.StatusServiceUnavailable:
		return ErrorTypeServiceUnavailable
	case http.StatusGatewayTimeout:
		return ErrorTypeGatewayTimeout
	default:
		return ErrorTypeServerError
	}
}

// HTTPStatusCode returns the appropriate HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypePermissionDenied:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorTypeBadGateway:
		return http.StatusBadGateway
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
