package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass groups gateway failures by how they may be handled.
type ErrorClass int

const (
	// ClassUnknown is reported for errors that carry no class.
	ClassUnknown ErrorClass = iota

	// ClassClient covers bad or missing credentials, malformed bodies,
	// unrouted hosts and unmapped models. Never retried.
	ClassClient

	// ClassTransient covers timeouts, connection failures and retryable
	// downstream statuses. Retried by the dispatcher, then failed over.
	ClassTransient

	// ClassTerminal covers non-retryable downstream statuses. Failed over
	// to an untried endpoint, otherwise surfaced with the downstream status.
	ClassTerminal

	// ClassCapacity covers gateway rate limits, full bulkheads and open
	// circuits. Fails fast and is never queued.
	ClassCapacity
)

// String returns the lower-case class name used in logs and metrics.
func (c ErrorClass) String() string {
	switch c {
	case ClassClient:
		return "client"
	case ClassTransient:
		return "transient"
	case ClassTerminal:
		return "terminal"
	case ClassCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// GatewayError is a classified failure produced by the gateway itself.
type GatewayError struct {
	// Class determines retry and failover behavior.
	Class ErrorClass

	// Status is the HTTP status returned to the caller.
	Status int

	// Code is a machine-readable error code (see Code* constants).
	Code string

	// Message is a human-readable description.
	Message string

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// ToErrorResponse renders the error in the OpenAI error envelope.
func (e *GatewayError) ToErrorResponse() *ErrorResponse {
	return NewErrorResponse(e.Message, ErrorTypeForStatus(e.Status), "", e.Code)
}

// Classified is implemented by errors that know their own class.
type Classified interface {
	ErrorClass() ErrorClass
}

// ErrorClass implements Classified.
func (e *GatewayError) ErrorClass() ErrorClass {
	return e.Class
}

// ClassOf returns the class of the first classified error in err's chain.
func ClassOf(err error) ErrorClass {
	var c Classified
	if errors.As(err, &c) {
		return c.ErrorClass()
	}
	return ClassUnknown
}

// Coded is implemented by errors that carry a machine-readable code.
type Coded interface {
	ErrorCode() string
}

// ErrorCode implements Coded.
func (e *GatewayError) ErrorCode() string {
	return e.Code
}

// CodeOf returns the code of the first coded error in err's chain.
func CodeOf(err error) string {
	var c Coded
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// NewClientError creates a ClassClient error.
func NewClientError(status int, code, message string) *GatewayError {
	return &GatewayError{Class: ClassClient, Status: status, Code: code, Message: message}
}

// NewCapacityError creates a ClassCapacity error.
func NewCapacityError(status int, code, message string) *GatewayError {
	return &GatewayError{Class: ClassCapacity, Status: status, Code: code, Message: message}
}

// NewUnauthorizedError creates a 401 client error.
func NewUnauthorizedError(code, message string) *GatewayError {
	return NewClientError(http.StatusUnauthorized, code, message)
}

// DownstreamResponder is implemented by failures that still carry a complete
// downstream response which may be surfaced to the caller as is.
type DownstreamResponder interface {
	DownstreamResponse() *Response
}

// StatusCoder is implemented by errors that map to a specific HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// HTTPStatus implements StatusCoder.
func (e *GatewayError) HTTPStatus() int {
	return e.Status
}

// StatusOf returns the HTTP status a caller sees for err. A carried
// downstream response wins over the error's own status.
func StatusOf(err error) int {
	var dr DownstreamResponder
	if errors.As(err, &dr) {
		if resp := dr.DownstreamResponse(); resp != nil {
			return resp.StatusCode
		}
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// AsGatewayError returns the first GatewayError in err's chain. Other errors
// are converted using their class, status and code, defaulting to a 500
// internal error.
func AsGatewayError(err error) *GatewayError {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}
	code := CodeOf(err)
	if code == "" {
		code = CodeInternalError
	}
	return &GatewayError{
		Class:   ClassOf(err),
		Status:  StatusOf(err),
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}
