package routing

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"aicentral-hq/gateway/pkg/proxy/types"
)

// ErrEndpointsExhausted is matched by every ExhaustedError.
var ErrEndpointsExhausted = errors.New("all endpoints failed")

// ExhaustedError is returned when no candidate endpoint produced a
// successful response.
type ExhaustedError struct {
	// Selector is the name of the selector that gave up.
	Selector string

	// Attempts lists every dispatcher tried, in order.
	Attempts []Attempt

	// Response is the last downstream response received, if any. It is
	// surfaced to the caller as is.
	Response *types.Response

	// Err is the gateway failure reported when there is no downstream
	// response to surface.
	Err *types.GatewayError
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Endpoint
	}
	return fmt.Sprintf("selector %q: all endpoints failed (attempted: %s): %v",
		e.Selector, strings.Join(names, ", "), e.Err)
}

// Unwrap returns the classified gateway failure.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is().
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrEndpointsExhausted
}

// DownstreamResponse implements types.DownstreamResponder.
func (e *ExhaustedError) DownstreamResponse() *types.Response {
	return e.Response
}

// UnaddressedCallError rejects a call that names no model and so cannot be
// spread across several endpoints.
func UnaddressedCallError(selector string) *types.GatewayError {
	return types.NewClientError(http.StatusBadRequest, types.CodeUnaddressedCall,
		fmt.Sprintf("selector %q needs a model to choose between endpoints; this call names none", selector))
}

// ClientClosedError reports that the caller went away during failover.
func ClientClosedError(cause error) *types.GatewayError {
	return &types.GatewayError{
		Class:   types.ClassClient,
		Status:  types.StatusClientClosedRequest,
		Code:    types.CodeClientClosed,
		Message: "the caller closed the request",
		Cause:   cause,
	}
}
