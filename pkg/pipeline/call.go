package pipeline

import (
	"net/http"
	"strings"
	"time"

	"aicentral-hq/gateway/pkg/classify"
)

// Call is the per-request state passed along a pipeline chain. The classified
// details and buffered body are fixed once the Call is created; steps may only
// add diagnostic headers.
type Call struct {
	// Request is the inbound request. Its body has already been consumed
	// into Details.Body.
	Request *http.Request

	// Details is the classification of the request.
	Details classify.CallDetails

	// Writer is the caller's response writer. Dispatchers use it to forward
	// streaming responses as bytes arrive.
	Writer http.ResponseWriter

	// Pipeline is the name of the pipeline handling the call.
	Pipeline string

	// Started is when the gateway began handling the request.
	Started time.Time

	deadline    time.Time
	diagnostics http.Header
}

// NewCall creates a Call for a classified request.
func NewCall(r *http.Request, w http.ResponseWriter, details classify.CallDetails) *Call {
	return &Call{
		Request:     r,
		Details:     details,
		Writer:      w,
		Started:     time.Now(),
		diagnostics: make(http.Header),
	}
}

// SetDiagnostic records a header to be added to the caller's response.
func (c *Call) SetDiagnostic(key, value string) {
	c.diagnostics.Set(key, value)
}

// Diagnostics returns the headers recorded by steps.
func (c *Call) Diagnostics() http.Header {
	return c.diagnostics
}

// Deadline returns the overall request deadline, if one is set.
func (c *Call) Deadline() (time.Time, bool) {
	return c.deadline, !c.deadline.IsZero()
}

// Remaining returns the time left before the overall deadline. It reports
// false when no deadline applies.
func (c *Call) Remaining() (time.Duration, bool) {
	if c.deadline.IsZero() {
		return 0, false
	}
	return time.Until(c.deadline), true
}

// Expired reports whether the overall deadline has passed.
func (c *Call) Expired() bool {
	return !c.deadline.IsZero() && !time.Now().Before(c.deadline)
}

// InboundBearer returns the caller's bearer token, if any.
func (c *Call) InboundBearer() string {
	return BearerToken(c.Request.Header.Get("Authorization"))
}

// BearerToken extracts the token from an "Authorization: Bearer" value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
