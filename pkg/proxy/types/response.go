package types

import (
	"net/http"
	"time"
)

// Response is the outcome of one request through a pipeline. It is created by
// the dispatcher that served the call and discarded once written.
type Response struct {
	// StatusCode is the downstream status code.
	StatusCode int

	// Header holds the downstream headers that are forwarded to the caller.
	Header http.Header

	// Body is the buffered downstream body. Empty when Streamed is set.
	Body []byte

	// Streamed reports that the body was already copied to the caller while
	// the downstream call was in flight.
	Streamed bool

	// Duration is the time spent by the chosen dispatcher, including retries.
	Duration time.Duration

	// EndpointID is the name of the endpoint that produced the response.
	EndpointID string

	// Model is the downstream model or deployment name that was called.
	Model string

	// Usage holds token counts when the downstream body reported them.
	Usage *Usage
}

// Usage contains token usage statistics reported by the downstream service.
type Usage struct {
	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens (prompt + completion).
	TotalTokens int `json:"total_tokens"`
}

// Success reports whether the downstream returned a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Diagnostic headers added to every gateway response.
const (
	// DurationHeader carries the gateway processing time in milliseconds.
	DurationHeader = "x-aicentral-duration"

	// EndpointHeader carries the name of the endpoint that served the call.
	EndpointHeader = "x-aicentral-endpoint"
)
