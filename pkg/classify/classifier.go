// Package classify identifies the shape of inbound AI requests.
//
// A Classifier holds an ordered list of Detectors, one per inbound dialect.
// The first detector whose CanClassify accepts the path produces the
// CallDetails for the request. The full body is buffered exactly once so it
// can be replayed to any number of downstream endpoints.
package classify

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"aicentral-hq/gateway/pkg/proxy/types"
)

// DefaultMaxBodyBytes is the largest request body the classifier will buffer.
// Audio uploads for transcription are the largest legitimate payloads.
const DefaultMaxBodyBytes = 32 << 20

// Detector recognizes one inbound dialect.
type Detector interface {
	// Dialect returns the dialect this detector recognizes.
	Dialect() Dialect

	// CanClassify reports whether the request path belongs to the dialect.
	CanClassify(r *http.Request) bool

	// Classify extracts call details from a request whose body has already
	// been buffered.
	Classify(r *http.Request, body []byte) (CallDetails, error)
}

// Classifier dispatches to the first matching Detector.
type Classifier struct {
	detectors    []Detector
	maxBodyBytes int64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// New creates a Classifier over the given detectors, tried in order.
func New(detectors []Detector, opts ...Option) *Classifier {
	c := &Classifier{
		detectors:    detectors,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Default returns a Classifier recognizing the Azure OpenAI and direct
// OpenAI dialects.
func Default(opts ...Option) *Classifier {
	return New([]Detector{AzureOpenAI{}, OpenAI{}}, opts...)
}

// CanClassify reports whether any detector recognizes the request path.
func (c *Classifier) CanClassify(r *http.Request) bool {
	return c.detectorFor(r) != nil
}

// Classify buffers the request body and extracts call details.
//
// Unrecognized paths fail with a 404 client error. Oversized bodies fail with
// 413 and malformed JSON on a body-parsed operation fails with 400; neither
// reaches a downstream endpoint.
func (c *Classifier) Classify(r *http.Request) (CallDetails, error) {
	d := c.detectorFor(r)
	if d == nil {
		return CallDetails{}, types.NewClientError(http.StatusNotFound, types.CodeUnrecognizedPath,
			fmt.Sprintf("path %q is not a recognized AI service path", r.URL.Path))
	}

	body, err := c.readBody(r)
	if err != nil {
		return CallDetails{}, err
	}

	return d.Classify(r, body)
}

func (c *Classifier) detectorFor(r *http.Request) Detector {
	for _, d := range c.detectors {
		if d.CanClassify(r) {
			return d
		}
	}
	return nil
}

// readBody reads the whole body, failing when it exceeds maxBodyBytes.
func (c *Classifier) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, &types.GatewayError{
			Class:   types.ClassClient,
			Status:  http.StatusBadRequest,
			Code:    types.CodeInvalidJSON,
			Message: "failed to read request body",
			Cause:   err,
		}
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, types.NewClientError(http.StatusRequestEntityTooLarge, types.CodeRequestTooLarge,
			fmt.Sprintf("request body exceeds maximum size of %d bytes", c.maxBodyBytes))
	}
	return body, nil
}

// callTypeFor maps the first segment of an operation path to a call type.
func callTypeFor(operation string) CallType {
	head, _, _ := strings.Cut(operation, "/")
	switch {
	case head == "chat":
		return CallChat
	case head == "completions":
		return CallCompletions
	case head == "embeddings":
		return CallEmbeddings
	case head == "audio":
		return CallTranscription
	case strings.HasPrefix(head, "images"):
		return CallImage
	default:
		return CallOther
	}
}

// parseBody validates a JSON body and fills the prompt, stream flag and,
// when the dialect carries it in the body, the model.
func parseBody(details *CallDetails, modelFromBody bool) error {
	if !gjson.ValidBytes(details.Body) {
		return types.NewClientError(http.StatusBadRequest, types.CodeInvalidJSON,
			fmt.Sprintf("request body for %s call is not valid JSON", details.CallType))
	}

	root := gjson.ParseBytes(details.Body)
	if !root.IsObject() {
		return types.NewClientError(http.StatusBadRequest, types.CodeInvalidJSON,
			fmt.Sprintf("request body for %s call must be a JSON object", details.CallType))
	}

	switch details.CallType {
	case CallChat:
		details.Prompt = chatPrompt(root.Get("messages"))
	case CallCompletions:
		details.Prompt = joinEntries(root.Get("prompt"))
	case CallEmbeddings:
		input := root.Get("input")
		if input.Type == gjson.String {
			details.Prompt = input.String()
		} else {
			details.Prompt = input.Raw
		}
	}

	details.Stream = root.Get("stream").Bool()
	if modelFromBody {
		details.Model = root.Get("model").String()
	}
	details.Parsed = true
	return nil
}

// chatPrompt joins each message's content in order. Multi-part content
// contributes its text parts.
func chatPrompt(messages gjson.Result) string {
	var parts []string
	messages.ForEach(func(_, msg gjson.Result) bool {
		content := msg.Get("content")
		if content.IsArray() {
			var texts []string
			content.ForEach(func(_, part gjson.Result) bool {
				if t := part.Get("text"); t.Exists() {
					texts = append(texts, t.String())
				}
				return true
			})
			parts = append(parts, strings.Join(texts, "\n"))
			return true
		}
		parts = append(parts, content.String())
		return true
	})
	return strings.Join(parts, "\n")
}

// joinEntries joins an array of strings, or returns a single string as is.
func joinEntries(v gjson.Result) string {
	if !v.IsArray() {
		return v.String()
	}
	var parts []string
	v.ForEach(func(_, entry gjson.Result) bool {
		parts = append(parts, entry.String())
		return true
	})
	return strings.Join(parts, "\n")
}
