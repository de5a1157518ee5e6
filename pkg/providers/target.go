package providers

import (
	"fmt"
	"net/url"
	"strings"

	"aicentral-hq/gateway/pkg/pipeline"
)

// Target builds the outbound request for one kind of endpoint. Each kind
// knows its own path layout and how to address a model.
type Target interface {
	// Kind names the endpoint kind, e.g. "azure-openai".
	Kind() string

	// Outbound returns the downstream URL and body for call. model is the
	// mapped downstream model, or empty for a call that names none.
	Outbound(call *pipeline.Call, model string) (string, []byte, error)
}

// ParseBaseURL validates an endpoint base URL.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: host is required", raw)
	}
	return u, nil
}

// JoinURL appends path to base and sets the query.
func JoinURL(base *url.URL, path string, query url.Values) string {
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawPath = ""
	u.RawQuery = query.Encode()
	u.Fragment = ""
	return u.String()
}
