package auth

import "context"

// Client is a caller identity with one or two accepted keys.
type Client struct {
	Name string
	Keys []string
}

// KeySource defines where to extract a caller key from.
type KeySource struct {
	Header string // header name
	Scheme string // "Bearer", etc. (optional)
}

// DefaultKeySources accepts the Azure OpenAI "api-key" header, then an
// OpenAI-style bearer token.
var DefaultKeySources = []KeySource{
	{Header: "api-key"},
	{Header: "Authorization", Scheme: "Bearer"},
}

type contextKey string

const clientKey contextKey = "auth_client"

// WithClient records the authenticated client name in ctx.
func WithClient(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, clientKey, name)
}

// ClientFrom returns the authenticated client name, if any.
func ClientFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(clientKey).(string)
	return name, ok
}
