package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
)

// AllowAnonymous passes every request.
type AllowAnonymous struct {
	name string
}

// NewAllowAnonymous creates an AllowAnonymous gate.
func NewAllowAnonymous(name string) *AllowAnonymous {
	return &AllowAnonymous{name: name}
}

// Name implements pipeline.Step.
func (a *AllowAnonymous) Name() string { return a.name }

// Handle implements pipeline.Step.
func (a *AllowAnonymous) Handle(ctx context.Context, call *pipeline.Call, next pipeline.Next) (*types.Response, error) {
	return next(ctx, call)
}

// APIKeyGate authenticates callers by key.
type APIKeyGate struct {
	name      string
	validator *APIKeyValidator
	sources   []KeySource
}

// NewAPIKeyGate creates an API key gate. Nil sources use DefaultKeySources.
func NewAPIKeyGate(name string, validator *APIKeyValidator, sources []KeySource) *APIKeyGate {
	if len(sources) == 0 {
		sources = DefaultKeySources
	}
	return &APIKeyGate{name: name, validator: validator, sources: sources}
}

// Name implements pipeline.Step.
func (g *APIKeyGate) Name() string { return g.name }

// Handle implements pipeline.Step.
func (g *APIKeyGate) Handle(ctx context.Context, call *pipeline.Call, next pipeline.Next) (*types.Response, error) {
	key := g.extractKey(call)
	if key == "" {
		slog.WarnContext(ctx, "missing API key",
			"gate", g.name,
			"pipeline", call.Pipeline,
			"remote_addr", call.Request.RemoteAddr,
		)
		return nil, types.NewUnauthorizedError(types.CodeMissingCredentials, "no API key was supplied")
	}

	client, err := g.validator.Validate(key)
	if err != nil {
		slog.WarnContext(ctx, "invalid API key",
			"gate", g.name,
			"pipeline", call.Pipeline,
			"remote_addr", call.Request.RemoteAddr,
		)
		return nil, &types.GatewayError{
			Class:   types.ClassClient,
			Status:  http.StatusUnauthorized,
			Code:    types.CodeInvalidCredentials,
			Message: "the supplied API key is not valid",
			Cause:   err,
		}
	}

	slog.DebugContext(ctx, "API key authenticated", "gate", g.name, "client", client.Name)
	return next(WithClient(ctx, client.Name), call)
}

func (g *APIKeyGate) extractKey(call *pipeline.Call) string {
	for _, source := range g.sources {
		value := strings.TrimSpace(call.Request.Header.Get(source.Header))
		if value == "" {
			continue
		}
		if source.Scheme == "" {
			return value
		}
		scheme, token, ok := strings.Cut(value, " ")
		if ok && strings.EqualFold(scheme, source.Scheme) {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	return ""
}

// EntraPassthrough requires a well-formed JWT bearer token. The token is not
// verified here; the downstream service receives it unchanged and performs
// full validation.
type EntraPassthrough struct {
	name   string
	parser *jwt.Parser
}

// NewEntraPassthrough creates an EntraPassthrough gate.
func NewEntraPassthrough(name string) *EntraPassthrough {
	return &EntraPassthrough{name: name, parser: jwt.NewParser()}
}

// Name implements pipeline.Step.
func (e *EntraPassthrough) Name() string { return e.name }

// Handle implements pipeline.Step.
func (e *EntraPassthrough) Handle(ctx context.Context, call *pipeline.Call, next pipeline.Next) (*types.Response, error) {
	token := call.InboundBearer()
	if token == "" {
		return nil, types.NewUnauthorizedError(types.CodeMissingCredentials, "a bearer token is required")
	}

	if _, _, err := e.parser.ParseUnverified(token, jwt.MapClaims{}); err != nil {
		slog.WarnContext(ctx, "malformed bearer token", "gate", e.name, "error", err)
		return nil, &types.GatewayError{
			Class:   types.ClassClient,
			Status:  http.StatusUnauthorized,
			Code:    types.CodeInvalidCredentials,
			Message: "the bearer token is not a well-formed JWT",
			Cause:   err,
		}
	}

	return next(ctx, call)
}
