package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
)

// Authenticator adds an endpoint's credentials to an outbound request.
// Implementations must be safe for concurrent use.
type Authenticator interface {
	Apply(ctx context.Context, call *pipeline.Call, req *http.Request) error
}

// HeaderAuth sets fixed headers, such as an Azure "api-key" or an OpenAI
// "Authorization: Bearer" key with its organization.
type HeaderAuth struct {
	Headers http.Header
}

// NewAPIKeyAuth returns a HeaderAuth sending key in the named header.
func NewAPIKeyAuth(header, key string) *HeaderAuth {
	h := make(http.Header)
	h.Set(header, key)
	return &HeaderAuth{Headers: h}
}

// Apply implements Authenticator.
func (a *HeaderAuth) Apply(_ context.Context, _ *pipeline.Call, req *http.Request) error {
	for key, values := range a.Headers {
		req.Header[key] = append([]string(nil), values...)
	}
	return nil
}

// PassthroughAuth forwards the caller's own bearer token. Calls without one
// are rejected as unauthorized.
type PassthroughAuth struct{}

// Apply implements Authenticator.
func (PassthroughAuth) Apply(_ context.Context, call *pipeline.Call, req *http.Request) error {
	token := call.InboundBearer()
	if token == "" {
		return types.NewUnauthorizedError(types.CodeMissingCredentials,
			"this endpoint forwards the caller's bearer token; none was supplied")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// TokenSource fetches a fresh OAuth token. *clientcredentials.Config
// satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// DefaultTokenSkew is how long before expiry a cached token is refreshed.
const DefaultTokenSkew = 2 * time.Minute

// tokenFetchTimeout bounds one shared token request.
const tokenFetchTimeout = 30 * time.Second

// BearerAuth acquires OAuth tokens and caches them until shortly before
// they expire. Concurrent requests that find the cache stale share one
// refresh.
type BearerAuth struct {
	source TokenSource
	skew   time.Duration
	now    func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
	group singleflight.Group
}

// NewBearerAuth creates a BearerAuth. A zero skew uses DefaultTokenSkew.
func NewBearerAuth(source TokenSource, skew time.Duration) *BearerAuth {
	if skew <= 0 {
		skew = DefaultTokenSkew
	}
	return &BearerAuth{source: source, skew: skew, now: time.Now}
}

// Apply implements Authenticator.
func (a *BearerAuth) Apply(ctx context.Context, _ *pipeline.Call, req *http.Request) error {
	token, err := a.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Token returns a valid access token, refreshing it if needed.
func (a *BearerAuth) Token(ctx context.Context) (string, error) {
	if token, ok := a.cached(); ok {
		return token, nil
	}

	ch := a.group.DoChan("token", func() (interface{}, error) {
		if token, ok := a.cached(); ok {
			return token, nil
		}

		// The refresh is shared, so one caller going away must not
		// cancel it for the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenFetchTimeout)
		defer cancel()

		tok, err := a.source.Token(fetchCtx)
		if err != nil {
			return nil, err
		}
		if tok.AccessToken == "" {
			return nil, errors.New("token endpoint returned an empty access token")
		}

		a.mu.Lock()
		a.token = tok
		a.mu.Unlock()
		return tok.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// cached returns the cached token if it is not within skew of expiry.
func (a *BearerAuth) cached() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == nil {
		return "", false
	}
	if !a.token.Expiry.IsZero() && !a.now().Add(a.skew).Before(a.token.Expiry) {
		return "", false
	}
	return a.token.AccessToken, true
}

// DefaultCognitiveServicesScope is the scope requested for Azure OpenAI.
const DefaultCognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// NewClientCredentials returns the client-credentials flow for an Entra
// tenant. No scopes requests DefaultCognitiveServicesScope.
func NewClientCredentials(tenantID, clientID, clientSecret string, scopes []string) *clientcredentials.Config {
	if len(scopes) == 0 {
		scopes = []string{DefaultCognitiveServicesScope}
	}
	return &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
}
