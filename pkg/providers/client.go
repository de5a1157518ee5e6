package providers

import (
	"net"
	"net/http"
	"time"
)

// TransportConfig configures the pooled HTTP client shared by endpoints.
type TransportConfig struct {
	// MaxIdleConns is the maximum idle connections across all hosts
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection is kept
	IdleConnTimeout time.Duration

	// DialTimeout bounds connection establishment
	DialTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake
	TLSHandshakeTimeout time.Duration
}

// DefaultTransportConfig returns pooling defaults suitable for a handful of
// busy endpoints.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewHTTPClient creates an HTTP client with connection pooling. It sets no
// client timeout: every attempt is bounded by the dispatcher instead, so
// streamed bodies are not cut off.
func NewHTTPClient(config TransportConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   config.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		DisableCompression:  true,
		// Enable HTTP/2
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
