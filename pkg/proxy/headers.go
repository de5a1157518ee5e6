package proxy

import (
	"net/http"
	"strings"
)

// hopByHop lists headers that describe a single connection and are never
// forwarded. Content-Length is recomputed on each side.
var hopByHop = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Proxy-Connection":    true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Content-Length":      true,
	"Host":                true,
}

// credentialHeaders are caller credentials that must not reach a downstream
// endpoint. Each endpoint sets its own.
var credentialHeaders = map[string]bool{
	"Authorization":       true,
	"Api-Key":             true,
	"Openai-Organization": true,
}

// IsHopByHop reports whether a header is connection-scoped.
func IsHopByHop(name string) bool {
	return hopByHop[http.CanonicalHeaderKey(name)]
}

// CopyResponseHeaders copies every forwardable header from src to dst.
func CopyResponseHeaders(dst, src http.Header) {
	for key, values := range src {
		if IsHopByHop(key) || connectionListed(src, key) {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// CopyRequestHeaders copies the caller's headers that may be forwarded to a
// downstream endpoint. Caller credentials are dropped.
func CopyRequestHeaders(dst, src http.Header) {
	for key, values := range src {
		canonical := http.CanonicalHeaderKey(key)
		if hopByHop[canonical] || credentialHeaders[canonical] || connectionListed(src, key) {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// connectionListed reports whether key is named in the Connection header.
func connectionListed(h http.Header, key string) bool {
	for _, v := range h.Values("Connection") {
		for _, field := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(field), key) {
				return true
			}
		}
	}
	return false
}
