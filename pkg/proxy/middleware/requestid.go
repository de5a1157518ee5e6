package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"aicentral-hq/gateway/pkg/proxy"
	"aicentral-hq/gateway/pkg/telemetry/logging"
)

// maxRequestIDLength bounds a caller-supplied request ID.
const maxRequestIDLength = 128

// RequestIDMiddleware assigns every request an ID, stores it in the context
// for logging and echoes it in the X-Request-ID response header. A caller
// supplied X-Request-ID is kept when it is reasonably short.
//
// Example usage:
//
//	handler = RequestIDMiddleware(handler)
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := proxy.ExtractRequestID(r)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		w.Header().Set(proxy.RequestIDHeader, requestID)
		ctx := logging.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}
