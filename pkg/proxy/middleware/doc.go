// Package middleware provides HTTP middleware for cross-cutting concerns of
// the gateway server.
//
// # Middleware Chain
//
// The server applies the middleware outermost first:
//
//	handler = Recovery(RequestID(Logging(CORS(handler))))
//
//   - RecoveryMiddleware: converts a handler panic into a 500 OpenAI error
//   - RequestIDMiddleware: assigns or keeps X-Request-ID and stores it in the
//     context so every log line of the request carries it
//   - LoggingMiddleware: logs method, host, path, status and latency
//   - CORSMiddleware: answers preflight requests for browser clients
//
// # Streaming
//
// The logging response writer implements http.Flusher and Unwrap, so
// server-sent events forwarded by the gateway are flushed to the caller as
// they arrive.
package middleware
