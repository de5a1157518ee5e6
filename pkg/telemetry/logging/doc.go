// Package logging provides structured logging with secret redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Redaction of API keys, bearer tokens and client secrets
//   - Context-aware logging with request IDs, pipelines and endpoints
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//
//	logger.Info("endpoint attempt failed",
//	    "endpoint", "east",
//	    "api_key", "0123456789abcdef", // logged as "0123***"
//	)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "dispatching") // includes request_id
//
// Logger.Slog returns a *slog.Logger backed by the same redacting handler for
// packages that accept a plain slog logger.
package logging
