// Package server provides the HTTP server that fronts the gateway pipelines.
//
// # Routes
//
//   - GET /healthz: liveness, always 200 while the process serves
//   - GET /readyz: 200 once at least one pipeline is loaded, with endpoint health
//   - GET /version: build information
//   - the configured metrics path, when a metrics handler is supplied
//   - everything else: the gateway handler, which routes by Host
//
// # Middleware Chain
//
// Requests pass through, outermost first: panic recovery, request ID
// assignment, access logging, CORS, and W3C trace context extraction.
//
// # TLS
//
// With server.tls enabled the listener serves HTTPS. The certificate pair
// is checked for changes every reload_interval and swapped in without
// dropping connections; see package security/tls.
//
// # Basic Usage
//
//	rt, err := pipelinefactory.NewRuntime(cfg, pipelinefactory.Options{Sink: collector})
//	if err != nil {
//	    return err
//	}
//
//	srv := server.NewServer(cfg.Server, server.Options{
//	    Pipelines:   rt.Pipelines(),
//	    Endpoints:   rt,
//	    Metrics:     collector.Handler(),
//	    MetricsPath: cfg.Telemetry.Metrics.Path,
//	    Version:     version,
//	})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled or Stop is called, then drains
// in-flight requests for up to server.shutdown_timeout.
package server
