package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"aicentral-hq/gateway/pkg/classify"
	"aicentral-hq/gateway/pkg/config"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/handlers"
	"aicentral-hq/gateway/pkg/proxy/middleware"
	gatewaytls "aicentral-hq/gateway/pkg/security/tls"
	"aicentral-hq/gateway/pkg/telemetry/tracing"
)

// Admin routes. Every other path is served by the gateway handler.
const (
	LivenessPath  = "/healthz"
	ReadinessPath = "/readyz"
	VersionPath   = "/version"
)

// Options wire the server to the rest of the gateway.
type Options struct {
	// Pipelines is the active pipeline set. Required.
	Pipelines *pipeline.Set

	// Endpoints reports endpoint health on the readiness route. Optional.
	Endpoints handlers.EndpointHealthSource

	// Metrics serves Prometheus metrics at MetricsPath. Optional.
	Metrics     http.Handler
	MetricsPath string

	// Version is reported on the version route.
	Version string
	Commit  string
}

// Server is the HTTP server for inbound AI calls.
type Server struct {
	config       config.ServerConfig
	opts         Options
	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	stopOnce     sync.Once
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new gateway server.
func NewServer(cfg config.ServerConfig, opts Options) *Server {
	return &Server{
		config:       cfg,
		opts:         opts,
		shutdownChan: make(chan struct{}),
	}
}

// Start listens on the configured address and blocks until ctx is cancelled,
// Stop is called or the server fails. In-flight requests are drained for up
// to ShutdownTimeout before Start returns.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	if s.config.TLS.Enabled {
		tlsConfig, err := s.tlsConfig(ctx)
		if err != nil {
			ln.Close()
			s.mu.Unlock()
			return err
		}
		ln = tls.NewListener(ln, tlsConfig)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.setupRoutes(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway server", "address", ln.Addr().String(), "tls", s.config.TLS.Enabled)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.shutdownChan) })
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.Stop()

		slog.Info("gateway server stopped")
	})

	return shutdownErr
}

// tlsConfig loads the certificate pair and keeps reloading it until ctx is
// done.
func (s *Server) tlsConfig(ctx context.Context) (*tls.Config, error) {
	cfg := s.config.TLS
	certs := gatewaytls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval)
	if err := certs.Load(); err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	tlsConfig, err := gatewaytls.NewServerConfig(cfg, certs)
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	go certs.Run(ctx)
	return tlsConfig, nil
}

// setupRoutes configures the admin routes, the catch-all gateway route and
// the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	router := chi.NewRouter()

	router.Get(LivenessPath, handlers.NewHealthHandler().ServeHTTP)
	router.Get(ReadinessPath, handlers.NewReadyHandler(s.opts.Pipelines, s.opts.Endpoints).ServeHTTP)
	router.Get(VersionPath, handlers.VersionHandler(s.opts.Version, s.opts.Commit))
	if s.opts.Metrics != nil && s.opts.MetricsPath != "" {
		router.Handle(s.opts.MetricsPath, s.opts.Metrics)
	}

	classifier := classify.Default(classify.WithMaxBodyBytes(s.config.MaxBodyBytes))
	gateway := handlers.NewGatewayHandler(s.opts.Pipelines, classifier)
	router.NotFound(gateway.ServeHTTP)
	router.MethodNotAllowed(gateway.ServeHTTP)

	// Applied innermost first; recovery ends up outermost.
	var handler http.Handler = router
	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.CORSMiddleware(s.corsConfig())(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// Addr returns the address the server is listening on, or the configured
// address before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddress
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// corsConfig converts config.CORSConfig to middleware.CORSConfig, keeping
// the middleware defaults for lists left empty.
func (s *Server) corsConfig() *middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	cfg.Enabled = s.config.CORS.Enabled
	cfg.AllowCredentials = s.config.CORS.AllowCredentials
	if len(s.config.CORS.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = s.config.CORS.AllowedOrigins
	}
	if len(s.config.CORS.AllowedMethods) > 0 {
		cfg.AllowedMethods = s.config.CORS.AllowedMethods
	}
	if len(s.config.CORS.AllowedHeaders) > 0 {
		cfg.AllowedHeaders = s.config.CORS.AllowedHeaders
	}
	if len(s.config.CORS.ExposedHeaders) > 0 {
		cfg.ExposedHeaders = s.config.CORS.ExposedHeaders
	}
	if s.config.CORS.MaxAge > 0 {
		cfg.MaxAge = s.config.CORS.MaxAge
	}
	return cfg
}
