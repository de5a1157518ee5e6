package config

import (
	"bytes"
	"errors"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure of the gateway. Component
// sections hold named, typed entries; pipelines refer to them by name.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Endpoints are the downstream AI services.
	Endpoints []ComponentConfig `yaml:"endpoints" validate:"dive"`

	// EndpointSelectors choose among endpoints for a pipeline.
	EndpointSelectors []ComponentConfig `yaml:"endpoint_selectors" validate:"dive"`

	// AuthProviders authenticate callers of a pipeline.
	AuthProviders []ComponentConfig `yaml:"auth_providers" validate:"dive"`

	// GenericSteps are throttling steps shared by name across pipelines.
	// Each pipeline that lists a step gets its own instance.
	GenericSteps []ComponentConfig `yaml:"generic_steps" validate:"dive"`

	// Pipelines bind an inbound host to an auth provider, steps and an
	// endpoint selector. The first pipeline whose host matches wins.
	Pipelines []PipelineConfig `yaml:"pipelines" validate:"dive"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address" validate:"required,hostname_port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout" validate:"gte=0"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must cover the longest streamed completion.
	// Default: 10m
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout" validate:"gte=0"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes" validate:"gte=0"`

	// MaxBodyBytes limits the buffered request body. Audio uploads are the
	// largest bodies the gateway sees.
	// Default: 26214400 (25MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gte=0"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// TLS serves the gateway over HTTPS.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS configuration for the inbound listener.
type TLSConfig struct {
	// Enabled serves HTTPS instead of plain HTTP.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM-encoded certificate chain.
	CertFile string `yaml:"cert_file" validate:"required_if=Enabled true"`

	// KeyFile is the path to the PEM-encoded private key.
	KeyFile string `yaml:"key_file" validate:"required_if=Enabled true"`

	// MinVersion is the lowest TLS version accepted.
	// Options: "1.2", "1.3"
	// Default: "1.2"
	MinVersion string `yaml:"min_version" validate:"omitempty,oneof=1.2 1.3"`

	// ReloadInterval is how often the certificate files are checked for
	// changes. A renewed pair is served without a restart.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval" validate:"gte=0"`

	// ClientCAFile enables client certificate verification against the
	// PEM-encoded CAs in this file.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientAuth controls how client certificates are treated when
	// ClientCAFile is set.
	// Options: "require", "verify_if_given"
	// Default: "require"
	ClientAuth string `yaml:"client_auth" validate:"omitempty,oneof=require verify_if_given"`
}

// CORSConfig contains CORS configuration for browser clients.
type CORSConfig struct {
	// Enabled controls whether CORS headers are added.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. Use ["*"] to allow all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of response headers readable by browsers.
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int `yaml:"max_age" validate:"gte=0"`

	// AllowCredentials controls whether credentialed requests are allowed.
	AllowCredentials bool `yaml:"allow_credentials"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format" validate:"oneof=json text"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks API keys and bearer tokens in log attributes.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path" validate:"required,startswith=/"`

	// Namespace is the metric name prefix.
	// Default: "aicentral"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets defines histogram buckets for request duration
	// in seconds.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Exporter selects the span exporter.
	// Options: "otlp", "stdout"
	// Default: "otlp"
	Exporter string `yaml:"exporter" validate:"oneof=otlp stdout"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler" validate:"oneof=always never ratio"`

	// SampleRatio is the fraction of traces to sample when Sampler is
	// "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`

	// ServiceName is the service name in traces.
	// Default: "aicentral"
	ServiceName string `yaml:"service_name"`
}

// ComponentConfig is one named entry of a component section. Type selects
// the registered builder, which decodes Properties into its own shape.
type ComponentConfig struct {
	Type       string    `yaml:"type" validate:"required"`
	Name       string    `yaml:"name" validate:"required"`
	Properties yaml.Node `yaml:"properties"`
}

// Decode decodes the entry's properties into out. Keys out does not declare
// are rejected. Missing properties leave out unchanged.
func (c ComponentConfig) Decode(out interface{}) error {
	if c.Properties.Kind == 0 {
		return nil
	}
	data, err := yaml.Marshal(&c.Properties)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// PipelineConfig describes one pipeline.
type PipelineConfig struct {
	// Name uniquely identifies the pipeline.
	Name string `yaml:"name" validate:"required"`

	// Host is the inbound Host header bound to the pipeline, matched
	// case-insensitively without the port.
	Host string `yaml:"host" validate:"required"`

	// AuthProvider names an entry of auth_providers.
	AuthProvider string `yaml:"auth_provider" validate:"required"`

	// Steps name entries of generic_steps, run in the given order.
	Steps []string `yaml:"steps"`

	// EndpointSelector names an entry of endpoint_selectors.
	EndpointSelector string `yaml:"endpoint_selector" validate:"required"`

	// RequestTimeout bounds the whole request including failover across
	// endpoints. Nil uses the default; an explicit 0 disables it.
	// Default: 120s
	RequestTimeout *time.Duration `yaml:"request_timeout" validate:"omitempty,gte=0"`
}

// Timeout returns the effective overall request deadline.
func (p PipelineConfig) Timeout() time.Duration {
	if p.RequestTimeout == nil {
		return DefaultRequestTimeout
	}
	return *p.RequestTimeout
}
