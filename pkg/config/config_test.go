package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  listen_address: "0.0.0.0:9000"

endpoints:
  - type: AzureOpenAIEndpoint
    name: east
    properties:
      url: https://east.openai.azure.com
      model_mappings:
        gpt-35: gpt-35-turbo
  - type: OpenAIEndpoint
    name: openai
    properties:
      api_key: sk-test

endpoint_selectors:
  - type: RandomCluster
    name: pool
    properties:
      endpoints: [east, openai]

auth_providers:
  - type: AllowAnonymous
    name: anonymous

generic_steps:
  - type: FixedWindowRateLimiter
    name: limiter
    properties:
      window: 1s
      permit_limit: 10

pipelines:
  - name: main
    host: gateway.example.com
    auth_provider: anonymous
    steps: [limiter]
    endpoint_selector: pool
  - name: internal
    host: internal.example.com
    auth_provider: anonymous
    endpoint_selector: pool
    request_timeout: 0s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aicentral.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddress)
	assert.Equal(t, DefaultReadTimeout, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.Server.MaxBodyBytes)
	assert.Equal(t, DefaultLoggingLevel, cfg.Telemetry.Logging.Level)
	assert.True(t, cfg.Telemetry.Logging.RedactSecrets)
	assert.True(t, cfg.Telemetry.Metrics.Enabled)
	assert.False(t, cfg.Telemetry.Tracing.Enabled)

	require.Len(t, cfg.Endpoints, 2)
	require.Len(t, cfg.Pipelines, 2)
	assert.Equal(t, []string{"limiter"}, cfg.Pipelines[0].Steps)
	assert.Equal(t, DefaultRequestTimeout, cfg.Pipelines[0].Timeout())
	assert.Zero(t, cfg.Pipelines[1].Timeout())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read configuration file")
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("server:\n  listen_adress: 127.0.0.1:1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen_adress")
}

func TestParse_EmptyDocumentUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddress, cfg.Server.ListenAddress)
	assert.True(t, cfg.Telemetry.Metrics.Enabled)
}

func TestParse_ExplicitFalseOverridesDefault(t *testing.T) {
	cfg, err := Parse([]byte("telemetry:\n  metrics:\n    enabled: false\n  logging:\n    redact_secrets: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Telemetry.Metrics.Enabled)
	assert.False(t, cfg.Telemetry.Logging.RedactSecrets)
}

func TestComponentConfig_Decode(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	var props struct {
		URL           string            `yaml:"url"`
		ModelMappings map[string]string `yaml:"model_mappings"`
	}
	require.NoError(t, cfg.Endpoints[0].Decode(&props))
	assert.Equal(t, "https://east.openai.azure.com", props.URL)
	assert.Equal(t, map[string]string{"gpt-35": "gpt-35-turbo"}, props.ModelMappings)

	var step struct {
		Window      time.Duration `yaml:"window"`
		PermitLimit int           `yaml:"permit_limit"`
	}
	require.NoError(t, cfg.GenericSteps[0].Decode(&step))
	assert.Equal(t, time.Second, step.Window)
	assert.Equal(t, 10, step.PermitLimit)

	var none struct{ X string }
	require.NoError(t, cfg.AuthProviders[0].Decode(&none))

	var partial struct {
		URL string `yaml:"url"`
	}
	err = cfg.Endpoints[0].Decode(&partial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model_mappings")
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("AICENTRAL_TEST_KEY", "secret-value")

	out, err := ExpandEnv([]byte(`key: "${AICENTRAL_TEST_KEY}" other: ${AICENTRAL_TEST_UNSET:-fallback} plain: $HOME`))
	require.NoError(t, err)
	assert.Equal(t, `key: "secret-value" other: fallback plain: $HOME`, string(out))

	_, err = ExpandEnv([]byte(`key: ${AICENTRAL_TEST_UNSET}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AICENTRAL_TEST_UNSET")
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, validYAML)

	t.Run("overrides apply", func(t *testing.T) {
		t.Setenv("AICENTRAL_SERVER_LISTEN_ADDRESS", "127.0.0.1:7000")
		t.Setenv("AICENTRAL_LOG_LEVEL", "debug")
		t.Setenv("AICENTRAL_METRICS_ENABLED", "false")
		t.Setenv("AICENTRAL_SERVER_SHUTDOWN_TIMEOUT", "5s")

		cfg, err := LoadConfigWithEnvOverrides(path)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:7000", cfg.Server.ListenAddress)
		assert.Equal(t, "debug", cfg.Telemetry.Logging.Level)
		assert.False(t, cfg.Telemetry.Metrics.Enabled)
		assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	})

	t.Run("malformed override is reported", func(t *testing.T) {
		t.Setenv("AICENTRAL_SERVER_READ_TIMEOUT", "soon")

		_, err := LoadConfigWithEnvOverrides(path)
		var verr ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "AICENTRAL_SERVER_READ_TIMEOUT", verr.Errors[0].Field)
	})

	t.Run("override is validated", func(t *testing.T) {
		t.Setenv("AICENTRAL_LOG_LEVEL", "verbose")

		_, err := LoadConfigWithEnvOverrides(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telemetry.logging.level")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "invalid listen address",
			mutate:    func(c *Config) { c.Server.ListenAddress = "localhost" },
			wantField: "server.listen_address",
		},
		{
			name:      "invalid log format",
			mutate:    func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantField: "telemetry.logging.format",
		},
		{
			name:      "sample ratio out of range",
			mutate:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
		{
			name:      "tls without certificate",
			mutate:    func(c *Config) { c.Server.TLS = TLSConfig{Enabled: true, KeyFile: "server.key"} },
			wantField: "server.tls.cert_file",
		},
		{
			name: "unsupported tls version",
			mutate: func(c *Config) {
				c.Server.TLS = TLSConfig{Enabled: true, CertFile: "server.crt", KeyFile: "server.key", MinVersion: "1.0"}
			},
			wantField: "server.tls.min_version",
		},
		{
			name:      "component without type",
			mutate:    func(c *Config) { c.Endpoints[1].Type = "" },
			wantField: "endpoints[1].type",
		},
		{
			name:      "duplicate endpoint name",
			mutate:    func(c *Config) { c.Endpoints[1].Name = "east" },
			wantField: "endpoints[1].name",
		},
		{
			name:      "pipeline without host",
			mutate:    func(c *Config) { c.Pipelines[0].Host = "" },
			wantField: "pipelines[0].host",
		},
		{
			name:      "host with scheme",
			mutate:    func(c *Config) { c.Pipelines[0].Host = "https://gateway.example.com" },
			wantField: "pipelines[0].host",
		},
		{
			name:      "duplicate host ignoring case",
			mutate:    func(c *Config) { c.Pipelines[1].Host = "Gateway.Example.com" },
			wantField: "pipelines[1].host",
		},
		{
			name:      "duplicate pipeline name",
			mutate:    func(c *Config) { c.Pipelines[1].Name = "main" },
			wantField: "pipelines[1].name",
		},
		{
			name:      "unknown auth provider",
			mutate:    func(c *Config) { c.Pipelines[0].AuthProvider = "nobody" },
			wantField: "pipelines[0].auth_provider",
		},
		{
			name:      "unknown endpoint selector",
			mutate:    func(c *Config) { c.Pipelines[0].EndpointSelector = "nowhere" },
			wantField: "pipelines[0].endpoint_selector",
		},
		{
			name:      "unknown step",
			mutate:    func(c *Config) { c.Pipelines[0].Steps = []string{"limiter", "missing"} },
			wantField: "pipelines[0].steps[1]",
		},
		{
			name: "negative request timeout",
			mutate: func(c *Config) {
				d := -time.Second
				c.Pipelines[0].RequestTimeout = &d
			},
			wantField: "pipelines[0].request_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(validYAML))
			require.NoError(t, err)
			require.NoError(t, Validate(cfg))

			tt.mutate(cfg)
			err = Validate(cfg)
			require.Error(t, err)

			var verr ValidationError
			require.True(t, errors.As(err, &verr))
			var fields []string
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	one := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	assert.Equal(t, "configuration validation failed: a: bad", one.Error())

	two := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	assert.Contains(t, two.Error(), "2 errors")
	assert.Contains(t, two.Error(), "  - b: worse")
}

func TestSingleton(t *testing.T) {
	path := writeConfig(t, validYAML)

	cfg, err := ReloadConfig(path)
	require.NoError(t, err)
	assert.Same(t, cfg, GetConfig())
	assert.Same(t, cfg, MustGetConfig())
	assert.Equal(t, path, Path())

	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o600))
	_, err = ReloadConfig(path)
	require.Error(t, err)
	assert.Same(t, cfg, GetConfig(), "a failed reload keeps the previous configuration")
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, validYAML)

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	require.NoError(t, err)

	var reloads atomic.Int32
	var listen atomic.Value
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) error {
			listen.Store(cfg.Server.ListenAddress)
			reloads.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	updated := strings.Replace(validYAML, "0.0.0.0:9000", "0.0.0.0:9100", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool { return reloads.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "0.0.0.0:9100", listen.Load())

	require.NoError(t, w.Stop())
	assert.NoError(t, <-done)
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	path := writeConfig(t, validYAML)

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	require.NoError(t, err)

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(*Config) error {
			reloads.Add(1)
			return nil
		})
	}()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("pipelines: [{name: x}]\n"), 0o600))
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, reloads.Load())

	cancel()
	assert.NoError(t, <-done)
	require.NoError(t, w.Stop())
}

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParse_TLSDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  tls:
    enabled: true
    cert_file: server.crt
    key_file: server.key
    client_ca_file: clients.pem
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultTLSMinVersion, cfg.Server.TLS.MinVersion)
	assert.Equal(t, DefaultTLSReloadInterval, cfg.Server.TLS.ReloadInterval)
	assert.Equal(t, DefaultTLSClientAuth, cfg.Server.TLS.ClientAuth)
	assert.NoError(t, Validate(cfg))

	plain, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, plain.Server.TLS.MinVersion, "disabled tls keeps zero values")
}
