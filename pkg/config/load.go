package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AICENTRAL_"

// envReference matches ${VAR} and ${VAR:-default} in a configuration file.
var envReference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LoadConfig loads configuration from a YAML file at the specified path.
// ${VAR} references are expanded from the environment before parsing, so
// secrets can stay out of the file. Defaults are applied and the result is
// validated. Environment overrides are not applied; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes a YAML document over the defaults. Unknown top-level and
// section keys are rejected; component properties are decoded later by
// their builders.
func Parse(data []byte) (*Config, error) {
	expanded, err := ExpandEnv(data)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// ExpandEnv replaces ${VAR} references with environment values. A
// reference to an unset variable without a ${VAR:-default} fallback is an
// error, so a missing secret fails at load time rather than at the first
// downstream call.
func ExpandEnv(data []byte) ([]byte, error) {
	var missing []string
	out := envReference.ReplaceAllFunc(data, func(ref []byte) []byte {
		m := envReference.FindSubmatch(ref)
		name := string(m[1])
		if val, ok := os.LookupEnv(name); ok {
			return []byte(val)
		}
		if bytes.Contains(ref, []byte(":-")) {
			return m[2]
		}
		missing = append(missing, name)
		return ref
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("undefined environment variables: %v", missing)
	}
	return out, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention AICENTRAL_SECTION_FIELD (e.g., AICENTRAL_SERVER_LISTEN_ADDRESS).
//
// The loading sequence is:
//  1. Expand ${VAR} references and decode the file over the defaults
//  2. Apply environment variable overrides
//  3. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Malformed values are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError

	str := func(name string, dst *string) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			*dst = val
		}
	}
	dur := func(name string, dst *time.Duration) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: err.Error()})
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: err.Error()})
				return
			}
			*dst = b
		}
	}

	// Server overrides
	str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	dur("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	dur("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	dur("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Telemetry overrides
	str("LOG_LEVEL", &cfg.Telemetry.Logging.Level)
	str("LOG_FORMAT", &cfg.Telemetry.Logging.Format)
	boolean("METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	boolean("TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	str("TRACING_EXPORTER", &cfg.Telemetry.Tracing.Exporter)
	str("TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
