package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// validate checks struct tags, reporting fields by their YAML names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
//
// Struct tag rules cover single fields. The hand-written rules cover what
// spans sections: unique names, unique hosts, and pipelines referring to
// entries that exist. Component types and properties are checked by the
// pipeline builder, which owns the registry of types.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStruct(cfg)...)
	errs = append(errs, validateComponents("endpoints", cfg.Endpoints)...)
	errs = append(errs, validateComponents("endpoint_selectors", cfg.EndpointSelectors)...)
	errs = append(errs, validateComponents("auth_providers", cfg.AuthProviders)...)
	errs = append(errs, validateComponents("generic_steps", cfg.GenericSteps)...)
	errs = append(errs, validatePipelines(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validateStruct runs the struct tag rules.
func validateStruct(cfg *Config) []FieldError {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "config", Message: err.Error()}}
	}

	errs := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, FieldError{Field: fieldPath(fe.Namespace()), Message: tagMessage(fe)})
	}
	return errs
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "required_if":
		return "field is required when enabled"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "hostname_port":
		return "must be a host:port address"
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	default:
		return fmt.Sprintf("validation failed on '%s' tag", fe.Tag())
	}
}

// validateComponents checks that names are unique within a section.
func validateComponents(section string, entries []ComponentConfig) []FieldError {
	var errs []FieldError
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			continue
		}
		if first, ok := seen[e.Name]; ok {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("%s[%d].name", section, i),
				Message: fmt.Sprintf("duplicate name %q (first defined at %s[%d])", e.Name, section, first),
			})
			continue
		}
		seen[e.Name] = i
	}
	return errs
}

// validatePipelines checks pipeline names, hosts and references.
func validatePipelines(cfg *Config) []FieldError {
	var errs []FieldError

	authProviders := names(cfg.AuthProviders)
	selectors := names(cfg.EndpointSelectors)
	steps := names(cfg.GenericSteps)

	seenNames := make(map[string]bool, len(cfg.Pipelines))
	seenHosts := make(map[string]string, len(cfg.Pipelines))

	for i, p := range cfg.Pipelines {
		prefix := fmt.Sprintf("pipelines[%d]", i)

		if p.Name != "" {
			if seenNames[p.Name] {
				errs = append(errs, FieldError{Field: prefix + ".name", Message: fmt.Sprintf("duplicate pipeline name %q", p.Name)})
			}
			seenNames[p.Name] = true
		}

		if p.Host != "" {
			host := strings.ToLower(p.Host)
			if strings.ContainsAny(host, "/ ") || strings.Contains(host, "://") {
				errs = append(errs, FieldError{Field: prefix + ".host", Message: "must be a bare host name"})
			}
			if other, ok := seenHosts[host]; ok {
				errs = append(errs, FieldError{
					Field:   prefix + ".host",
					Message: fmt.Sprintf("host %q is already bound to pipeline %q", p.Host, other),
				})
			} else {
				seenHosts[host] = p.Name
			}
		}

		if p.AuthProvider != "" && !authProviders[p.AuthProvider] {
			errs = append(errs, FieldError{Field: prefix + ".auth_provider", Message: fmt.Sprintf("unknown auth provider %q", p.AuthProvider)})
		}
		if p.EndpointSelector != "" && !selectors[p.EndpointSelector] {
			errs = append(errs, FieldError{Field: prefix + ".endpoint_selector", Message: fmt.Sprintf("unknown endpoint selector %q", p.EndpointSelector)})
		}
		for j, step := range p.Steps {
			if !steps[step] {
				errs = append(errs, FieldError{Field: fmt.Sprintf("%s.steps[%d]", prefix, j), Message: fmt.Sprintf("unknown generic step %q", step)})
			}
		}
	}
	return errs
}

func names(entries []ComponentConfig) map[string]bool {
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		out[e.Name] = true
	}
	return out
}
