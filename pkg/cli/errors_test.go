package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	cause := errors.New("pipelines[0].host: is required")

	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "with path",
			err:  NewConfigError("gateway.yaml", cause),
			want: "config error in gateway.yaml: pipelines[0].host: is required",
		},
		{
			name: "without path",
			err:  NewConfigError("", cause),
			want: "config error: pipelines[0].host: is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("ConfigError should unwrap to its cause")
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("serve", underlyingErr)

	expected := "command serve failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("CommandError should unwrap to underlying error")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain error", errors.New("boom"), ExitFailure},
		{"command error", NewCommandError("serve", errors.New("boom")), ExitFailure},
		{"config error", NewConfigError("gateway.yaml", errors.New("bad")), ExitConfig},
		{"wrapped config error", fmt.Errorf("startup: %w", NewConfigError("", errors.New("bad"))), ExitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
