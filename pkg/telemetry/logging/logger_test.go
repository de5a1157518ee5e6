package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "json", config: Config{Level: "info", Format: "json", RedactSecrets: true}},
		{name: "text", config: Config{Level: "debug", Format: "text"}},
		{name: "console is text", config: Config{Level: "WARN", Format: "console"}},
		{name: "defaults", config: Config{}},
		{name: "invalid level", config: Config{Level: "loud"}, wantErr: true},
		{name: "invalid format", config: Config{Format: "xml"}, wantErr: true},
		{
			name: "invalid custom pattern",
			config: Config{
				RedactSecrets:  true,
				RedactPatterns: []Pattern{{Name: "bad", Pattern: "[unclosed"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return entry
}

func TestLogger_RedactsSecrets(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", RedactSecrets: true, Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("attempt",
		"api_key", "0123456789abcdef",
		"header", "Bearer eyJhbGciOiJIUzI1NiJ9.payload.sig",
		"prompt_tokens", 12,
		"error", errors.New("token request failed: client_secret=hunter2"),
	)

	entry := decodeLine(t, buf)
	if got := entry["api_key"]; got != "0123***" {
		t.Errorf("api_key = %v, want 0123***", got)
	}
	if got := entry["header"]; got != "Bearer ***" {
		t.Errorf("header = %v, want Bearer ***", got)
	}
	if got := entry["prompt_tokens"]; got != float64(12) {
		t.Errorf("prompt_tokens = %v, want 12", got)
	}
	if got := entry["error"].(string); strings.Contains(got, "hunter2") {
		t.Errorf("error leaked secret: %q", got)
	}
}

func TestLogger_SlogSharesRedaction(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Format: "json", RedactSecrets: true, Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Slog().With("client_secret", "s3cr3t-value").Info("token refreshed")

	entry := decodeLine(t, buf)
	if got := entry["client_secret"]; got != "s3cr***" {
		t.Errorf("client_secret = %v, want s3cr***", got)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "warn", Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}

	if err := logger.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug not logged after SetLevel: %s", buf.String())
	}
}

func TestLogger_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithPipeline(ctx, "chat")
	ctx = WithEndpoint(ctx, "east")
	logger.InfoContext(ctx, "dispatching")

	entry := decodeLine(t, buf)
	for key, want := range map[string]string{"request_id": "req-1", "pipeline": "chat", "endpoint": "east"} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestContext_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetModel(ctx) != "" {
		t.Fatal("empty context returned values")
	}
	ctx = WithModel(WithRequestID(ctx, "r"), "gpt-4")
	if GetRequestID(ctx) != "r" || GetModel(ctx) != "gpt-4" {
		t.Errorf("got request_id=%q model=%q", GetRequestID(ctx), GetModel(ctx))
	}
}
