package logging

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a custom redaction rule.
type Pattern struct {
	Name        string
	Pattern     string
	Replacement string
}

// Redactor removes credentials from log fields.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey       = "api_key"
	PatternBearerToken  = "bearer_token"
	PatternClientSecret = "client_secret"
)

var defaultPatterns = []Pattern{
	{
		Name:        PatternAPIKey,
		Pattern:     `(sk-[a-zA-Z0-9_-]+|api[-_]?key[-_:=]\s*[a-zA-Z0-9]+)`,
		Replacement: "sk-***",
	},
	{
		Name:        PatternBearerToken,
		Pattern:     `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
		Replacement: "Bearer ***",
	},
	{
		Name:        PatternClientSecret,
		Pattern:     `(client_secret|password)=[^&\s]+`,
		Replacement: "$1=***",
	},
}

// NewRedactor creates a Redactor with the built-in patterns followed by any
// custom patterns. Custom patterns that fail to compile are reported.
func NewRedactor(custom []Pattern) (*Redactor, error) {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regexp.MustCompile(p.Pattern),
			replacement: p.Replacement,
		})
	}
	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p.Name, err)
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}
	return r, nil
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactArgs redacts key-value log arguments. Values under sensitive keys are
// masked entirely; other string values are pattern-matched.
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		if key, ok := redacted[i-1].(string); ok && isSensitiveKey(key) {
			redacted[i] = redactValue(redacted[i])
			continue
		}
		if str, ok := redacted[i].(string); ok {
			redacted[i] = r.RedactString(str)
		}
	}

	return redacted
}

var sensitiveKeys = []string{
	"password", "secret", "token", "bearer",
	"api_key", "apikey", "api-key",
	"authorization",
}

// isSensitiveKey matches whole keys or their last underscore or dash
// separated component, so "client_secret" matches and "prompt_tokens" does
// not.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if lower == s || strings.HasSuffix(lower, "_"+s) || strings.HasSuffix(lower, "-"+s) {
			return true
		}
	}
	return false
}

func redactValue(value any) any {
	v, ok := value.(string)
	if !ok {
		return "***"
	}
	if v == "" {
		return ""
	}
	return RedactAPIKey(v)
}

// RedactAPIKey masks a key, keeping a four character prefix for
// identification.
func RedactAPIKey(apiKey string) string {
	if len(apiKey) <= 4 {
		return "***"
	}
	return apiKey[:4] + "***"
}
