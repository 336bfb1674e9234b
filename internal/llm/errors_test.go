package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"configuration error", &ConfigurationError{Provider: "openai", EnvVar: "OPENAI_API_KEY"}, false},
		{"context not prepared", &ContextNotPreparedError{Provider: "gemini"}, false},
		{"cancelled", context.Canceled, false},
		{"wrapped cancelled", fmt.Errorf("run: %w", context.Canceled), false},
		{"short rate limit", &RateLimitError{RetryAfter: 5 * time.Second}, true},
		{"long rate limit", &RateLimitError{RetryAfter: 5 * time.Minute}, false},
		{"http 429", errors.New("request failed: 429 Too Many Requests"), true},
		{"overloaded", errors.New("api error: overloaded_error"), true},
		{"bad gateway", errors.New("502 bad gateway"), true},
		{"service unavailable", errors.New("503 service unavailable"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"timeout", errors.New("request timeout exceeded"), true},
		{"invalid request", errors.New("400 invalid request"), false},
		{"auth failure", errors.New("401 unauthorized"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRateLimitErrorLongWait(t *testing.T) {
	short := &RateLimitError{RetryAfter: 30 * time.Second}
	if short.IsLongWait() {
		t.Error("30s wait should not be long")
	}
	long := &RateLimitError{RetryAfter: 2 * time.Minute}
	if !long.IsLongWait() {
		t.Error("2m wait should be long")
	}
}

func TestIsConfiguration(t *testing.T) {
	err := fmt.Errorf("stream: %w", &ConfigurationError{Provider: "anthropic", EnvVar: "ANTHROPIC_API_KEY"})
	if !IsConfiguration(err) {
		t.Error("wrapped ConfigurationError not detected")
	}
	if IsConfiguration(errors.New("other")) {
		t.Error("plain error detected as configuration")
	}
}
