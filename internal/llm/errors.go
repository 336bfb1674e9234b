package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConfigurationError means the provider cannot be used until the user
// supplies credentials. Recoverable by user action, never fatal.
type ConfigurationError struct {
	Provider string
	EnvVar   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s API key not configured. Set %s or add api_key to config", e.Provider, e.EnvVar)
}

// ContextNotPreparedError is a sequencing error: the caller must prepare a
// manuscript context before streaming.
type ContextNotPreparedError struct {
	Provider string
}

func (e *ContextNotPreparedError) Error() string {
	return fmt.Sprintf("%s: no manuscript context prepared; call PrepareContext before streaming", e.Provider)
}

// RateLimitError carries an explicit wait hint from the provider.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// IsLongWait reports whether the wait is too long for automatic retry.
func (e *RateLimitError) IsLongWait() bool {
	return e.RetryAfter > 60*time.Second
}

// IsConfiguration reports whether err is a missing-credentials failure the
// user should fix in configuration rather than retry.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsTimeout reports whether err is a request-level timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// isRetryable returns true if the error is a transient error worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Sequencing and configuration failures never resolve on retry.
	var ce *ConfigurationError
	var cne *ContextNotPreparedError
	if errors.As(err, &ce) || errors.As(err, &cne) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Rate limits retry unless the provider asks for a long wait.
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return !rle.IsLongWait()
	}

	errStr := strings.ToLower(err.Error())

	// HTTP status codes and rate limit messages
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "overloaded") {
		return true
	}

	// Connection errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "no such host") {
		return true
	}

	return false
}
