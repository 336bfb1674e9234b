package llm

import (
	"fmt"
	"strings"
)

// ProviderModels contains the curated list of common models per provider,
// used when the backend has no listing API or the key is absent.
var ProviderModels = map[string][]string{
	"anthropic": {
		"claude-sonnet-4-5",
		"claude-sonnet-4-5-thinking",
		"claude-opus-4-5",
		"claude-opus-4-5-thinking",
		"claude-haiku-4-5",
	},
	"openai": {
		"gpt-5.2",
		"gpt-5.1",
		"gpt-5",
		"gpt-5-mini",
		"gpt-5-nano",
		"o3-mini",
	},
	"gemini": {
		"gemini-3-pro-preview",
		"gemini-3-flash-preview",
		"gemini-2.5-pro",
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
	},
}

// modelLimit pairs a model-id prefix with its declared limits.
type modelLimit struct {
	prefix      string
	window      int
	outputLimit int
}

// Longest-prefix wins; ordered specific-first within each family.
var modelLimits = []modelLimit{
	{"claude-opus-4", 200_000, 32_000},
	{"claude-sonnet-4", 200_000, 64_000},
	{"claude-haiku-4", 200_000, 64_000},
	{"claude", 200_000, 32_000},
	{"gpt-5", 400_000, 128_000},
	{"gpt-4.1", 1_047_576, 32_768},
	{"gpt-4o", 128_000, 16_384},
	{"o3", 200_000, 100_000},
	{"gemini-3", 1_048_576, 65_536},
	{"gemini-2.5-pro", 1_048_576, 65_536},
	{"gemini-2.5", 1_048_576, 65_536},
	{"gemini", 1_048_576, 8_192},
}

const (
	defaultContextWindow = 128_000
	defaultOutputLimit   = 8_192
)

// ContextWindowForModel returns the declared context window for a model id,
// or a conservative default for unknown models.
func ContextWindowForModel(model string) int {
	for _, l := range modelLimits {
		if strings.HasPrefix(model, l.prefix) {
			return l.window
		}
	}
	return defaultContextWindow
}

// OutputLimitForModel returns the provider hard limit on output tokens for
// a model id, or a conservative default for unknown models.
func OutputLimitForModel(model string) int {
	for _, l := range modelLimits {
		if strings.HasPrefix(model, l.prefix) {
			return l.outputLimit
		}
	}
	return defaultOutputLimit
}

// chooseModel prefers the per-request override, falling back to the
// client's configured model.
func chooseModel(requested, configured string) string {
	if requested != "" {
		return requested
	}
	return configured
}

// FormatTokenCount renders a token limit like 200000 as "200K" for display.
// Returns "" for unknown (non-positive) limits.
func FormatTokenCount(n int) string {
	if n <= 0 {
		return ""
	}
	if n >= 1_000_000 {
		if n%1_000_000 == 0 {
			return fmt.Sprintf("%dM", n/1_000_000)
		}
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%dK", n/1_000)
	}
	return fmt.Sprintf("%d", n)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
