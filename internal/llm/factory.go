package llm

import (
	"fmt"
	"time"

	"github.com/proseforge/proseforge/internal/config"
)

// NewClient builds the client for a provider id from configuration and wraps
// it with retry handling.
func NewClient(cfg *config.Config, providerID string) (Client, error) {
	if providerID == "" {
		providerID = cfg.Provider
	}

	settings := cfg.ProviderSettings(providerID)
	if settings == nil {
		return nil, fmt.Errorf("unknown provider: %s (supported: anthropic, openai, gemini)", providerID)
	}

	clientCfg := ClientConfig{
		ProviderID:          providerID,
		APIKey:              settings.APIKey,
		Model:               settings.Model,
		ContextWindow:       settings.ContextWindow,
		MaxOutputHardLimit:  settings.MaxOutputTokens,
		ReasoningBudget:     settings.ReasoningBudget,
		VisibleOutputTokens: settings.VisibleOutputTokens,
		RequestTimeout:      settings.RequestTimeout(),
		MaxRetries:          cfg.Retry.MaxAttempts,
	}

	var client Client
	switch providerID {
	case "anthropic":
		client = NewAnthropicClient(clientCfg)
	case "openai":
		client = NewOpenAIClient(clientCfg)
	case "gemini":
		client = NewGeminiClient(clientCfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerID)
	}

	retryCfg := DefaultRetryConfig()
	if cfg.Retry.MaxAttempts > 0 {
		retryCfg.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseBackoffMS > 0 {
		retryCfg.BaseBackoff = time.Duration(cfg.Retry.BaseBackoffMS) * time.Millisecond
	}
	if cfg.Retry.MaxBackoffSecs > 0 {
		retryCfg.MaxBackoff = time.Duration(cfg.Retry.MaxBackoffSecs) * time.Second
	}
	return WrapWithRetry(client, retryCfg), nil
}
