package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Provider  string          `mapstructure:"provider"`
	Project   ProjectConfig   `mapstructure:"project"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Anthropic ProviderConfig  `mapstructure:"anthropic"`
	OpenAI    ProviderConfig  `mapstructure:"openai"`
	Gemini    ProviderConfig  `mapstructure:"gemini"`
}

// ProjectConfig describes the active project: where the manuscript lives,
// where run output is written, and the language non-core tools operate in.
type ProjectConfig struct {
	Dir      string `mapstructure:"dir"`      // project directory (output goes to <dir>/output)
	Language string `mapstructure:"language"` // affects non-core tools only
}

// RetryConfig controls transport retry behavior. These are static
// configuration, not adaptive.
type RetryConfig struct {
	MaxAttempts    int `mapstructure:"max_attempts"`
	BaseBackoffMS  int `mapstructure:"base_backoff_ms"`
	MaxBackoffSecs int `mapstructure:"max_backoff_secs"`
}

// ProviderConfig holds one provider's settings. Zero values for the token
// limits mean "use the model's known defaults".
type ProviderConfig struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	ContextWindow       int    `mapstructure:"context_window"`
	MaxOutputTokens     int    `mapstructure:"max_output_tokens"`      // provider hard limit on output
	ReasoningBudget     int    `mapstructure:"reasoning_budget"`       // preferred thinking budget (0 = provider default)
	VisibleOutputTokens int    `mapstructure:"visible_output_tokens"`  // desired visible output when reasoning is on
	TimeoutMinutes      int    `mapstructure:"request_timeout_minutes"`
}

// RequestTimeout returns the per-request timeout for this provider.
func (p *ProviderConfig) RequestTimeout() time.Duration {
	if p.TimeoutMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(p.TimeoutMinutes) * time.Minute
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("provider", "anthropic")
	viper.SetDefault("project.language", "English")
	viper.SetDefault("retry.max_attempts", 5)
	viper.SetDefault("retry.base_backoff_ms", 1000)
	viper.SetDefault("retry.max_backoff_secs", 30)
	viper.SetDefault("anthropic.model", "claude-sonnet-4-5")
	viper.SetDefault("anthropic.visible_output_tokens", 8000)
	viper.SetDefault("anthropic.reasoning_budget", 20000)
	viper.SetDefault("openai.model", "gpt-5.2")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("gemini.visible_output_tokens", 8000)
	viper.SetDefault("gemini.reasoning_budget", 8192)

	// Read config file (optional - won't error if missing)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Resolve API keys from config value or environment. A missing key is
	// an expected state, not an error: clients report it via connectivity
	// checks and configuration errors.
	resolveCredentials(&cfg.Anthropic, "ANTHROPIC_API_KEY")
	resolveCredentials(&cfg.OpenAI, "OPENAI_API_KEY")
	resolveCredentials(&cfg.Gemini, "GEMINI_API_KEY")

	return &cfg, nil
}

// ProviderNames returns the provider ids this build supports.
func ProviderNames() []string {
	return []string{"anthropic", "openai", "gemini"}
}

// ProviderSettings returns the settings for a provider id, or nil if the
// id is unknown.
func (c *Config) ProviderSettings(provider string) *ProviderConfig {
	switch provider {
	case "anthropic":
		return &c.Anthropic
	case "openai":
		return &c.OpenAI
	case "gemini":
		return &c.Gemini
	}
	return nil
}

// ApplyOverrides applies provider and model overrides to the config.
// If provider is non-empty, it overrides the global provider.
// If model is non-empty, it overrides the model for the active provider.
func (c *Config) ApplyOverrides(provider, model string) {
	if provider != "" {
		c.Provider = provider
	}
	if model != "" {
		if settings := c.ProviderSettings(c.Provider); settings != nil {
			settings.Model = model
		}
	}
}

func resolveCredentials(cfg *ProviderConfig, envVar string) {
	cfg.APIKey = expandEnv(cfg.APIKey)
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(envVar)
	}
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the XDG config directory for proseforge.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "proseforge"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "proseforge"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
