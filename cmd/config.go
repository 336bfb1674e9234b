package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/proseforge/proseforge/internal/config"
	"github.com/proseforge/proseforge/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Show the configuration after defaults, the config file, and
environment variables are merged. API keys are masked.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path, err := config.GetConfigPath()
	if err == nil {
		fmt.Println(ui.DefaultStyles().Muted.Render("config file: " + path))
		fmt.Println()
	}

	type maskedProvider struct {
		APIKey              string `yaml:"api_key"`
		Model               string `yaml:"model"`
		ContextWindow       int    `yaml:"context_window,omitempty"`
		MaxOutputTokens     int    `yaml:"max_output_tokens,omitempty"`
		ReasoningBudget     int    `yaml:"reasoning_budget,omitempty"`
		VisibleOutputTokens int    `yaml:"visible_output_tokens,omitempty"`
	}
	mask := func(p *config.ProviderConfig) maskedProvider {
		key := "(not set)"
		if p.APIKey != "" {
			key = "****"
		}
		return maskedProvider{
			APIKey:              key,
			Model:               p.Model,
			ContextWindow:       p.ContextWindow,
			MaxOutputTokens:     p.MaxOutputTokens,
			ReasoningBudget:     p.ReasoningBudget,
			VisibleOutputTokens: p.VisibleOutputTokens,
		}
	}

	out := map[string]any{
		"provider": cfg.Provider,
		"project": map[string]string{
			"dir":      cfg.Project.Dir,
			"language": cfg.Project.Language,
		},
		"retry": map[string]int{
			"max_attempts":     cfg.Retry.MaxAttempts,
			"base_backoff_ms":  cfg.Retry.BaseBackoffMS,
			"max_backoff_secs": cfg.Retry.MaxBackoffSecs,
		},
		"anthropic": mask(&cfg.Anthropic),
		"openai":    mask(&cfg.OpenAI),
		"gemini":    mask(&cfg.Gemini),
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
