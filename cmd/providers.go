package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/proseforge/proseforge/internal/config"
	"github.com/proseforge/proseforge/internal/llm"
	"github.com/proseforge/proseforge/internal/ui"
)

var (
	providersJSON  bool
	providersCheck bool
)

// ProviderInfo describes a provider for external consumption.
type ProviderInfo struct {
	Name       string `json:"name"`
	EnvVar     string `json:"env_var"`
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
	Active     bool   `json:"active"`
	Connected  *bool  `json:"connected,omitempty"` // nil unless --check
}

var providerEnvVars = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers and their status",
	Long: `List the supported providers, their configuration state, and
optionally whether they are reachable.

Examples:
  proseforge providers           # list providers
  proseforge providers --check   # verify connectivity (makes API calls)
  proseforge providers --json    # JSON output for scripting`,
	RunE: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.Flags().BoolVar(&providersJSON, "json", false, "Output as JSON")
	providersCmd.Flags().BoolVar(&providersCheck, "check", false, "Verify connectivity with each configured provider")
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var providers []ProviderInfo
	for _, name := range config.ProviderNames() {
		settings := cfg.ProviderSettings(name)
		info := ProviderInfo{
			Name:       name,
			EnvVar:     providerEnvVars[name],
			Model:      settings.Model,
			Configured: settings.APIKey != "",
			Active:     cfg.Provider == name,
		}

		if providersCheck && info.Configured {
			client, err := llm.NewClient(cfg, name)
			if err == nil {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				ok := client.VerifyConnectivity(ctx)
				cancel()
				client.Release()
				info.Connected = &ok
			}
		}

		providers = append(providers, info)
	}

	if providersJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(providers)
	}

	styles := ui.DefaultStyles()
	maxLen := 0
	for _, p := range providers {
		if len(p.Name) > maxLen {
			maxLen = len(p.Name)
		}
	}

	for _, p := range providers {
		marker := "  "
		if p.Active {
			marker = "* "
		}

		var details []string
		if p.Configured {
			details = append(details, "model: "+p.Model)
		} else {
			details = append(details, styles.Muted.Render(p.EnvVar+" not set"))
		}
		if p.Connected != nil {
			details = append(details, styles.FormatStatus(*p.Connected))
		}

		padding := strings.Repeat(" ", maxLen-len(p.Name))
		fmt.Printf("%s%s%s  %s\n", marker, p.Name, padding, strings.Join(details, ", "))
	}

	fmt.Println()
	fmt.Println(styles.Muted.Render("* active provider; switch with --provider or the config file"))
	return nil
}
