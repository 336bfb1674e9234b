package cmd

import (
	"os"

	"github.com/proseforge/proseforge/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagProvider string
	flagModel    string
	flagDebug    bool
)

var rootCmd = &cobra.Command{
	Use:   "proseforge",
	Short: "Run AI editing passes over a manuscript",
	Long: `proseforge streams manuscript editing passes from an LLM provider.

Examples:
  proseforge run line_edit draft.md         # run a line edit
  proseforge run critique draft.md -r       # critique, show model reasoning
  proseforge tools                          # list available tools
  proseforge models --provider openai       # list provider models
  proseforge providers                      # check provider connectivity`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagProvider, "provider", "p", "", "Provider to use (anthropic, openai, gemini)")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "Model override for the active provider")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Print request details to stderr")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads configuration and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.ApplyOverrides(flagProvider, flagModel)
	return cfg, nil
}
