package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/proseforge/proseforge/internal/cache"
	"github.com/proseforge/proseforge/internal/config"
	"github.com/proseforge/proseforge/internal/llm"
)

var (
	modelsJSON    bool
	modelsFilter  string
	modelsRefresh bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models from a provider",
	Long: `List available models from a provider.

Queries the provider's models API and caches the result for 30 minutes.
Providers without a listing API fall back to a curated list.

Examples:
  proseforge models                       # models from the active provider
  proseforge models --provider openai     # models from OpenAI
  proseforge models --filter sonnet       # fuzzy-filter the list
  proseforge models --json                # output as JSON`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
	modelsCmd.Flags().StringVarP(&modelsFilter, "filter", "f", "", "Fuzzy-filter model ids")
	modelsCmd.Flags().BoolVar(&modelsRefresh, "refresh", false, "Bypass the model cache")
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	providerID := cfg.Provider

	models, err := fetchModels(cfg, providerID)
	if err != nil {
		return err
	}

	if modelsFilter != "" {
		ids := make([]string, len(models))
		for i, m := range models {
			ids[i] = m.ID
		}
		matches := fuzzy.Find(modelsFilter, ids)
		filtered := make([]cache.Model, 0, len(matches))
		for _, match := range matches {
			filtered = append(filtered, models[match.Index])
		}
		models = filtered
	}

	if len(models) == 0 {
		fmt.Println("No models found.")
		return nil
	}

	if modelsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	fmt.Printf("Available models from %s:\n\n", providerID)
	for _, m := range models {
		line := "  " + m.ID
		if m.DisplayName != "" {
			line += fmt.Sprintf(" (%s)", m.DisplayName)
		}
		if ctxStr := llm.FormatTokenCount(m.InputLimit); ctxStr != "" {
			line += fmt.Sprintf(" [%s input]", ctxStr)
		}
		fmt.Println(line)
	}
	fmt.Printf("\nTo use a model:\n  proseforge run <tool> <manuscript> --model <model-name>\n")
	return nil
}

// fetchModels returns a provider's models, serving from the listing cache
// when fresh and falling back to the curated list when the API fails.
func fetchModels(cfg *config.Config, providerID string) ([]cache.Model, error) {
	if !modelsRefresh {
		if listing, err := cache.ReadListing(providerID); err == nil && listing.Fresh() {
			return listing.Models, nil
		}
	}

	client, err := llm.NewClient(cfg, providerID)
	if err != nil {
		return nil, err
	}
	defer client.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	infos, err := client.ListModels(ctx)
	if err != nil {
		if static, ok := llm.ProviderModels[providerID]; ok {
			models := make([]cache.Model, 0, len(static))
			for _, id := range static {
				models = append(models, cache.Model{ID: id, InputLimit: llm.ContextWindowForModel(id)})
			}
			return models, nil
		}
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]cache.Model, 0, len(infos))
	for _, info := range infos {
		models = append(models, cache.Model{
			ID:          info.ID,
			DisplayName: info.DisplayName,
			InputLimit:  info.InputLimit,
		})
	}
	// Cache write is best effort.
	_ = cache.WriteListing(providerID, models)
	return models, nil
}
