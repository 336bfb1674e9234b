package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proseforge/proseforge/internal/artifacts"
	"github.com/proseforge/proseforge/internal/project"
	"github.com/proseforge/proseforge/internal/ui"
)

var (
	artifactsJSON  bool
	artifactsClear bool
)

// artifactEntry is the JSON shape for one saved run output.
type artifactEntry struct {
	Tool  string `json:"tool"`
	RunID string `json:"run_id"`
	Path  string `json:"path"`
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts [tool]",
	Short: "List or clear saved run outputs",
	Long: `List the run outputs saved under the project's output directory,
optionally limited to one tool.

Examples:
  proseforge artifacts                  # list all saved outputs
  proseforge artifacts line_edit        # outputs from one tool
  proseforge artifacts --clear          # delete all saved outputs
  proseforge artifacts line_edit --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runArtifacts,
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
	artifactsCmd.Flags().BoolVar(&artifactsJSON, "json", false, "Output as JSON")
	artifactsCmd.Flags().BoolVar(&artifactsClear, "clear", false, "Delete the listed outputs")
}

func runArtifacts(cmd *cobra.Command, args []string) error {
	toolFilter := ""
	if len(args) == 1 {
		toolFilter = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	proj, err := project.Resolve(cfg.Project.Dir, cfg.Project.Language)
	if err != nil {
		return err
	}

	cache, err := loadArtifactCache(filepath.Join(proj.Dir, "output"))
	if err != nil {
		return err
	}

	tools := cache.Tools()
	if toolFilter != "" {
		tools = []string{toolFilter}
	}

	if artifactsClear {
		removed := 0
		for _, tool := range tools {
			for _, a := range cache.List(tool) {
				if err := os.Remove(a.Path); err != nil {
					ui.ShowWarning(fmt.Sprintf("failed to remove %s: %v", a.Path, err))
					continue
				}
				removed++
			}
		}
		if toolFilter != "" {
			cache.Clear(toolFilter)
		} else {
			cache.ClearAll()
		}
		fmt.Printf("Removed %d artifact(s).\n", removed)
		return nil
	}

	var entries []artifactEntry
	for _, tool := range tools {
		for _, a := range cache.List(tool) {
			entries = append(entries, artifactEntry{Tool: a.Tool, RunID: a.RunID, Path: a.Path})
		}
	}

	if artifactsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No artifacts found.")
		return nil
	}

	styles := ui.DefaultStyles()
	for _, e := range entries {
		fmt.Printf("  %s  %s %s\n",
			styles.Primary.Render(e.Tool), e.RunID, styles.Muted.Render(e.Path))
	}
	return nil
}

// loadArtifactCache rebuilds an artifact cache from the output dir. File
// names follow <tool>-<runid>.md; anything else is skipped. A missing dir
// yields an empty cache, not an error.
func loadArtifactCache(dir string) (*artifacts.Cache, error) {
	cache := artifacts.NewCache()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil
		}
		return nil, err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ".md")
		idx := strings.LastIndex(base, "-")
		if idx <= 0 {
			continue
		}
		cache.Record(base[:idx], base[idx+1:], filepath.Join(dir, e.Name()))
	}
	return cache, nil
}
