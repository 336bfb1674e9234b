package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proseforge/proseforge/internal/ui"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools [id]",
	Short: "List available editing tools",
	Long: `List the editing tools available to run.

Built-in tools ship with proseforge; user tools load from tools.yaml in the
config directory and override built-ins with the same id.

Examples:
  proseforge tools              # list all tools
  proseforge tools line_edit    # show one tool's instruction
  proseforge tools --json       # JSON output for scripting`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "Output as JSON")
}

func runTools(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		t, ok := catalog.Get(args[0])
		if !ok {
			return unknownToolError(args[0], catalog)
		}
		if toolsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		}
		styles := ui.DefaultStyles()
		fmt.Printf("%s  %s\n", styles.Primary.Render(t.ID), t.Description)
		if t.Reasoning {
			fmt.Println(styles.Muted.Render("uses extended thinking"))
		}
		fmt.Printf("\n%s\n", t.Instruction)
		return nil
	}

	tools := catalog.List()
	if toolsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tools)
	}

	styles := ui.DefaultStyles()
	maxLen := 0
	for _, t := range tools {
		if len(t.ID) > maxLen {
			maxLen = len(t.ID)
		}
	}
	for _, t := range tools {
		marker := "  "
		if !t.Builtin {
			marker = "* "
		}
		padding := strings.Repeat(" ", maxLen-len(t.ID))
		fmt.Printf("%s%s%s  %s\n", marker, styles.Primary.Render(t.ID), padding, t.Description)
	}
	fmt.Println()
	fmt.Println(styles.Muted.Render("* user-defined; run 'proseforge run <tool> <manuscript>' to execute"))
	return nil
}
