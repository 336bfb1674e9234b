package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/proseforge/proseforge/internal/artifacts"
	"github.com/proseforge/proseforge/internal/config"
	"github.com/proseforge/proseforge/internal/llm"
	"github.com/proseforge/proseforge/internal/project"
	"github.com/proseforge/proseforge/internal/run"
	"github.com/proseforge/proseforge/internal/signal"
	"github.com/proseforge/proseforge/internal/tool"
	"github.com/proseforge/proseforge/internal/ui"
)

var (
	runReasoning bool
	runNoSave    bool
	runPlain     bool
)

var runCmd = &cobra.Command{
	Use:   "run <tool> <manuscript>",
	Short: "Run an editing tool against a manuscript",
	Long: `Run an editing tool against a manuscript and stream the result.

The manuscript is loaded as context, the tool's instruction is sent to the
configured provider, and output streams to the terminal. Completed output is
saved under the project's output directory. Ctrl-C cancels the run; text
received so far is kept.

Examples:
  proseforge run line_edit draft.md
  proseforge run critique draft.md --reasoning
  proseforge run proofread draft.md --plain > report.md`,
	Args: cobra.ExactArgs(2),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&runReasoning, "reasoning", "r", false, "Show the model's reasoning while it streams")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Don't save the output to the project output dir")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "Stream raw text instead of rendering markdown")
}

func runRun(cmd *cobra.Command, args []string) error {
	toolID, manuscript := args[0], args[1]
	styles := ui.DefaultStyles()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	proj, err := project.Resolve(cfg.Project.Dir, cfg.Project.Language)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	t, ok := catalog.Get(toolID)
	if !ok {
		return unknownToolError(toolID, catalog)
	}

	client, err := llm.NewClient(cfg, cfg.Provider)
	if err != nil {
		return err
	}
	defer client.Release()

	ctx, stop := signal.NotifyContext()
	defer stop()

	prep := client.PrepareContext(ctx, proj.ManuscriptPath(manuscript))
	for _, w := range prep.Warnings {
		ui.ShowWarning(w)
	}
	if !prep.OK() {
		return fmt.Errorf("%s", strings.Join(prep.Errors, "; "))
	}

	outputDir := ""
	if !runNoSave {
		if outputDir, err = proj.OutputDir(); err != nil {
			ui.ShowWarning(err.Error())
			outputDir = ""
		}
	}

	// Plain mode streams deltas as they arrive; otherwise output is
	// buffered and rendered as markdown once the run completes.
	live := runPlain || !isatty.IsTerminal(os.Stdout.Fd())

	var usage *llm.Usage
	sink := func(ev run.Event) {
		switch ev.Type {
		case llm.EventRunStarted:
			fmt.Fprintf(os.Stderr, "%s %s via %s\n",
				styles.Primary.Render("▶"), t.Name, styles.Muted.Render(client.Name()))
		case llm.EventTextDelta:
			if live {
				fmt.Print(ev.Text)
			}
		case llm.EventReasoningDelta:
			fmt.Fprint(os.Stderr, styles.Muted.Render(ev.Text))
		case llm.EventBudgetWarning:
			ui.ShowWarning(ev.Text)
		case llm.EventRateLimit:
			ui.ShowWarning(fmt.Sprintf("rate limited; retry %d/%d in %.0fs",
				ev.RetryAttempt, ev.RetryMaxAttempts, ev.RetryWaitSecs))
		case llm.EventError:
			ui.ShowWarning(ev.Err.Error())
		case llm.EventUsage:
			usage = ev.Use
		case llm.EventRunCompleted:
			if ev.Use != nil {
				usage = ev.Use
			}
		case llm.EventRunError:
			ui.ShowError(ev.Err.Error())
		}
	}

	registry := run.NewRegistry(sink, artifacts.NewCache())

	id, err := registry.Start(ctx, run.StartRequest{
		ToolID: t.ID,
		Client: client,
		Request: llm.Request{
			Instruction:      t.Render(proj.Language),
			UseReasoning:     t.Reasoning,
			IncludeReasoning: runReasoning && t.Reasoning,
			Debug:            flagDebug,
		},
		Timeout:   providerTimeout(cfg),
		OutputDir: outputDir,
	})
	if err != nil {
		return err
	}

	// Ctrl-C cancels the run cooperatively; Wait uses the command context
	// so the final snapshot is still collected after cancellation.
	go func() {
		<-ctx.Done()
		registry.Cancel(id)
	}()

	if err := registry.Wait(cmd.Context(), id); err != nil {
		return err
	}

	snap, _ := registry.Get(id)
	switch snap.Status {
	case run.StatusCompleted:
		if live {
			fmt.Println()
		} else {
			fmt.Println(ui.RenderMarkdown(snap.Text, ui.TerminalWidth()))
		}
		if snap.ArtifactPath != "" {
			fmt.Fprintln(os.Stderr, styles.Muted.Render("saved "+snap.ArtifactPath))
		}
		if usage != nil {
			fmt.Fprintln(os.Stderr, styles.Muted.Render(formatUsage(usage)))
		}
		return nil
	case run.StatusCancelled:
		fmt.Fprintln(os.Stderr, styles.Warning.Render("\ncancelled"))
		if snap.Text != "" && !live {
			fmt.Println(snap.Text)
		}
		return nil
	default:
		return fmt.Errorf("%s", snap.Error)
	}
}

func formatUsage(u *llm.Usage) string {
	s := fmt.Sprintf("tokens: %d in, %d out", u.InputTokens, u.OutputTokens)
	if u.ReasoningTokens > 0 {
		s += fmt.Sprintf(" (%d reasoning)", u.ReasoningTokens)
	}
	return s
}

func providerTimeout(cfg *config.Config) time.Duration {
	if settings := cfg.ProviderSettings(cfg.Provider); settings != nil {
		return settings.RequestTimeout()
	}
	return 0
}

// loadCatalog loads the tool catalog including user tools from the config dir.
func loadCatalog() (*tool.Catalog, error) {
	userPath := ""
	if dir, err := config.GetConfigDir(); err == nil {
		userPath = filepath.Join(dir, "tools.yaml")
	}
	return tool.Load(userPath)
}

// unknownToolError suggests close matches for a mistyped tool id.
func unknownToolError(id string, catalog *tool.Catalog) error {
	matches := fuzzy.Find(id, catalog.IDs())
	if len(matches) > 0 {
		var suggestions []string
		for i, m := range matches {
			if i >= 3 {
				break
			}
			suggestions = append(suggestions, m.Str)
		}
		return fmt.Errorf("unknown tool %q, did you mean: %s", id, strings.Join(suggestions, ", "))
	}
	return fmt.Errorf("unknown tool %q, run 'proseforge tools' to list tools", id)
}
