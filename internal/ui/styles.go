// Package ui provides terminal styling and markdown rendering for command
// output.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for command output.
type Theme struct {
	Primary lipgloss.Color // accent (tool names, run ids)
	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Muted   lipgloss.Color // dimmed/secondary text
}

// DefaultTheme returns the default color theme (gruvbox).
func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.Color("#b8bb26"),
		Success: lipgloss.Color("#b8bb26"),
		Error:   lipgloss.Color("#fb4934"),
		Warning: lipgloss.Color("#fabd2f"),
		Muted:   lipgloss.Color("#928374"),
	}
}

// Styles holds ready-to-use lipgloss styles.
type Styles struct {
	Primary lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
}

func NewStyles(theme *Theme) *Styles {
	return &Styles{
		Primary: lipgloss.NewStyle().Foreground(theme.Primary).Bold(true),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
	}
}

var defaultStyles = NewStyles(DefaultTheme())

// DefaultStyles returns the process-wide styles.
func DefaultStyles() *Styles {
	return defaultStyles
}

// ShowError prints a styled error line to stderr.
func ShowError(msg string) {
	fmt.Fprintln(os.Stderr, defaultStyles.Error.Render("Error: "+msg))
}

// ShowWarning prints a styled warning line to stderr.
func ShowWarning(msg string) {
	fmt.Fprintln(os.Stderr, defaultStyles.Warning.Render("Warning: "+msg))
}

// FormatStatus renders ok/fail markers for status tables.
func (s *Styles) FormatStatus(ok bool) string {
	if ok {
		return s.Success.Render("✓ connected")
	}
	return s.Error.Render("✗ unavailable")
}
