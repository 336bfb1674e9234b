// Package project resolves where a manuscript project lives on disk and
// where run output is written.
package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// Project is a resolved project directory.
type Project struct {
	Dir      string
	Language string
}

// Resolve builds a project from configuration, falling back to the current
// directory when no project dir is configured.
func Resolve(dir, language string) (*Project, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve project dir: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project dir: %w", err)
	}
	if language == "" {
		language = "English"
	}
	return &Project{Dir: abs, Language: language}, nil
}

// OutputDir returns the directory run artifacts are written to, creating it
// if needed.
func (p *Project) OutputDir() (string, error) {
	dir := filepath.Join(p.Dir, "output")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	return dir, nil
}

// ManuscriptPath resolves a manuscript argument against the project dir.
// Absolute paths pass through unchanged.
func (p *Project) ManuscriptPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}
