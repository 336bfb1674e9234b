package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDefaults(t *testing.T) {
	p, err := Resolve("", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cwd, _ := os.Getwd()
	if p.Dir != cwd {
		t.Errorf("Dir = %s, want cwd %s", p.Dir, cwd)
	}
	if p.Language != "English" {
		t.Errorf("Language = %s, want English default", p.Language)
	}
}

func TestOutputDir(t *testing.T) {
	dir := t.TempDir()
	p, err := Resolve(dir, "German")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	out, err := p.OutputDir()
	if err != nil {
		t.Fatalf("OutputDir: %v", err)
	}
	if want := filepath.Join(dir, "output"); out != want {
		t.Errorf("dir = %s, want %s", out, want)
	}

	// The dir is created as a side effect.
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestManuscriptPath(t *testing.T) {
	p := &Project{Dir: "/projects/novel"}
	if got := p.ManuscriptPath("draft.md"); got != filepath.Join("/projects/novel", "draft.md") {
		t.Errorf("relative path = %s", got)
	}
	abs := filepath.Join(string(filepath.Separator), "elsewhere", "draft.md")
	if got := p.ManuscriptPath(abs); got != abs {
		t.Errorf("absolute path changed: %s", got)
	}
}
