package tool

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadBuiltins(t *testing.T) {
	catalog, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, id := range []string{"developmental_edit", "line_edit", "copy_edit", "proofread", "critique", "synopsis"} {
		tool, ok := catalog.Get(id)
		if !ok {
			t.Errorf("builtin %s missing", id)
			continue
		}
		if !tool.Builtin {
			t.Errorf("%s should be marked builtin", id)
		}
		if tool.Instruction == "" {
			t.Errorf("%s has no instruction", id)
		}
	}

	if _, ok := catalog.Get("nope"); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestUserToolsOverrideBuiltins(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "tools.yaml")
	userYAML := `tools:
  - id: proofread
    name: Strict Proofread
    description: override
    instruction: Custom proofreading pass.
  - id: blurb
    name: Blurb
    description: back-cover blurb
    instruction: Write a blurb in {language}.
`
	if err := os.WriteFile(userPath, []byte(userYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog, err := Load(userPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	proofread, _ := catalog.Get("proofread")
	if proofread.Builtin {
		t.Error("override should not be marked builtin")
	}
	if proofread.Instruction != "Custom proofreading pass.\n" &&
		proofread.Instruction != "Custom proofreading pass." {
		t.Errorf("override instruction = %q", proofread.Instruction)
	}

	if _, ok := catalog.Get("blurb"); !ok {
		t.Error("user tool not loaded")
	}
}

func TestLoadMissingUserFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing user file should not error: %v", err)
	}
}

func TestLoadRejectsInvalidTool(t *testing.T) {
	userPath := filepath.Join(t.TempDir(), "tools.yaml")
	if err := os.WriteFile(userPath, []byte("tools:\n  - id: broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(userPath); err == nil {
		t.Error("tool without instruction should fail validation")
	}
}

func TestRenderLanguage(t *testing.T) {
	catalog, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	critique, _ := catalog.Get("critique")
	rendered := critique.Render("German")
	if !strings.Contains(rendered, "German") {
		t.Errorf("non-core tool should use the project language: %q", rendered)
	}

	// Core tools ignore the project language.
	lineEdit, _ := catalog.Get("line_edit")
	if strings.Contains(lineEdit.Render("German"), "German") {
		t.Error("core tool must not inject the project language")
	}
}

func TestListOrder(t *testing.T) {
	catalog, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tools := catalog.List()
	if len(tools) < 6 {
		t.Fatalf("List returned %d tools", len(tools))
	}
	if tools[0].ID != "developmental_edit" {
		t.Errorf("first tool = %s, want builtin definition order", tools[0].ID)
	}
	if ids := catalog.IDs(); len(ids) != len(tools) {
		t.Errorf("IDs length %d != List length %d", len(ids), len(tools))
	}
}
