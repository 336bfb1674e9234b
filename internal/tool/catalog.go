// Package tool provides the catalog of editing tools: named instruction
// bundles a run executes against a prepared manuscript.
package tool

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

// Tool is one editing operation the user can run.
type Tool struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Instruction is the template sent to the provider after the
	// manuscript. {language} is replaced with the project language for
	// tools that honor it.
	Instruction string `yaml:"instruction"`

	// Reasoning marks tools that benefit from extended thinking.
	Reasoning bool `yaml:"reasoning,omitempty"`

	// Core tools always operate in the manuscript's own language and
	// ignore the project language setting.
	Core bool `yaml:"core,omitempty"`

	// Source info
	Builtin bool `yaml:"-"`
}

// Render produces the final instruction for this tool. The project language
// applies to non-core tools only.
func (t *Tool) Render(language string) string {
	if t.Core || language == "" {
		return strings.ReplaceAll(t.Instruction, "{language}", "the manuscript's language")
	}
	return strings.ReplaceAll(t.Instruction, "{language}", language)
}

// Validate checks that the tool definition is usable.
func (t *Tool) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tool id is required")
	}
	if t.Instruction == "" {
		return fmt.Errorf("tool %s: instruction is required", t.ID)
	}
	return nil
}

type catalogFile struct {
	Tools []Tool `yaml:"tools"`
}

// Catalog holds the available tools. Built-ins load from the embedded
// definitions; user tools from <configDir>/tools.yaml override built-ins
// with the same id.
type Catalog struct {
	tools map[string]*Tool
	order []string
}

// Load builds the catalog from the embedded built-ins plus an optional user
// tools file. userPath may be empty or point to a missing file.
func Load(userPath string) (*Catalog, error) {
	c := &Catalog{tools: make(map[string]*Tool)}

	var builtin catalogFile
	if err := yaml.Unmarshal(builtinYAML, &builtin); err != nil {
		return nil, fmt.Errorf("parse builtin tools: %w", err)
	}
	for i := range builtin.Tools {
		t := builtin.Tools[i]
		t.Builtin = true
		if err := c.add(&t); err != nil {
			return nil, err
		}
	}

	if userPath != "" {
		data, err := os.ReadFile(userPath)
		if err == nil {
			var user catalogFile
			if err := yaml.Unmarshal(data, &user); err != nil {
				return nil, fmt.Errorf("parse %s: %w", filepath.Base(userPath), err)
			}
			for i := range user.Tools {
				if err := c.add(&user.Tools[i]); err != nil {
					return nil, err
				}
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read user tools: %w", err)
		}
	}

	return c, nil
}

func (c *Catalog) add(t *Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, exists := c.tools[t.ID]; !exists {
		c.order = append(c.order, t.ID)
	}
	c.tools[t.ID] = t
	return nil
}

// Get returns a tool by id.
func (c *Catalog) Get(id string) (*Tool, bool) {
	t, ok := c.tools[id]
	return t, ok
}

// List returns all tools, built-ins first in definition order, then user
// tools sorted by id.
func (c *Catalog) List() []*Tool {
	var builtins, users []*Tool
	for _, id := range c.order {
		t := c.tools[id]
		if t.Builtin {
			builtins = append(builtins, t)
		} else {
			users = append(users, t)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return append(builtins, users...)
}

// IDs returns every tool id in List order.
func (c *Catalog) IDs() []string {
	tools := c.List()
	ids := make([]string, len(tools))
	for i, t := range tools {
		ids[i] = t.ID
	}
	return ids
}
