// Package artifacts tracks output files produced by completed runs, keyed by
// the tool that produced them.
package artifacts

import (
	"sync"
	"time"
)

// Artifact is one recorded output file.
type Artifact struct {
	Tool      string
	RunID     string
	Path      string
	CreatedAt time.Time
}

// Cache maps tool ids to the artifacts their runs have produced. All methods
// are safe for concurrent use; mutations are serialized, so no interleaving
// can corrupt the per-tool lists.
type Cache struct {
	mu      sync.Mutex
	byTool  map[string][]Artifact
	seen    map[string]bool // tool+"\x00"+path
	ordered []string        // tool ids in first-recorded order
}

func NewCache() *Cache {
	return &Cache{
		byTool: make(map[string][]Artifact),
		seen:   make(map[string]bool),
	}
}

// Record adds an artifact under its tool. Recording the same path for the
// same tool again is a no-op; the original position is kept.
func (c *Cache) Record(tool, runID, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := tool + "\x00" + path
	if c.seen[key] {
		return
	}
	c.seen[key] = true

	if _, ok := c.byTool[tool]; !ok {
		c.ordered = append(c.ordered, tool)
	}
	c.byTool[tool] = append(c.byTool[tool], Artifact{
		Tool:      tool,
		RunID:     runID,
		Path:      path,
		CreatedAt: time.Now(),
	})
}

// List returns the artifacts recorded for a tool in recording order. The
// returned slice is a copy.
func (c *Cache) List(tool string) []Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.byTool[tool]
	out := make([]Artifact, len(items))
	copy(out, items)
	return out
}

// Tools returns the tool ids that have recorded artifacts, in the order
// their first artifact was recorded.
func (c *Cache) Tools() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.ordered))
	for _, tool := range c.ordered {
		if len(c.byTool[tool]) > 0 {
			out = append(out, tool)
		}
	}
	return out
}

// Clear forgets the artifacts for one tool. The files themselves are left
// on disk.
func (c *Cache) Clear(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range c.byTool[tool] {
		delete(c.seen, a.Tool+"\x00"+a.Path)
	}
	delete(c.byTool, tool)
}

// ClearAll forgets every recorded artifact.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byTool = make(map[string][]Artifact)
	c.seen = make(map[string]bool)
	c.ordered = nil
}
