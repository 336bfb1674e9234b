package artifacts

import (
	"fmt"
	"sync"
	"testing"
)

func TestCacheRecordAndList(t *testing.T) {
	c := NewCache()
	c.Record("line_edit", "run1", "/out/line_edit-run1.md")
	c.Record("line_edit", "run2", "/out/line_edit-run2.md")
	c.Record("critique", "run3", "/out/critique-run3.md")

	got := c.List("line_edit")
	if len(got) != 2 {
		t.Fatalf("List returned %d artifacts, want 2", len(got))
	}
	if got[0].RunID != "run1" || got[1].RunID != "run2" {
		t.Errorf("order = [%s %s], want [run1 run2]", got[0].RunID, got[1].RunID)
	}

	if got := c.List("unknown"); len(got) != 0 {
		t.Errorf("unknown tool returned %d artifacts", len(got))
	}

	tools := c.Tools()
	if len(tools) != 2 || tools[0] != "line_edit" || tools[1] != "critique" {
		t.Errorf("Tools = %v, want [line_edit critique]", tools)
	}
}

func TestCacheDeduplicates(t *testing.T) {
	c := NewCache()
	c.Record("proofread", "run1", "/out/a.md")
	c.Record("proofread", "run1", "/out/a.md")
	c.Record("proofread", "run2", "/out/b.md")

	if got := c.List("proofread"); len(got) != 2 {
		t.Errorf("List returned %d artifacts, want 2 after dedup", len(got))
	}

	// The same path under a different tool is a distinct entry.
	c.Record("critique", "run3", "/out/a.md")
	if got := c.List("critique"); len(got) != 1 {
		t.Errorf("critique list = %d, want 1", len(got))
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.Record("line_edit", "run1", "/out/a.md")
	c.Record("critique", "run2", "/out/b.md")

	c.Clear("line_edit")
	if got := c.List("line_edit"); len(got) != 0 {
		t.Errorf("cleared tool still has %d artifacts", len(got))
	}
	if got := c.List("critique"); len(got) != 1 {
		t.Errorf("other tool affected by Clear: %d artifacts", len(got))
	}

	// After Clear the same path can be recorded again.
	c.Record("line_edit", "run9", "/out/a.md")
	if got := c.List("line_edit"); len(got) != 1 {
		t.Errorf("re-record after Clear = %d artifacts, want 1", len(got))
	}

	c.ClearAll()
	if tools := c.Tools(); len(tools) != 0 {
		t.Errorf("Tools after ClearAll = %v", tools)
	}
}

func TestCacheConcurrentRecords(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Record("line_edit", fmt.Sprintf("run%d", i), fmt.Sprintf("/out/%d.md", i))
		}(i)
	}
	wg.Wait()

	if got := c.List("line_edit"); len(got) != 50 {
		t.Errorf("List returned %d artifacts, want 50", len(got))
	}
}
