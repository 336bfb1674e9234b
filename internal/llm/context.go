package llm

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// contextStore holds a client's prepared manuscript context. The text is
// replaced wholesale by each prepare call and read as an immutable snapshot
// when a stream opens: a stream already in flight keeps the snapshot it
// started with even if the context is replaced mid-stream.
type contextStore struct {
	mu     sync.Mutex
	text   string
	loaded bool
}

func (s *contextStore) set(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.loaded = true
}

func (s *contextStore) snapshot() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.loaded
}

func (s *contextStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = ""
	s.loaded = false
}

// loadContext reads a manuscript file into the store. Failures are soft:
// they land in the result and leave the store unset.
func loadContext(store *contextStore, path string, spec BudgetSpec, estimate func(string) int) PrepareResult {
	var result PrepareResult

	data, err := os.ReadFile(path)
	if err != nil {
		store.clear()
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read manuscript: %v", err))
		return result
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		result.Warnings = append(result.Warnings, fmt.Sprintf("manuscript %s is empty", path))
	}

	if tokens := estimate(text); tokens > 0 && spec.ContextWindow > 0 {
		budget := ComputeBudget(tokens, spec)
		if budget.PromptOversized {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"manuscript is ~%d tokens against a %d token context window; output or thinking budget will be clamped",
				tokens, spec.ContextWindow))
		}
	}

	store.set(text)
	return result
}

// buildPrompt assembles the text a provider call sends: the prepared
// manuscript first, then the per-invocation instruction.
func buildPrompt(manuscript, instruction string) string {
	var b strings.Builder
	b.WriteString("=== MANUSCRIPT ===\n")
	b.WriteString(manuscript)
	if !strings.HasSuffix(manuscript, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("=== END MANUSCRIPT ===\n\n")
	b.WriteString(instruction)
	return b.String()
}
