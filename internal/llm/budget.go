package llm

// BudgetSpec holds the provider-declared limits a budget is computed
// against. Immutable once the owning client is constructed.
type BudgetSpec struct {
	ContextWindow            int
	MaxOutputHardLimit       int
	SupportsReasoning        bool
	PreferredReasoningBudget int // the thinking budget the provider config asks for
	DesiredVisibleOutput     int // tokens reserved for visible output when reasoning is on
}

// Budget is the computed allocation of a context window among prompt,
// reasoning, and visible output for one call. Derived per call, never
// persisted.
type Budget struct {
	PromptTokens    int
	ContextWindow   int
	Available       int
	MaxOutput       int
	ReasoningBudget int
	// PromptOversized means the prompt either exceeds the context window or
	// ate into the preferred thinking budget. The call still proceeds with
	// the clamped budget; callers surface this as a soft warning.
	PromptOversized bool
}

// ComputeBudget turns a prompt's token count and a provider's declared
// limits into an admissible (max output, reasoning budget) pair. Pure and
// deterministic; never fails. Providers silently truncate or error when a
// request exceeds the context window, so this runs before every call.
func ComputeBudget(promptTokens int, spec BudgetSpec) Budget {
	b := Budget{
		PromptTokens:  promptTokens,
		ContextWindow: spec.ContextWindow,
	}

	b.Available = spec.ContextWindow - promptTokens
	if b.Available < 0 {
		b.Available = 0
		b.PromptOversized = true
	}

	b.MaxOutput = b.Available
	if spec.MaxOutputHardLimit > 0 && b.MaxOutput > spec.MaxOutputHardLimit {
		b.MaxOutput = spec.MaxOutputHardLimit
	}

	if !spec.SupportsReasoning {
		return b
	}

	// Reasoning gets whatever max output leaves after the desired visible
	// output. If the desired visible output alone exceeds max output, the
	// reasoning budget clamps to zero rather than going negative.
	reasoning := b.MaxOutput - spec.DesiredVisibleOutput
	if reasoning < 0 {
		reasoning = 0
	}
	if reasoning < spec.PreferredReasoningBudget {
		// The prompt ate into the thinking budget even though it fits the
		// context window.
		b.PromptOversized = true
	}
	if reasoning > spec.PreferredReasoningBudget {
		reasoning = spec.PreferredReasoningBudget
	}
	// Always leave headroom for visible output.
	if reasoning >= b.MaxOutput && reasoning > 0 {
		reasoning = b.MaxOutput - 1
	}
	b.ReasoningBudget = reasoning

	return b
}

// requestSpec adapts a client's budget spec to one call. A request that does
// not ask for reasoning drops the thinking reservation, so the whole output
// budget goes to visible text even on a reasoning-configured client.
func requestSpec(spec BudgetSpec, useReasoning bool) BudgetSpec {
	if useReasoning {
		return spec
	}
	spec.SupportsReasoning = false
	spec.PreferredReasoningBudget = 0
	return spec
}

// estimateTokensHeuristic is the conservative fallback when a backend has
// no token counting endpoint: roughly four characters per token.
func estimateTokensHeuristic(text string) int {
	return len(text)/4 + 1
}
