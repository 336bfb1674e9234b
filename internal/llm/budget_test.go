package llm

import "testing"

func TestComputeBudget(t *testing.T) {
	spec := BudgetSpec{
		ContextWindow:            200_000,
		MaxOutputHardLimit:       32_000,
		SupportsReasoning:        true,
		PreferredReasoningBudget: 20_000,
		DesiredVisibleOutput:     8_000,
	}

	tests := []struct {
		name          string
		promptTokens  int
		spec          BudgetSpec
		wantAvailable int
		wantMaxOutput int
		wantReasoning int
		wantOversized bool
	}{
		{
			name:          "small prompt gets full budgets",
			promptTokens:  10_000,
			spec:          spec,
			wantAvailable: 190_000,
			wantMaxOutput: 32_000,
			wantReasoning: 20_000,
			wantOversized: false,
		},
		{
			name:          "large prompt squeezes reasoning",
			promptTokens:  190_000,
			spec:          spec,
			wantAvailable: 10_000,
			wantMaxOutput: 10_000,
			wantReasoning: 2_000,
			wantOversized: true,
		},
		{
			name:          "prompt exceeds context window",
			promptTokens:  250_000,
			spec:          spec,
			wantAvailable: 0,
			wantMaxOutput: 0,
			wantReasoning: 0,
			wantOversized: true,
		},
		{
			name:          "prompt leaves less than desired visible output",
			promptTokens:  195_000,
			spec:          spec,
			wantAvailable: 5_000,
			wantMaxOutput: 5_000,
			wantReasoning: 0,
			wantOversized: true,
		},
		{
			name:         "reasoning disabled",
			promptTokens: 10_000,
			spec: BudgetSpec{
				ContextWindow:      200_000,
				MaxOutputHardLimit: 32_000,
			},
			wantAvailable: 190_000,
			wantMaxOutput: 32_000,
			wantReasoning: 0,
			wantOversized: false,
		},
		{
			name:         "no hard limit uses available window",
			promptTokens: 100_000,
			spec: BudgetSpec{
				ContextWindow: 200_000,
			},
			wantAvailable: 100_000,
			wantMaxOutput: 100_000,
			wantReasoning: 0,
			wantOversized: false,
		},
		{
			name:         "reasoning clamped below max output",
			promptTokens: 0,
			spec: BudgetSpec{
				ContextWindow:            10_000,
				MaxOutputHardLimit:       5_000,
				SupportsReasoning:        true,
				PreferredReasoningBudget: 8_000,
				DesiredVisibleOutput:     0,
			},
			wantAvailable: 10_000,
			wantMaxOutput: 5_000,
			wantReasoning: 4_999,
			wantOversized: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBudget(tt.promptTokens, tt.spec)
			if got.Available != tt.wantAvailable {
				t.Errorf("Available = %d, want %d", got.Available, tt.wantAvailable)
			}
			if got.MaxOutput != tt.wantMaxOutput {
				t.Errorf("MaxOutput = %d, want %d", got.MaxOutput, tt.wantMaxOutput)
			}
			if got.ReasoningBudget != tt.wantReasoning {
				t.Errorf("ReasoningBudget = %d, want %d", got.ReasoningBudget, tt.wantReasoning)
			}
			if got.PromptOversized != tt.wantOversized {
				t.Errorf("PromptOversized = %v, want %v", got.PromptOversized, tt.wantOversized)
			}
			if got.ReasoningBudget > 0 && got.ReasoningBudget >= got.MaxOutput {
				t.Errorf("reasoning budget %d must stay below max output %d",
					got.ReasoningBudget, got.MaxOutput)
			}
		})
	}
}

func TestRequestSpec(t *testing.T) {
	spec := BudgetSpec{
		ContextWindow:            200_000,
		MaxOutputHardLimit:       32_000,
		SupportsReasoning:        true,
		PreferredReasoningBudget: 20_000,
		DesiredVisibleOutput:     8_000,
	}

	t.Run("reasoning request keeps the spec", func(t *testing.T) {
		if got := requestSpec(spec, true); got != spec {
			t.Errorf("requestSpec(true) = %+v, want unchanged", got)
		}
	})

	t.Run("non-reasoning request drops the thinking reservation", func(t *testing.T) {
		got := requestSpec(spec, false)
		if got.SupportsReasoning || got.PreferredReasoningBudget != 0 {
			t.Errorf("requestSpec(false) = %+v, want reasoning off", got)
		}
		budget := ComputeBudget(10_000, got)
		if budget.ReasoningBudget != 0 {
			t.Errorf("ReasoningBudget = %d, want 0", budget.ReasoningBudget)
		}
		if budget.MaxOutput != 32_000 {
			t.Errorf("MaxOutput = %d, want 32000", budget.MaxOutput)
		}
	})
}

func TestEstimateTokensHeuristic(t *testing.T) {
	if got := estimateTokensHeuristic(""); got != 1 {
		t.Errorf("empty text = %d, want 1", got)
	}
	if got := estimateTokensHeuristic("abcdefgh"); got != 3 {
		t.Errorf("8 chars = %d, want 3", got)
	}
}
