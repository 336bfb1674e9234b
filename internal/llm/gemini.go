package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/genai"
)

// GeminiClient implements Client using the Google Gemini API. The stream
// carries text deltas; aggregate usage counts appear only on the final
// response, so normalization holds the last response and emits usage once
// the iterator ends.
type GeminiClient struct {
	cfg     ClientConfig
	spec    BudgetSpec
	context contextStore
}

func NewGeminiClient(cfg ClientConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	return &GeminiClient{cfg: cfg, spec: cfg.budgetSpec()}
}

func (c *GeminiClient) Name() string {
	if c.spec.SupportsReasoning {
		return fmt.Sprintf("Gemini (%s, thinkingBudget=%d)", c.cfg.Model, c.cfg.ReasoningBudget)
	}
	return fmt.Sprintf("Gemini (%s)", c.cfg.Model)
}

func (c *GeminiClient) ProviderID() string { return "gemini" }

func (c *GeminiClient) newClient(ctx context.Context) (*genai.Client, error) {
	if c.cfg.APIKey == "" {
		return nil, &ConfigurationError{Provider: "gemini", EnvVar: "GEMINI_API_KEY"}
	}
	return genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.cfg.APIKey})
}

func (c *GeminiClient) VerifyConnectivity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := c.newClient(ctx)
	if err != nil {
		return false
	}
	_, err = client.Models.CountTokens(ctx, c.cfg.Model, genai.Text("ping"), nil)
	return err == nil
}

func (c *GeminiClient) PrepareContext(ctx context.Context, path string) PrepareResult {
	estimate := func(text string) int {
		if n := c.EstimateTokens(ctx, text); n >= 0 {
			return n
		}
		return estimateTokensHeuristic(text)
	}
	return loadContext(&c.context, path, c.spec, estimate)
}

func (c *GeminiClient) EstimateTokens(ctx context.Context, text string) int {
	client, err := c.newClient(ctx)
	if err != nil {
		return -1
	}
	resp, err := client.Models.CountTokens(ctx, c.cfg.Model, genai.Text(text), nil)
	if err != nil {
		return -1
	}
	return int(resp.TotalTokens)
}

// ListModels returns the curated Gemini model list; the API offers no
// listing endpoint comparable to the other backends.
func (c *GeminiClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	for _, id := range ProviderModels["gemini"] {
		models = append(models, ModelInfo{ID: id, InputLimit: ContextWindowForModel(id)})
	}
	return models, nil
}

func (c *GeminiClient) Stream(ctx context.Context, req Request) (Stream, error) {
	if c.cfg.APIKey == "" {
		return nil, &ConfigurationError{Provider: "gemini", EnvVar: "GEMINI_API_KEY"}
	}
	manuscript, ok := c.context.snapshot()
	if !ok {
		return nil, &ContextNotPreparedError{Provider: "gemini"}
	}

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		client, err := c.newClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}

		prompt := buildPrompt(manuscript, req.Instruction)

		promptTokens := c.EstimateTokens(ctx, prompt)
		if promptTokens < 0 {
			promptTokens = estimateTokensHeuristic(prompt)
		}
		spec := requestSpec(c.spec, req.UseReasoning)
		budget := ComputeBudget(promptTokens, spec)
		if budget.PromptOversized {
			events <- Event{Type: EventBudgetWarning, Text: fmt.Sprintf(
				"prompt is %d tokens; output clamped to %d tokens", budget.PromptTokens, budget.MaxOutput)}
		}

		config := &genai.GenerateContentConfig{}
		if budget.MaxOutput > 0 {
			config.MaxOutputTokens = int32(budget.MaxOutput)
		}
		if spec.SupportsReasoning && budget.ReasoningBudget > 0 {
			thinkingBudget := int32(budget.ReasoningBudget)
			config.ThinkingConfig = &genai.ThinkingConfig{
				ThinkingBudget: &thinkingBudget,
			}
		}

		if req.Debug {
			fmt.Fprintln(os.Stderr, "=== DEBUG: Gemini Stream Request ===")
			fmt.Fprintf(os.Stderr, "Provider: %s\n", c.Name())
			fmt.Fprintf(os.Stderr, "Instruction: %s\n", truncate(req.Instruction, 200))
			fmt.Fprintf(os.Stderr, "Prompt tokens: %d, max output: %d, thinking: %d\n",
				budget.PromptTokens, budget.MaxOutput, budget.ReasoningBudget)
			fmt.Fprintln(os.Stderr, "====================================")
		}

		contents := genai.Text(prompt)
		model := chooseModel(req.Model, c.cfg.Model)

		var lastResp *genai.GenerateContentResponse
		for resp, err := range client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				return fmt.Errorf("gemini streaming error: %w", err)
			}
			lastResp = resp
			if text := resp.Text(); text != "" {
				events <- Event{Type: EventTextDelta, Text: text}
			}
		}

		if lastResp != nil && lastResp.UsageMetadata != nil && lastResp.UsageMetadata.TotalTokenCount > 0 {
			events <- Event{Type: EventUsage, Use: &Usage{
				InputTokens:     int(lastResp.UsageMetadata.PromptTokenCount),
				OutputTokens:    int(lastResp.UsageMetadata.CandidatesTokenCount),
				ReasoningTokens: int(lastResp.UsageMetadata.ThoughtsTokenCount),
			}}
		}
		events <- Event{Type: EventDone}
		return nil
	}), nil
}

func (c *GeminiClient) Release() {
	c.context.clear()
}
