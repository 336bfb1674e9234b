package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Client using the Anthropic Messages API.
// Its wire protocol interleaves thinking segments with visible text inside
// one stream; both are normalized here, and thinking is dropped unless the
// request opts in.
type AnthropicClient struct {
	client  *anthropic.Client
	cfg     ClientConfig
	spec    BudgetSpec
	context contextStore
}

func NewAnthropicClient(cfg ClientConfig) *AnthropicClient {
	c := &AnthropicClient{cfg: cfg, spec: cfg.budgetSpec()}
	if cfg.APIKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
		c.client = &client
	}
	return c
}

func (c *AnthropicClient) Name() string {
	if c.spec.SupportsReasoning {
		return fmt.Sprintf("Anthropic (%s, thinking=%dk)", c.cfg.Model, c.cfg.ReasoningBudget/1000)
	}
	return fmt.Sprintf("Anthropic (%s)", c.cfg.Model)
}

func (c *AnthropicClient) ProviderID() string { return "anthropic" }

func (c *AnthropicClient) VerifyConnectivity(ctx context.Context) bool {
	if c.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := c.client.Models.List(ctx, anthropic.ModelListParams{})
	return err == nil
}

func (c *AnthropicClient) PrepareContext(ctx context.Context, path string) PrepareResult {
	estimate := func(text string) int {
		if n := c.EstimateTokens(ctx, text); n >= 0 {
			return n
		}
		return estimateTokensHeuristic(text)
	}
	return loadContext(&c.context, path, c.spec, estimate)
}

func (c *AnthropicClient) EstimateTokens(ctx context.Context, text string) int {
	if c.client == nil {
		return -1
	}
	count, err := c.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model: anthropic.Model(c.cfg.Model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return -1
	}
	return int(count.InputTokens)
}

func (c *AnthropicClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if c.client == nil {
		return nil, &ConfigurationError{Provider: "anthropic", EnvVar: "ANTHROPIC_API_KEY"}
	}
	page, err := c.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var models []ModelInfo
	for _, m := range page.Data {
		models = append(models, ModelInfo{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			Created:     m.CreatedAt.Unix(),
			InputLimit:  ContextWindowForModel(m.ID),
		})
	}
	return models, nil
}

func (c *AnthropicClient) Stream(ctx context.Context, req Request) (Stream, error) {
	if c.client == nil {
		return nil, &ConfigurationError{Provider: "anthropic", EnvVar: "ANTHROPIC_API_KEY"}
	}
	manuscript, ok := c.context.snapshot()
	if !ok {
		return nil, &ContextNotPreparedError{Provider: "anthropic"}
	}

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
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

		maxOutput := budget.MaxOutput
		if maxOutput <= 0 {
			maxOutput = 1
		}
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(chooseModel(req.Model, c.cfg.Model)),
			MaxTokens: int64(maxOutput),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		}
		// The API requires a thinking budget of at least 1024 tokens and
		// strictly below max_tokens.
		if spec.SupportsReasoning && budget.ReasoningBudget >= 1024 {
			params.Thinking = anthropic.ThinkingConfigParamUnion{
				OfEnabled: &anthropic.ThinkingConfigEnabledParam{
					BudgetTokens: int64(budget.ReasoningBudget),
				},
			}
		}

		if req.Debug {
			fmt.Fprintln(os.Stderr, "=== DEBUG: Anthropic Stream Request ===")
			fmt.Fprintf(os.Stderr, "Provider: %s\n", c.Name())
			fmt.Fprintf(os.Stderr, "Instruction: %s\n", truncate(req.Instruction, 200))
			fmt.Fprintf(os.Stderr, "Prompt tokens: %d, max output: %d, thinking: %d\n",
				budget.PromptTokens, budget.MaxOutput, budget.ReasoningBudget)
			fmt.Fprintln(os.Stderr, "======================================")
		}

		var lastUsage *Usage
		stream := c.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" {
						events <- Event{Type: EventTextDelta, Text: delta.Text}
					}
				case anthropic.ThinkingDelta:
					if req.IncludeReasoning && delta.Thinking != "" {
						events <- Event{Type: EventReasoningDelta, Text: delta.Thinking}
					}
				}
			case anthropic.ContentBlockStartEvent:
				if block, ok := variant.ContentBlock.AsAny().(anthropic.ThinkingBlock); ok {
					if req.IncludeReasoning && block.Thinking != "" {
						events <- Event{Type: EventReasoningDelta, Text: block.Thinking}
					}
				}
			case anthropic.MessageDeltaEvent:
				if variant.Usage.OutputTokens > 0 {
					lastUsage = &Usage{
						InputTokens:  int(variant.Usage.InputTokens),
						OutputTokens: int(variant.Usage.OutputTokens),
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("anthropic streaming error: %w", err)
		}
		if lastUsage != nil {
			events <- Event{Type: EventUsage, Use: lastUsage}
		}
		events <- Event{Type: EventDone}
		return nil
	}), nil
}

func (c *AnthropicClient) Release() {
	c.context.clear()
}
