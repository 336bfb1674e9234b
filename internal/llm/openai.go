package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient implements Client using the OpenAI Chat Completions API.
// The wire protocol exposes incremental deltas plus a terminal chunk
// carrying detailed token accounting; reasoning happens server-side and is
// reported only as a token count, never as streamable text.
type OpenAIClient struct {
	client  *openai.Client
	cfg     ClientConfig
	spec    BudgetSpec
	effort  string // reasoning effort: "low", "medium", "high", or ""
	model   string
	context contextStore
}

// parseModelEffort extracts an effort suffix from a model name.
// "gpt-5.2-high" -> ("gpt-5.2", "high"); "gpt-5.2" -> ("gpt-5.2", "").
func parseModelEffort(model string) (string, string) {
	for _, effort := range []string{"medium", "high", "low"} {
		suffix := "-" + effort
		if strings.HasSuffix(model, suffix) {
			return strings.TrimSuffix(model, suffix), effort
		}
	}
	return model, ""
}

func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	model, effort := parseModelEffort(cfg.Model)
	c := &OpenAIClient{cfg: cfg, model: model, effort: effort}
	c.spec = cfg.budgetSpec()
	if cfg.APIKey != "" {
		client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
		c.client = &client
	}
	return c
}

func (c *OpenAIClient) Name() string {
	if c.effort != "" {
		return fmt.Sprintf("OpenAI (%s, effort=%s)", c.model, c.effort)
	}
	return fmt.Sprintf("OpenAI (%s)", c.model)
}

func (c *OpenAIClient) ProviderID() string { return "openai" }

func (c *OpenAIClient) VerifyConnectivity(ctx context.Context) bool {
	if c.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := c.client.Models.List(ctx)
	return err == nil
}

func (c *OpenAIClient) PrepareContext(ctx context.Context, path string) PrepareResult {
	return loadContext(&c.context, path, c.spec, func(text string) int {
		return c.EstimateTokens(ctx, text)
	})
}

// EstimateTokens uses a character heuristic: the API has no token counting
// endpoint.
func (c *OpenAIClient) EstimateTokens(ctx context.Context, text string) int {
	return estimateTokensHeuristic(text)
}

func (c *OpenAIClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if c.client == nil {
		return nil, &ConfigurationError{Provider: "openai", EnvVar: "OPENAI_API_KEY"}
	}
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var models []ModelInfo
	for _, m := range page.Data {
		models = append(models, ModelInfo{
			ID:         m.ID,
			Created:    m.Created,
			InputLimit: ContextWindowForModel(m.ID),
		})
	}
	return models, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, req Request) (Stream, error) {
	if c.client == nil {
		return nil, &ConfigurationError{Provider: "openai", EnvVar: "OPENAI_API_KEY"}
	}
	manuscript, ok := c.context.snapshot()
	if !ok {
		return nil, &ContextNotPreparedError{Provider: "openai"}
	}

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		prompt := buildPrompt(manuscript, req.Instruction)

		budget := ComputeBudget(c.EstimateTokens(ctx, prompt), requestSpec(c.spec, req.UseReasoning))
		if budget.PromptOversized {
			events <- Event{Type: EventBudgetWarning, Text: fmt.Sprintf(
				"prompt is ~%d tokens; output clamped to %d tokens", budget.PromptTokens, budget.MaxOutput)}
		}

		reqModel, reqEffort := parseModelEffort(req.Model)
		effort := c.effort
		if effort == "" && reqEffort != "" {
			effort = reqEffort
		}

		params := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(chooseModel(reqModel, c.model)),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			StreamOptions: openai.ChatCompletionStreamOptionsParam{
				IncludeUsage: openai.Bool(true),
			},
		}
		if budget.MaxOutput > 0 {
			params.MaxCompletionTokens = openai.Int(int64(budget.MaxOutput))
		}
		if effort != "" {
			params.ReasoningEffort = shared.ReasoningEffort(effort)
		}

		if req.Debug {
			fmt.Fprintln(os.Stderr, "=== DEBUG: OpenAI Stream Request ===")
			fmt.Fprintf(os.Stderr, "Provider: %s\n", c.Name())
			fmt.Fprintf(os.Stderr, "Instruction: %s\n", truncate(req.Instruction, 200))
			fmt.Fprintf(os.Stderr, "Prompt tokens: ~%d, max output: %d\n", budget.PromptTokens, budget.MaxOutput)
			fmt.Fprintln(os.Stderr, "===================================")
		}

		var lastUsage *Usage
		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) > 0 {
				if text := chunk.Choices[0].Delta.Content; text != "" {
					events <- Event{Type: EventTextDelta, Text: text}
				}
			}
			// Usage arrives on the final chunk only, with reasoning tokens
			// broken out.
			if chunk.Usage.TotalTokens > 0 {
				lastUsage = &Usage{
					InputTokens:     int(chunk.Usage.PromptTokens),
					OutputTokens:    int(chunk.Usage.CompletionTokens),
					ReasoningTokens: int(chunk.Usage.CompletionTokensDetails.ReasoningTokens),
				}
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("openai streaming error: %w", err)
		}
		if lastUsage != nil {
			events <- Event{Type: EventUsage, Use: lastUsage}
		}
		events <- Event{Type: EventDone}
		return nil
	}), nil
}

func (c *OpenAIClient) Release() {
	c.context.clear()
}
