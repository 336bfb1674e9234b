package llm

import (
	"context"
	"time"
)

// Client is the capability set shared by every provider backend. Each
// backend is an independent implementation behind this interface; there is
// no shared base with mutable state, so one backend's quirks cannot leak
// into another's behavior.
type Client interface {
	// Name returns a human-readable description, e.g. "Anthropic (claude-sonnet-4-5)".
	Name() string
	// ProviderID returns the stable provider id ("anthropic", "openai", "gemini").
	ProviderID() string
	// VerifyConnectivity reports whether the API key is present and the
	// backend is reachable. Never returns an error; false on any failure.
	VerifyConnectivity(ctx context.Context) bool
	// PrepareContext reads the manuscript at path and stores it as the
	// client's prepared context, replacing any prior context. Failures are
	// soft: they are reported in the result and leave the context unset.
	PrepareContext(ctx context.Context, path string) PrepareResult
	// EstimateTokens returns the token count for text, or -1 if the
	// backend cannot provide one. Callers treat -1 as "budget unknown,
	// fall back to a conservative estimate".
	EstimateTokens(ctx context.Context, text string) int
	// Stream opens a generation stream for the instruction against the
	// prepared context. It fails fast with a ConfigurationError if the API
	// key is missing and a ContextNotPreparedError if no context has been
	// prepared. All failures after the stream opens surface as EventError
	// on the stream, never as a separate error path.
	Stream(ctx context.Context, req Request) (Stream, error)
	// ListModels returns the models available from this backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)
	// Release clears the prepared context and drops connection handles.
	// Idempotent; safe on an already-released client.
	Release()
}

// Stream yields events until io.EOF.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Request represents a single generation call for one run.
type Request struct {
	Model            string // override; empty = client's configured model
	Instruction      string // per-invocation instruction, appended after the prepared context
	UseReasoning     bool   // reserve a thinking budget for this call
	IncludeReasoning bool   // forward reasoning deltas to the consumer
	Debug            bool
}

// EventType describes canonical streaming events.
type EventType string

const (
	EventRunStarted     EventType = "run_started"     // emitted by the run registry before any delta
	EventTextDelta      EventType = "text_delta"      // visible output text
	EventReasoningDelta EventType = "reasoning_delta" // thinking text, only when opted in
	EventRateLimit      EventType = "rate_limit"      // emitted while waiting out a rate limit
	EventBudgetWarning  EventType = "budget_warning"  // prompt ate into the output/thinking budget
	EventUsage          EventType = "usage"           // token accounting, at most once per stream
	EventDone           EventType = "done"            // successful end of stream
	EventError          EventType = "error"           // stream failed; Err holds the cause
	EventRunCompleted   EventType = "run_completed"   // terminal, emitted by the run registry
	EventRunError       EventType = "run_error"       // terminal, emitted by the run registry
)

// Event is the provider-independent representation of one unit of streamed
// output. Backends normalize their wire events into this union in the same
// order the wire events arrived; no reordering or batching.
type Event struct {
	Type EventType
	Text string
	Use  *Usage
	Err  error
	// Rate limit fields (for EventRateLimit)
	RetryAttempt     int
	RetryMaxAttempts int
	RetryWaitSecs    float64
}

// Usage captures token accounting if the backend reports it.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	ReasoningTokens int // 0 when the backend does not break these out
}

// PrepareResult reports the outcome of loading a manuscript into a client.
type PrepareResult struct {
	Warnings []string
	Errors   []string
}

// OK reports whether the context was loaded.
func (r PrepareResult) OK() bool {
	return len(r.Errors) == 0
}

// ModelInfo represents a model available from a provider.
type ModelInfo struct {
	ID          string
	DisplayName string
	Created     int64
	InputLimit  int
}

// ClientConfig is the immutable configuration a client is constructed with.
type ClientConfig struct {
	ProviderID          string
	APIKey              string
	Model               string
	ContextWindow       int // 0 = look up by model
	MaxOutputHardLimit  int // 0 = look up by model
	ReasoningBudget     int // preferred thinking budget; 0 = reasoning unsupported/disabled
	VisibleOutputTokens int // desired visible output when reasoning is on
	RequestTimeout      time.Duration
	MaxRetries          int
}

// budgetSpec derives the token budget inputs for this client configuration,
// filling unset limits from the model table.
func (c ClientConfig) budgetSpec() BudgetSpec {
	window := c.ContextWindow
	if window <= 0 {
		window = ContextWindowForModel(c.Model)
	}
	hardLimit := c.MaxOutputHardLimit
	if hardLimit <= 0 {
		hardLimit = OutputLimitForModel(c.Model)
	}
	return BudgetSpec{
		ContextWindow:            window,
		MaxOutputHardLimit:       hardLimit,
		SupportsReasoning:        c.ReasoningBudget > 0,
		PreferredReasoningBudget: c.ReasoningBudget,
		DesiredVisibleOutput:     c.VisibleOutputTokens,
	}
}
