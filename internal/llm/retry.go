package llm

import (
	"context"
	"io"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"time"
)

// RetryConfig configures retry behavior. Static configuration; no
// per-request adaptive logic.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig returns sensible defaults for rate limit retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// RetryClient wraps a client with automatic retry on transient transport
// errors. Configuration and sequencing errors pass through untouched so
// they stay distinguishable from transport failures.
type RetryClient struct {
	inner  Client
	config RetryConfig
}

// WrapWithRetry wraps a client with retry logic.
func WrapWithRetry(c Client, config RetryConfig) Client {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &RetryClient{inner: c, config: config}
}

func (r *RetryClient) Name() string       { return r.inner.Name() }
func (r *RetryClient) ProviderID() string { return r.inner.ProviderID() }

func (r *RetryClient) VerifyConnectivity(ctx context.Context) bool {
	return r.inner.VerifyConnectivity(ctx)
}

func (r *RetryClient) PrepareContext(ctx context.Context, path string) PrepareResult {
	return r.inner.PrepareContext(ctx, path)
}

func (r *RetryClient) EstimateTokens(ctx context.Context, text string) int {
	return r.inner.EstimateTokens(ctx, text)
}

func (r *RetryClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return r.inner.ListModels(ctx)
}

func (r *RetryClient) Release() { r.inner.Release() }

func (r *RetryClient) Stream(ctx context.Context, req Request) (Stream, error) {
	// Fail-fast errors (missing key, missing context) must surface
	// synchronously, before any stream exists.
	stream, err := r.inner.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		var lastErr error

		for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
			if stream == nil {
				stream, err = r.inner.Stream(ctx, req)
				if err != nil {
					if !isRetryable(err) {
						return err
					}
					lastErr = err
				}
			}
			if stream != nil {
				err = r.forwardEvents(ctx, stream, events)
				stream = nil
				if err == nil {
					return nil
				}
				if !isRetryable(err) {
					return err
				}
				lastErr = err
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt >= r.config.MaxAttempts {
				break
			}

			wait := r.calculateBackoff(attempt, lastErr)

			// Emit a rate limit event so the consumer can show the wait.
			events <- Event{
				Type:             EventRateLimit,
				RetryAttempt:     attempt,
				RetryMaxAttempts: r.config.MaxAttempts,
				RetryWaitSecs:    wait.Seconds(),
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		return lastErr
	}), nil
}

// forwardEvents reads events from the inner stream and forwards them.
// Returns a retryable error if the stream fails with a transient error.
func (r *RetryClient) forwardEvents(ctx context.Context, stream Stream, events chan<- Event) error {
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		event, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		// Error events from mid-stream failures (e.g. 429 during streaming)
		// feed the retry decision instead of reaching the consumer.
		if event.Type == EventError && event.Err != nil {
			return event.Err
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// retryAfterRegex matches Retry-After values in error messages.
var retryAfterRegex = regexp.MustCompile(`(?i)retry[- ]?after[:\s]+(\d+)`)

// calculateBackoff computes the wait duration for a retry attempt.
func (r *RetryClient) calculateBackoff(attempt int, err error) time.Duration {
	if rle, ok := err.(*RateLimitError); ok && rle.RetryAfter > 0 {
		wait := rle.RetryAfter
		if wait > r.config.MaxBackoff {
			wait = r.config.MaxBackoff
		}
		return wait
	}

	if err != nil {
		if matches := retryAfterRegex.FindStringSubmatch(err.Error()); len(matches) > 1 {
			if secs, parseErr := strconv.Atoi(matches[1]); parseErr == nil && secs > 0 {
				wait := time.Duration(secs) * time.Second
				if wait > r.config.MaxBackoff {
					wait = r.config.MaxBackoff
				}
				return wait
			}
		}
	}

	// Exponential backoff: base * 2^(attempt-1), +/- 25% jitter.
	backoff := float64(r.config.BaseBackoff) * math.Pow(2, float64(attempt-1))
	jitter := (rand.Float64() - 0.5) * 0.5 * backoff
	backoff += jitter

	if backoff > float64(r.config.MaxBackoff) {
		backoff = float64(r.config.MaxBackoff)
	}

	return time.Duration(backoff)
}
