// Package run owns the lifecycle of streaming generation runs: starting
// them, forwarding their events, cancelling them, and keeping a record of
// what each run produced.
package run

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/proseforge/proseforge/internal/artifacts"
	"github.com/proseforge/proseforge/internal/llm"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusErrored   Status = "errored"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the run has finished in this state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusErrored || s == StatusCancelled
}

// Event is a run-scoped streaming event: the provider event plus the id of
// the run it belongs to.
type Event struct {
	RunID string
	llm.Event
}

// Sink receives every event a registry emits, in order per run. A nil sink
// discards events.
type Sink func(Event)

// StartRequest describes one run to start.
type StartRequest struct {
	ToolID    string
	Client    llm.Client
	Request   llm.Request
	Timeout   time.Duration // 0 = no per-run timeout
	OutputDir string        // artifact directory; empty = don't write a file
}

type run struct {
	id         string
	toolID     string
	providerID string

	cancel    context.CancelFunc
	done      chan struct{}
	createdAt time.Time

	mu         sync.Mutex
	status     Status
	text       strings.Builder
	usage      *llm.Usage
	errMessage string
	artifact   string
	cancelled  bool
	finishedAt time.Time
}

// Snapshot is a point-in-time view of a run.
type Snapshot struct {
	ID           string
	ToolID       string
	Provider     string
	Status       Status
	Text         string
	Usage        *llm.Usage
	Error        string
	ArtifactPath string
	CreatedAt    time.Time
	FinishedAt   time.Time
}

// Registry tracks every run started through it. One registry serves the
// whole process; methods are safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	runs  map[string]*run
	order []string

	sink  Sink
	cache *artifacts.Cache
}

// NewRegistry creates a registry that forwards events to sink and records
// completed artifacts in cache. Both may be nil.
func NewRegistry(sink Sink, cache *artifacts.Cache) *Registry {
	return &Registry{
		runs:  make(map[string]*run),
		sink:  sink,
		cache: cache,
	}
}

// newRunID returns a random 16-hex-char run id.
func newRunID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func (g *Registry) emit(runID string, event llm.Event) {
	if g.sink != nil {
		g.sink(Event{RunID: runID, Event: event})
	}
}

// Start begins a run and returns its id immediately. The run executes on its
// own goroutine; progress arrives through the sink. A run_started event is
// emitted before any other event for the run.
func (g *Registry) Start(ctx context.Context, req StartRequest) (string, error) {
	if req.Client == nil {
		return "", fmt.Errorf("run: no client")
	}

	runCtx, cancel := context.WithCancel(ctx)

	r := &run{
		id:         newRunID(),
		toolID:     req.ToolID,
		providerID: req.Client.ProviderID(),
		cancel:     cancel,
		done:       make(chan struct{}),
		createdAt:  time.Now(),
		status:     StatusPending,
	}

	g.mu.Lock()
	g.runs[r.id] = r
	g.order = append(g.order, r.id)
	g.mu.Unlock()

	g.emit(r.id, llm.Event{Type: llm.EventRunStarted, Text: req.ToolID})

	go g.execute(runCtx, r, req)
	return r.id, nil
}

func (g *Registry) execute(ctx context.Context, r *run, req StartRequest) {
	defer close(r.done)
	defer r.cancel()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	stream, err := req.Client.Stream(ctx, req.Request)
	if err != nil {
		g.finish(r, err)
		return
	}
	defer stream.Close()

	r.mu.Lock()
	r.status = StatusStreaming
	r.mu.Unlock()

	for {
		event, err := stream.Recv()
		if err == io.EOF {
			g.complete(r, req)
			return
		}
		if err != nil {
			g.finish(r, err)
			return
		}

		switch event.Type {
		case llm.EventTextDelta:
			r.mu.Lock()
			r.text.WriteString(event.Text)
			r.mu.Unlock()
		case llm.EventUsage:
			r.mu.Lock()
			r.usage = event.Use
			r.mu.Unlock()
		case llm.EventDone:
			// Swallowed: the registry emits the terminal run event itself
			// after the stream drains.
			continue
		}

		g.emit(r.id, event)
	}
}

// complete marks a successful run, writes its artifact, and emits the
// terminal run_completed event with usage attached.
func (g *Registry) complete(r *run, req StartRequest) {
	r.mu.Lock()
	r.status = StatusCompleted
	r.finishedAt = time.Now()
	text := r.text.String()
	usage := r.usage
	r.mu.Unlock()

	if req.OutputDir != "" {
		path := filepath.Join(req.OutputDir, fmt.Sprintf("%s-%s.md", req.ToolID, r.id))
		if err := writeArtifact(path, text); err == nil {
			r.mu.Lock()
			r.artifact = path
			r.mu.Unlock()
			if g.cache != nil {
				g.cache.Record(req.ToolID, r.id, path)
			}
		} else {
			g.emit(r.id, llm.Event{Type: llm.EventError,
				Err: fmt.Errorf("failed to save output: %w", err)})
		}
	}

	g.emit(r.id, llm.Event{Type: llm.EventRunCompleted, Use: usage})
}

// finish marks a failed or cancelled run. Cancelled runs get no terminal
// event; everything else gets run_error carrying the cause. Timeouts are
// labelled so they read as a deadline, not a provider failure.
func (g *Registry) finish(r *run, err error) {
	if llm.IsTimeout(err) {
		err = fmt.Errorf("run timed out: %w", err)
	}

	r.mu.Lock()
	cancelled := r.cancelled || errors.Is(err, context.Canceled)
	if cancelled {
		r.status = StatusCancelled
	} else {
		r.status = StatusErrored
		r.errMessage = err.Error()
	}
	r.finishedAt = time.Now()
	r.mu.Unlock()

	if cancelled {
		return
	}
	g.emit(r.id, llm.Event{Type: llm.EventRunError, Err: err})
}

func writeArtifact(path, text string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// Cancel requests cooperative cancellation of a run. Text accumulated so far
// is preserved in the run's snapshot. Cancelling a run that already finished
// is a no-op.
func (g *Registry) Cancel(id string) error {
	g.mu.Lock()
	r, ok := g.runs[id]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("run: unknown id %s", id)
	}

	r.mu.Lock()
	if !r.status.Terminal() {
		r.cancelled = true
	}
	r.mu.Unlock()

	r.cancel()
	return nil
}

// Get returns a snapshot of one run.
func (g *Registry) Get(id string) (Snapshot, bool) {
	g.mu.Lock()
	r, ok := g.runs[id]
	g.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return r.snapshot(), true
}

// List returns snapshots of every run in creation order.
func (g *Registry) List() []Snapshot {
	g.mu.Lock()
	ids := make([]string, len(g.order))
	copy(ids, g.order)
	runs := make([]*run, 0, len(ids))
	for _, id := range ids {
		if r, ok := g.runs[id]; ok {
			runs = append(runs, r)
		}
	}
	g.mu.Unlock()

	out := make([]Snapshot, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.snapshot())
	}
	return out
}

// Clear drops finished runs from the registry. Active runs stay.
func (g *Registry) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	var keep []string
	for _, id := range g.order {
		r, ok := g.runs[id]
		if !ok {
			continue
		}
		r.mu.Lock()
		terminal := r.status.Terminal()
		r.mu.Unlock()
		if terminal {
			delete(g.runs, id)
		} else {
			keep = append(keep, id)
		}
	}
	g.order = keep
}

// Wait blocks until the run finishes or ctx is done.
func (g *Registry) Wait(ctx context.Context, id string) error {
	g.mu.Lock()
	r, ok := g.runs[id]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("run: unknown id %s", id)
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *run) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ID:           r.id,
		ToolID:       r.toolID,
		Provider:     r.providerID,
		Status:       r.status,
		Text:         r.text.String(),
		Usage:        r.usage,
		Error:        r.errMessage,
		ArtifactPath: r.artifact,
		CreatedAt:    r.createdAt,
		FinishedAt:   r.finishedAt,
	}
}
