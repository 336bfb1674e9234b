package run

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/proseforge/proseforge/internal/artifacts"
	"github.com/proseforge/proseforge/internal/llm"
)

// fakeStream replays scripted events, then returns final.
type fakeStream struct {
	events  []llm.Event
	final   error
	pos     int
	release chan struct{} // when set, Recv blocks here before each event
	ctx     context.Context
}

func (s *fakeStream) Recv() (llm.Event, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-s.ctx.Done():
			return llm.Event{}, s.ctx.Err()
		}
	}
	if s.pos >= len(s.events) {
		if s.final != nil {
			return llm.Event{}, s.final
		}
		return llm.Event{}, io.EOF
	}
	event := s.events[s.pos]
	s.pos++
	return event, nil
}

func (s *fakeStream) Close() error { return nil }

// fakeClient hands out one fakeStream per Stream call.
type fakeClient struct {
	streamErr error
	events    []llm.Event
	final     error
	release   chan struct{}
}

func (c *fakeClient) Name() string                                     { return "fake" }
func (c *fakeClient) ProviderID() string                               { return "fake" }
func (c *fakeClient) VerifyConnectivity(ctx context.Context) bool      { return true }
func (c *fakeClient) EstimateTokens(ctx context.Context, s string) int { return len(s) }
func (c *fakeClient) Release()                                         {}

func (c *fakeClient) PrepareContext(ctx context.Context, path string) llm.PrepareResult {
	return llm.PrepareResult{}
}

func (c *fakeClient) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return nil, nil
}

func (c *fakeClient) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	if c.streamErr != nil {
		return nil, c.streamErr
	}
	return &fakeStream{events: c.events, final: c.final, release: c.release, ctx: ctx}, nil
}

// recorder collects sink events in order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) sink() Sink {
	return func(ev Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	}
}

func (r *recorder) types() []llm.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]llm.EventType, len(r.events))
	for i, ev := range r.events {
		types[i] = ev.Type
	}
	return types
}

func waitFor(t *testing.T, g *Registry, id string) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.Wait(ctx, id); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	snap, ok := g.Get(id)
	if !ok {
		t.Fatalf("run %s disappeared", id)
	}
	return snap
}

func TestRunCompletes(t *testing.T) {
	client := &fakeClient{events: []llm.Event{
		{Type: llm.EventTextDelta, Text: "Hello, "},
		{Type: llm.EventTextDelta, Text: "world."},
		{Type: llm.EventUsage, Use: &llm.Usage{InputTokens: 10, OutputTokens: 4}},
		{Type: llm.EventDone},
	}}

	rec := &recorder{}
	cache := artifacts.NewCache()
	g := NewRegistry(rec.sink(), cache)
	dir := t.TempDir()

	id, err := g.Start(context.Background(), StartRequest{
		ToolID:    "proofread",
		Client:    client,
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := waitFor(t, g, id)
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", snap.Status)
	}
	if snap.Text != "Hello, world." {
		t.Errorf("text = %q", snap.Text)
	}
	if snap.Usage == nil || snap.Usage.OutputTokens != 4 {
		t.Errorf("usage = %+v", snap.Usage)
	}

	types := rec.types()
	if len(types) == 0 || types[0] != llm.EventRunStarted {
		t.Fatalf("first event = %v, want run_started", types)
	}
	if types[len(types)-1] != llm.EventRunCompleted {
		t.Errorf("last event = %v, want run_completed", types[len(types)-1])
	}
	for _, typ := range types {
		if typ == llm.EventDone {
			t.Error("provider done event must not reach the sink")
		}
	}

	// Artifact written and recorded.
	wantPath := filepath.Join(dir, "proofread-"+id+".md")
	if snap.ArtifactPath != wantPath {
		t.Errorf("artifact path = %q, want %q", snap.ArtifactPath, wantPath)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if string(data) != "Hello, world." {
		t.Errorf("artifact content = %q", data)
	}
	if got := cache.List("proofread"); len(got) != 1 || got[0].Path != wantPath {
		t.Errorf("cache entries = %+v", got)
	}
}

func TestRunFailsWithoutStreaming(t *testing.T) {
	client := &fakeClient{streamErr: &llm.ConfigurationError{Provider: "fake", EnvVar: "FAKE_KEY"}}

	rec := &recorder{}
	g := NewRegistry(rec.sink(), nil)

	id, err := g.Start(context.Background(), StartRequest{ToolID: "line_edit", Client: client})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := waitFor(t, g, id)
	if snap.Status != StatusErrored {
		t.Fatalf("status = %s, want errored", snap.Status)
	}
	if !strings.Contains(snap.Error, "FAKE_KEY") {
		t.Errorf("error = %q, want the provider message verbatim", snap.Error)
	}

	types := rec.types()
	if len(types) != 2 || types[0] != llm.EventRunStarted || types[1] != llm.EventRunError {
		t.Errorf("events = %v, want [run_started run_error]", types)
	}
}

func TestRunErrorCarriesCause(t *testing.T) {
	client := &fakeClient{
		events: []llm.Event{{Type: llm.EventTextDelta, Text: "partial"}},
		final:  errors.New("anthropic streaming error: overloaded"),
	}

	rec := &recorder{}
	g := NewRegistry(rec.sink(), nil)

	id, _ := g.Start(context.Background(), StartRequest{ToolID: "critique", Client: client})
	snap := waitFor(t, g, id)

	if snap.Status != StatusErrored {
		t.Fatalf("status = %s, want errored", snap.Status)
	}
	if snap.Error != "anthropic streaming error: overloaded" {
		t.Errorf("error = %q, want cause verbatim", snap.Error)
	}
	if snap.Text != "partial" {
		t.Errorf("text = %q, partial output must be preserved", snap.Text)
	}
}

func TestRunCancelPreservesText(t *testing.T) {
	release := make(chan struct{})
	client := &fakeClient{
		events: []llm.Event{
			{Type: llm.EventTextDelta, Text: "chunk one "},
			{Type: llm.EventTextDelta, Text: "chunk two"},
		},
		release: release,
	}

	rec := &recorder{}
	g := NewRegistry(rec.sink(), nil)
	dir := t.TempDir()

	id, err := g.Start(context.Background(), StartRequest{
		ToolID:    "synopsis",
		Client:    client,
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Let the first delta through, then cancel while the stream is blocked.
	release <- struct{}{}
	deadline := time.After(5 * time.Second)
	for {
		snap, _ := g.Get(id)
		if strings.Contains(snap.Text, "chunk one") {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first delta never arrived")
		case <-time.After(time.Millisecond):
		}
	}

	if err := g.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	snap := waitFor(t, g, id)
	if snap.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", snap.Status)
	}
	if snap.Text != "chunk one " {
		t.Errorf("text = %q, accumulated text must survive cancellation", snap.Text)
	}
	if snap.Error != "" {
		t.Errorf("cancelled run must not carry an error, got %q", snap.Error)
	}

	// No terminal event for a cancelled run, and no artifact on disk.
	for _, typ := range rec.types() {
		if typ == llm.EventRunCompleted || typ == llm.EventRunError {
			t.Errorf("cancelled run emitted terminal event %s", typ)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cancelled run wrote an artifact: %v", entries)
	}
}

func TestRunTimeoutErrors(t *testing.T) {
	release := make(chan struct{}) // never released
	client := &fakeClient{
		events:  []llm.Event{{Type: llm.EventTextDelta, Text: "never"}},
		release: release,
	}

	rec := &recorder{}
	g := NewRegistry(rec.sink(), nil)

	id, _ := g.Start(context.Background(), StartRequest{
		ToolID:  "line_edit",
		Client:  client,
		Timeout: 20 * time.Millisecond,
	})
	snap := waitFor(t, g, id)

	if snap.Status != StatusErrored {
		t.Fatalf("status = %s, want errored on timeout", snap.Status)
	}
	if !strings.HasPrefix(snap.Error, "run timed out:") {
		t.Errorf("error = %q, want a timed-out label", snap.Error)
	}
	if !strings.Contains(snap.Error, "deadline") {
		t.Errorf("error = %q, want the deadline cause preserved", snap.Error)
	}
}

func TestRegistryListAndClear(t *testing.T) {
	g := NewRegistry(nil, nil)
	done := &fakeClient{events: []llm.Event{{Type: llm.EventDone}}}

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := g.Start(context.Background(), StartRequest{ToolID: "copy_edit", Client: done})
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		ids = append(ids, id)
		waitFor(t, g, id)
	}

	snaps := g.List()
	if len(snaps) != 3 {
		t.Fatalf("List returned %d runs, want 3", len(snaps))
	}
	for i, snap := range snaps {
		if snap.ID != ids[i] {
			t.Errorf("List order: got %s at %d, want %s", snap.ID, i, ids[i])
		}
	}

	g.Clear()
	if got := g.List(); len(got) != 0 {
		t.Errorf("List after Clear = %d runs, want 0", len(got))
	}
	if _, ok := g.Get(ids[0]); ok {
		t.Error("cleared run still retrievable")
	}
}

func TestCancelUnknownRun(t *testing.T) {
	g := NewRegistry(nil, nil)
	if err := g.Cancel("nope"); err == nil {
		t.Error("expected an error for an unknown run id")
	}
}
