package llm

import (
	"context"
	"io"
	"sync"
)

// eventStream adapts a producer function to the Stream interface. The
// producer runs on its own goroutine and writes canonical events to the
// channel in wire order; Recv surfaces them one at a time and returns the
// producer's error (or io.EOF) once the channel drains.
type eventStream struct {
	events chan Event
	errc   chan error
	cancel context.CancelFunc

	mu     sync.Mutex
	err    error
	closed bool
}

// newEventStream starts produce on its own goroutine and returns a Stream
// over the events it emits. Cancelling ctx (or calling Close) stops the
// producer cooperatively: its next channel send or provider read observes
// the cancelled context and unwinds.
func newEventStream(ctx context.Context, produce func(ctx context.Context, events chan<- Event) error) Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &eventStream{
		events: make(chan Event, 16),
		errc:   make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		s.errc <- produce(ctx, s.events)
		close(s.events)
	}()
	return s
}

func (s *eventStream) Recv() (Event, error) {
	event, ok := <-s.events
	if !ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err == nil {
			if err := <-s.errc; err != nil {
				s.err = err
			} else {
				s.err = io.EOF
			}
			s.errc <- s.err
		}
		return Event{}, s.err
	}
	return event, nil
}

// Close cancels the producer and drains any buffered events so the
// producer's pending sends never block. Safe to call more than once.
func (s *eventStream) Close() error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		go func() {
			for range s.events {
			}
		}()
	}
	return nil
}
