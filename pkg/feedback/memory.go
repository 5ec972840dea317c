package feedback

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemorySink records events in memory, for tests and local development.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	closed atomic.Bool
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Send records the event.
func (s *MemorySink) Send(_ context.Context, event Event) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Close marks the sink closed.
func (s *MemorySink) Close() error {
	s.closed.Store(true)
	return nil
}
