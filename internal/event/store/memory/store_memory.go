// Package memory provides the in-memory event store used by unit tests and
// single-process dev deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

// Store keeps the log as an append-only slice guarded by a RWMutex. The slice
// is always ordered by CreatedAt because Append assigns timestamps
// monotonically.
type Store struct {
	mu     sync.RWMutex
	events []event.Event
	lastTS time.Time

	now func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock injects a clock so tests can control assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append assigns ID and CreatedAt and stores a copy of the event. Assigned
// timestamps never decrease even if the clock does.
func (s *Store) Append(_ context.Context, e event.Event) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	if !ts.After(s.lastTS) {
		ts = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = ts

	e.ID = id.NewEventID()
	e.CreatedAt = ts
	s.events = append(s.events, e)
	return e, nil
}

// ListAll returns a copy of the full log, CreatedAt ascending.
func (s *Store) ListAll(_ context.Context) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]event.Event{}, s.events...), nil
}

// ListRecent returns up to limit events, most recent first.
func (s *Store) ListRecent(_ context.Context, limit int) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 0 {
		limit = 0
	}
	if limit > len(s.events) {
		limit = len(s.events)
	}

	out := make([]event.Event, 0, limit)
	for i := len(s.events) - 1; i >= len(s.events)-limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// ListByMember returns the member's events, CreatedAt ascending.
func (s *Store) ListByMember(_ context.Context, memberID id.MemberID) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, e := range s.events {
		if e.MemberID == memberID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Clear drops all events. Test helper.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.lastTS = time.Time{}
}
