// Package replay steps through the chronological event sequence under timer
// control. A Session owns one playback; a Manager owns the live sessions so
// HTTP handlers can drive them by ID.
package replay

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

// State is the playback state of a session.
type State string

const (
	StateStopped  State = "stopped"
	StatePlaying  State = "playing"
	StatePaused   State = "paused"
	StateFinished State = "finished"
)

// DefaultBaseInterval is the cursor advancement cadence at speed 1.
const DefaultBaseInterval = 3 * time.Second

// Session is one controllable playback over a fixed, sorted event sequence.
// The sequence is snapshotted at creation; later log appends do not affect a
// running session.
type Session struct {
	id     id.ReplayID
	events []event.Event
	logger *slog.Logger

	base time.Duration

	mu     sync.Mutex
	state  State
	cursor int
	speed  float64

	// gen invalidates the advancement loop: every Play and SetSpeed bumps it,
	// and a loop whose generation is stale exits without touching the cursor.
	// This is what makes a speed change an atomic reschedule rather than two
	// overlapping tickers.
	gen    uint64
	stop   chan struct{}
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithBaseInterval overrides the speed-1 advancement interval.
func WithBaseInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.base = d
		}
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession snapshots events (sorted ascending by creation time) into a
// stopped session at speed 1. An empty sequence yields an inert session:
// every transition is a no-op.
func NewSession(sessionID id.ReplayID, events []event.Event, opts ...Option) *Session {
	sorted := append([]event.Event{}, events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	s := &Session{
		id:     sessionID,
		events: sorted,
		logger: slog.Default(),
		base:   DefaultBaseInterval,
		state:  StateStopped,
		speed:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() id.ReplayID { return s.id }

// Len returns the number of events in the sequence.
func (s *Session) Len() int { return len(s.events) }

// Play starts or resumes advancement. Valid from stopped and paused; a no-op
// from playing, finished, closed, or on an empty sequence.
func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.events) == 0 {
		return
	}
	if s.state != StateStopped && s.state != StatePaused {
		return
	}
	if s.cursor >= len(s.events)-1 {
		s.state = StateFinished
		return
	}
	s.state = StatePlaying
	s.rescheduleLocked()
}

// Pause halts advancement without moving the cursor.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return
	}
	s.state = StatePaused
	s.haltLocked()
}

// Reset stops playback and rewinds the cursor to the first event.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.cursor = 0
	s.state = StateStopped
	s.haltLocked()
}

// SkipToEnd jumps the cursor to the last event and finishes playback. A no-op
// on an empty sequence.
func (s *Session) SkipToEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.events) == 0 {
		return
	}
	s.cursor = len(s.events) - 1
	s.state = StateFinished
	s.haltLocked()
}

// SetSpeed changes the playback speed multiplier. While playing, the
// advancement timer restarts immediately at the new interval; the cursor is
// untouched. Non-positive speeds are ignored.
func (s *Session) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.speed = speed
	if s.state == StatePlaying {
		s.rescheduleLocked()
	}
}

// Close halts any running timer and makes the session permanently inert.
// Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.haltLocked()
}

// rescheduleLocked replaces the advancement loop. Caller holds mu.
func (s *Session) rescheduleLocked() {
	s.haltLocked()
	s.gen++
	s.stop = make(chan struct{})
	go s.run(s.gen, s.stop, s.interval())
}

// haltLocked signals the current loop, if any, to exit. Caller holds mu.
func (s *Session) haltLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func (s *Session) interval() time.Duration {
	d := time.Duration(float64(s.base) / s.speed)
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

func (s *Session) run(gen uint64, stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.advance(gen) {
				return
			}
		}
	}
}

// advance moves the cursor one step. Returns false when the loop must exit:
// generation stale, state no longer playing, or the sequence finished.
func (s *Session) advance(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != StatePlaying {
		return false
	}

	s.cursor++
	if s.cursor >= len(s.events)-1 {
		s.cursor = len(s.events) - 1
		s.state = StateFinished
		s.stop = nil
		s.logger.Debug("replay finished", slog.String("replay_id", s.id.String()))
		return false
	}
	return true
}

// Status is a point-in-time view of a session for the transport layer.
type Status struct {
	ID       id.ReplayID  `json:"id"`
	State    State        `json:"state"`
	Cursor   int          `json:"cursor"`
	Total    int          `json:"total"`
	Speed    float64      `json:"speed"`
	Progress float64      `json:"progress"`
	Day      int          `json:"day"`
	DaySpan  int          `json:"day_span"`
	Current  *event.Event `json:"current,omitempty"`
}

// Status reports the session's current position. Progress is
// (cursor+1)/n*100, 0 for an empty sequence. Day is the 1-based calendar day
// of the current event counted from the first event's day; DaySpan the full
// inclusive day span of the sequence.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:     s.id,
		State:  s.state,
		Cursor: s.cursor,
		Total:  len(s.events),
		Speed:  s.speed,
	}
	if len(s.events) == 0 {
		return st
	}

	st.Progress = float64(s.cursor+1) / float64(len(s.events)) * 100
	cur := s.events[s.cursor]
	st.Current = &cur

	first := dayOf(s.events[0].CreatedAt)
	last := dayOf(s.events[len(s.events)-1].CreatedAt)
	st.DaySpan = daysBetween(first, last) + 1
	st.Day = daysBetween(first, dayOf(cur.CreatedAt)) + 1
	if st.Day > st.DaySpan {
		st.Day = st.DaySpan
	}
	return st
}

// History returns the events at or before the cursor, ascending. Empty for an
// empty sequence.
func (s *Session) History() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		return nil
	}
	return append([]event.Event{}, s.events[:s.cursor+1]...)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
