package replay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
	"pitlog/pkg/platform/sentinel"
)

// DefaultIdleTTL is how long an untouched session survives before the sweeper
// closes it.
const DefaultIdleTTL = 30 * time.Minute

const sweepInterval = time.Minute

// Manager owns the live replay sessions. Sessions are created from a snapshot
// of the event log, addressed by ID, and closed either explicitly or by the
// idle sweeper. Dangling timers are the failure mode this exists to prevent.
type Manager struct {
	logger  *slog.Logger
	idleTTL time.Duration
	base    time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[id.ReplayID]*managedSession
	closed   bool
}

type managedSession struct {
	session *Session
	touched time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIdleTTL overrides how long untouched sessions are kept.
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.idleTTL = ttl
		}
	}
}

// WithManagerBaseInterval sets the speed-1 interval for created sessions.
func WithManagerBaseInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.base = d
		}
	}
}

// WithManagerClock injects the clock, for tests.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager builds an empty session manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		logger:   slog.Default(),
		idleTTL:  DefaultIdleTTL,
		base:     DefaultBaseInterval,
		now:      time.Now,
		sessions: make(map[id.ReplayID]*managedSession),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create snapshots events into a new stopped session and registers it.
func (m *Manager) Create(events []event.Event) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, sentinel.ErrClosed
	}

	sessionID := id.NewReplayID()
	session := NewSession(sessionID, events,
		WithBaseInterval(m.base),
		WithSessionLogger(m.logger),
	)
	m.sessions[sessionID] = &managedSession{session: session, touched: m.now()}

	m.logger.Info("replay session created",
		slog.String("replay_id", sessionID.String()),
		slog.Int("events", session.Len()),
	)
	return session, nil
}

// Get returns the session and refreshes its idle deadline. Returns
// sentinel.ErrNotFound for unknown or expired IDs.
func (m *Manager) Get(sessionID id.ReplayID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	ms.touched = m.now()
	return ms.session, nil
}

// Delete closes and removes a session.
func (m *Manager) Delete(sessionID id.ReplayID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	ms.session.Close()
	delete(m.sessions, sessionID)
	m.logger.Info("replay session deleted", slog.String("replay_id", sessionID.String()))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run sweeps idle sessions until ctx is done, then closes everything.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return ctx.Err()
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	deadline := m.now().Add(-m.idleTTL)
	for sessionID, ms := range m.sessions {
		if ms.touched.Before(deadline) {
			ms.session.Close()
			delete(m.sessions, sessionID)
			m.logger.Info("replay session expired", slog.String("replay_id", sessionID.String()))
		}
	}
}

// Close closes every session and rejects further creates.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for sessionID, ms := range m.sessions {
		ms.session.Close()
		delete(m.sessions, sessionID)
	}
}
