// Package store defines the narrow interface the rest of the system uses to
// reach the append-only event log. Implementations live in subpackages
// (memory, postgres, sqlite); consumers never see driver types.
package store

import (
	"context"
	"sync"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=../../../mocks/eventstore/store_mock.go -package=eventstore

// Store is the event log. Append assigns the ID and the server-side
// CreatedAt; events are never updated or deleted once written.
type Store interface {
	// Append persists one event and returns it with ID and CreatedAt set.
	// CreatedAt assignment is monotonic per store instance so client clock
	// skew cannot reorder the log.
	Append(ctx context.Context, e event.Event) (event.Event, error)

	// ListAll returns the full log ordered by CreatedAt ascending.
	ListAll(ctx context.Context) ([]event.Event, error)

	// ListRecent returns up to limit events, most recent first.
	ListRecent(ctx context.Context, limit int) ([]event.Event, error)

	// ListByMember returns the member's events ordered ascending.
	ListByMember(ctx context.Context, memberID id.MemberID) ([]event.Event, error)
}

// Notifier delivers opaque change signals for the log. Payloads carry no
// delta; receivers refetch the full event set and recompute derived views.
type Notifier interface {
	// Notify signals that the log changed.
	Notify(ctx context.Context) error

	// Subscribe returns a channel that receives a signal per change, plus a
	// cancel function that must be called on teardown. Signals may be
	// coalesced; receivers must treat each one as "refetch everything".
	Subscribe(ctx context.Context) (<-chan struct{}, func(), error)
}

// Fanout is the in-process Notifier. It backs dev mode and tests, and doubles
// as the local leg of the redis and postgres notifiers.
type Fanout struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewFanout() *Fanout {
	return &Fanout{subs: make(map[chan struct{}]struct{})}
}

func (f *Fanout) Notify(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		// Non-blocking send: a slow subscriber already has a pending signal,
		// and one pending signal is enough to trigger a full refetch.
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *Fanout) Subscribe(_ context.Context) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}
	return ch, cancel, nil
}
