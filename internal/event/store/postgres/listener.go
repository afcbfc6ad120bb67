package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"pitlog/internal/event/store"
)

// Listener adapts postgres LISTEN/NOTIFY to the store.Notifier interface.
// Appends on any instance reach every subscriber through the shared channel;
// local subscribers hang off an in-process fanout fed by Run.
type Listener struct {
	pql    *pq.Listener
	fan    *store.Fanout
	logger *slog.Logger
}

// NewListener opens a dedicated LISTEN connection. The lib/pq listener owns
// its own connection and reconnects with backoff; the pgx pool used for
// queries is not involved.
func NewListener(connStr string, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pql := pq.NewListener(connStr, 2*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Warn("postgres listener state change", "event", ev, "error", err)
			}
		})

	if err := pql.Listen(NotifyChannel); err != nil {
		_ = pql.Close()
		return nil, fmt.Errorf("listen on %s: %w", NotifyChannel, err)
	}

	return &Listener{pql: pql, fan: store.NewFanout(), logger: logger}, nil
}

// Run pumps postgres notifications into the local fanout until ctx ends.
// A nil notification means the connection was re-established; treat it as a
// change signal so a refetch covers anything missed while disconnected.
func (l *Listener) Run(ctx context.Context) error {
	defer l.pql.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.pql.Notify:
			if err := l.fan.Notify(ctx); err != nil {
				l.logger.Warn("fanout notify failed", "error", err)
			}
		case <-time.After(90 * time.Second):
			// Periodic ping keeps the LISTEN connection from going stale.
			if err := l.pql.Ping(); err != nil {
				l.logger.Warn("postgres listener ping failed", "error", err)
			}
		}
	}
}

// Notify is a no-op for the postgres listener: the store's Append already
// issues pg_notify, so signaling here would double-fire.
func (l *Listener) Notify(context.Context) error { return nil }

// Subscribe registers a local receiver for change signals.
func (l *Listener) Subscribe(ctx context.Context) (<-chan struct{}, func(), error) {
	return l.fan.Subscribe(ctx)
}
