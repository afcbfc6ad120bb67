// Package snapshot caches the full sorted event slice so the read paths can
// compute derived views without hitting the store per request. The cache is
// replaced wholesale on every refresh; nothing is merged incrementally.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pitlog/internal/event"
	"pitlog/internal/event/store"
	"pitlog/internal/timemachine/metrics"
)

// Cache holds the latest full read of the event log.
type Cache struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu          sync.RWMutex
	events      []event.Event
	refreshedAt time.Time
	lastErr     error
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the time machine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New builds an empty cache over s. Callers usually Refresh once at startup
// and then let Watch keep it current.
func New(s store.Store, opts ...Option) *Cache {
	c := &Cache{
		store:  s,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh re-reads the full log and replaces the cached slice. On failure the
// previous snapshot stays in place and the error is recorded so handlers can
// surface a retriable error state.
func (c *Cache) Refresh(ctx context.Context) error {
	events, err := c.store.ListAll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.lastErr = fmt.Errorf("refreshing event snapshot: %w", err)
		c.metrics.IncRefresh("error")
		c.logger.Error("event snapshot refresh failed", slog.String("error", err.Error()))
		return c.lastErr
	}

	c.events = events
	c.refreshedAt = time.Now()
	c.lastErr = nil
	c.metrics.IncRefresh("ok")
	c.metrics.SetSnapshotSize(len(events))
	c.logger.Debug("event snapshot refreshed", slog.Int("events", len(events)))
	return nil
}

// Events returns the cached slice. The slice is shared and must be treated as
// read-only; every derived view copies before mutating.
func (c *Cache) Events() []event.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.events
}

// Len returns the cached event count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// LastRefresh reports when the cache last loaded successfully and the error
// of the most recent attempt, if it failed.
func (c *Cache) LastRefresh() (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt, c.lastErr
}

// Watch subscribes to n and refreshes the cache on every change signal until
// ctx is done. Refresh failures are logged and the watch continues; the next
// signal (or a manual Refresh) retries.
func (c *Cache) Watch(ctx context.Context, n store.Notifier) error {
	signals, cancel, err := n.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to change feed: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("snapshot refresh on change signal failed",
					slog.String("error", err.Error()))
			}
		}
	}
}
