// Package redisnotify implements the change-feed Notifier over redis pub/sub.
// Used when the event store itself cannot push changes (sqlite) or when redis
// is already deployed for view-state storage.
package redisnotify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"pitlog/internal/event/store"
)

// Channel is the pub/sub channel carrying invalidation signals.
const Channel = "pitlog:events:changed"

type Notifier struct {
	client *redis.Client
	fan    *store.Fanout
	logger *slog.Logger
}

func New(client *redis.Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, fan: store.NewFanout(), logger: logger}
}

// Notify publishes an invalidation signal. The payload is irrelevant;
// receivers refetch everything.
func (n *Notifier) Notify(ctx context.Context) error {
	if err := n.client.Publish(ctx, Channel, "1").Err(); err != nil {
		return fmt.Errorf("publish change signal: %w", err)
	}
	return nil
}

// Subscribe registers a local receiver for change signals.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan struct{}, func(), error) {
	return n.fan.Subscribe(ctx)
}

// Run pumps redis messages into the local fanout until ctx ends. Must run in
// its own goroutine; cancellation closes the pub/sub connection.
func (n *Notifier) Run(ctx context.Context) error {
	sub := n.client.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			if err := n.fan.Notify(ctx); err != nil {
				n.logger.Warn("fanout notify failed", "error", err)
			}
		}
	}
}
