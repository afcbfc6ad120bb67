// Package redis is the shared view-state store for multi-instance
// deployments.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pitlog/pkg/platform/sentinel"
)

const keyPrefix = "pitlog:viewstate:"

// DefaultTTL bounds how long abandoned widget state lingers.
const DefaultTTL = 90 * 24 * time.Hour

// Store is a redis-backed view-state store. The client lifecycle is managed
// externally.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the state expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New creates a redis view-state store.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func stateKey(route, widget string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, route, widget)
}

func (s *Store) Get(ctx context.Context, route, widget string) ([]byte, error) {
	state, err := s.client.Get(ctx, stateKey(route, widget)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting view state: %w", err)
	}
	return state, nil
}

func (s *Store) Set(ctx context.Context, route, widget string, state []byte) error {
	if err := s.client.Set(ctx, stateKey(route, widget), state, s.ttl).Err(); err != nil {
		return fmt.Errorf("setting view state: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, route, widget string) error {
	if err := s.client.Del(ctx, stateKey(route, widget)).Err(); err != nil {
		return fmt.Errorf("clearing view state: %w", err)
	}
	return nil
}
