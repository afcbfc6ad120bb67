// Package memory is the in-process view-state store, for dev mode and tests.
package memory

import (
	"context"
	"sync"

	"pitlog/pkg/platform/sentinel"
)

// Store keeps view state in a map. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	states map[key][]byte
}

type key struct {
	route  string
	widget string
}

// New creates an empty store.
func New() *Store {
	return &Store{states: make(map[key][]byte)}
}

func (s *Store) Get(_ context.Context, route, widget string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[key{route, widget}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte{}, state...), nil
}

func (s *Store) Set(_ context.Context, route, widget string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[key{route, widget}] = append([]byte{}, state...)
	return nil
}

func (s *Store) Clear(_ context.Context, route, widget string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, key{route, widget})
	return nil
}
