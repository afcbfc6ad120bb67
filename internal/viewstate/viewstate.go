// Package viewstate persists per-widget UI snapshots keyed by (route, widget)
// so clients can restore their dashboard layout. The state payload is opaque
// JSON; the service never interprets it.
package viewstate

import "context"

// Store is the view-state port. Implementations live in subpackages.
type Store interface {
	// Get returns the stored state, or sentinel.ErrNotFound.
	Get(ctx context.Context, route, widget string) ([]byte, error)

	// Set stores state, replacing any previous value.
	Set(ctx context.Context, route, widget string, state []byte) error

	// Clear removes the stored state. Clearing an absent key is not an error.
	Clear(ctx context.Context, route, widget string) error
}
