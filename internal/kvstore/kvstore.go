// Package kvstore is the persistent key-value port behind the pipeline's
// quota counters, response cache, daily markers and send history.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the injected key-value port. The redis implementation is the
// production backend; the memory implementation serves tests and the
// degraded in-process fallback.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes key with an optional TTL (0 means no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes key only if absent. Returns true when this call won.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Incr atomically increments key and returns the new value. The TTL is
	// applied when the counter is created by this call.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// PushCapped prepends value to the list at key and trims it to cap.
	PushCapped(ctx context.Context, key, value string, cap int64) error
	// Range returns list elements [start, stop], newest first.
	Range(ctx context.Context, key string, start, stop int64) ([]string, error)
}
