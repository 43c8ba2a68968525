package storage

import (
	"context"
	"time"
)

// Window is a snapshot of a fixed-window counter.
type Window struct {
	Count int64     // Requests counted in the current window, including rejected ones
	End   time.Time // Instant the current window closes
}

// Store defines the interface for rate limiter counter backends
type Store interface {
	// Increment adds one to the counter for key and returns the resulting window.
	// When no window exists for key, or the previous one has elapsed, a new window
	// of the given duration starts at the current time with a count of one.
	// Start-or-reset and increment are atomic with respect to other callers.
	Increment(ctx context.Context, key string, window time.Duration) (Window, error)

	// Get returns the live window for key. ok is false if none exists or it has elapsed.
	Get(ctx context.Context, key string) (w Window, ok bool, err error)

	// Delete removes the key from storage
	Delete(ctx context.Context, key string) error

	// Ping checks if the storage is accessible
	Ping(ctx context.Context) error

	// Close closes the storage connection
	Close() error
}
