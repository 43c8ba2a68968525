package limiter

import (
	"context"
	"time"
)

// Algorithm names accepted by configuration.
const (
	AlgorithmFixedWindow   = "fixed_window"
	AlgorithmSlidingWindow = "sliding_window"
	AlgorithmTokenBucket   = "token_bucket"
)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed   bool
	Exempt    bool      // Caller bypassed limiting; the remaining fields are zero
	Limit     int64     // Configured maximum per window
	Remaining int64     // Requests left in the current window, never negative
	ResetAt   time.Time // When the caller regains capacity
}

// RetryAfter returns the whole seconds until ResetAt, at least one.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(d.ResetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RateLimiter defines the interface for rate limiting algorithms.
// Error Handling Behavior (Fail-Open)
type RateLimiter interface {
	// Admit decides whether a request from key may proceed.
	// When exempt is true the request is always allowed and no state is touched.
	//
	// On error (e.g., storage failure), returns an allowed Decision together with
	// the error to implement fail-open behavior.
	Admit(ctx context.Context, key string, exempt bool) (Decision, error)

	// Reset clears the state for a specific key.
	Reset(ctx context.Context, key string) error

	// Close performs cleanup when the rate limiter is no longer needed.
	Close() error
}

func exemptDecision() Decision {
	return Decision{Allowed: true, Exempt: true}
}
