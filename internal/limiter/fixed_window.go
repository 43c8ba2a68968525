package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammadhprp/batchgate/internal/storage"
	"go.uber.org/zap"
)

// FixedWindow implements the Fixed Window (Counting) rate limiting algorithm.
//
// How it works:
// 1. The first request from a key opens a window of windowDuration
// 2. Every request in the window increments the counter, rejected ones included
// 3. A request is rejected once the counter exceeds maxRequests
// 4. The first request after the window closes opens a fresh window
//
// Bursts straddling two windows can admit up to 2x maxRequests in a short span.
// That is the accepted cost of the algorithm.
type FixedWindow struct {
	store          storage.Store
	maxRequests    int64
	windowDuration time.Duration
	logger         *zap.Logger
}

// NewFixedWindow creates a new Fixed Window rate limiter.
//
// Example: Allow 3 requests per minute
//
//	limiter := NewFixedWindow(store, 3, time.Minute, logger)
func NewFixedWindow(store storage.Store, maxRequests int64, windowDuration time.Duration, logger *zap.Logger) *FixedWindow {
	return &FixedWindow{
		store:          store,
		maxRequests:    maxRequests,
		windowDuration: windowDuration,
		logger:         logger,
	}
}

// Admit counts the request, then checks it against the limit.
func (fw *FixedWindow) Admit(ctx context.Context, key string, exempt bool) (Decision, error) {
	if exempt {
		return exemptDecision(), nil
	}

	w, err := fw.store.Increment(ctx, fw.stateKey(key), fw.windowDuration)
	if err != nil {
		fw.logger.Error("failed to increment fixed window", zap.String("key", key), zap.Error(err))
		return Decision{
			Allowed:   true,
			Limit:     fw.maxRequests,
			Remaining: fw.maxRequests,
			ResetAt:   time.Now().Add(fw.windowDuration),
		}, fmt.Errorf("increment fixed window: %w", err) // Fail open
	}

	remaining := fw.maxRequests - w.Count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   w.Count <= fw.maxRequests,
		Limit:     fw.maxRequests,
		Remaining: remaining,
		ResetAt:   w.End,
	}, nil
}

// Reset clears the fixed window state for a specific key.
func (fw *FixedWindow) Reset(ctx context.Context, key string) error {
	if err := fw.store.Delete(ctx, fw.stateKey(key)); err != nil {
		fw.logger.Error("failed to reset fixed window state", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("reset fixed window state: %w", err)
	}
	return nil
}

// Close performs cleanup when the rate limiter is no longer needed.
func (fw *FixedWindow) Close() error {
	return nil
}

// stateKey generates a unique key for storing fixed window state
func (fw *FixedWindow) stateKey(key string) string {
	return fmt.Sprintf("limiter:fixed_window:%s", key)
}
