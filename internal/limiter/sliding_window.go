package limiter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mohammadhprp/batchgate/internal/storage"
	"go.uber.org/zap"
)

// SlidingWindow implements the Sliding Window Counter rate limiting algorithm.
//
// How it works:
// 1. Time is cut into aligned windows of windowDuration
// 2. Each key keeps one counter per window, kept alive for two windows
// 3. The load is estimated as previous*(1-elapsed/window) + current
// 4. A request is counted, then rejected if the estimate exceeds maxRequests
//
// Unlike FixedWindow, a burst at a window boundary is weighed against the
// tail of the previous window, so the 2x boundary spike is gone. Only the
// counter pair is stored, so every Store backend works.
type SlidingWindow struct {
	store          storage.Store
	maxRequests    int64
	windowDuration time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// SlidingWindowOption configures a SlidingWindow.
type SlidingWindowOption func(*SlidingWindow)

// WithSlidingWindowClock replaces time.Now. The store must share the clock.
func WithSlidingWindowClock(now func() time.Time) SlidingWindowOption {
	return func(sw *SlidingWindow) {
		sw.now = now
	}
}

// NewSlidingWindow creates a new Sliding Window rate limiter.
//
// Example: Allow 100 requests per second
//
//	limiter := NewSlidingWindow(store, 100, time.Second, logger)
func NewSlidingWindow(store storage.Store, maxRequests int64, windowDuration time.Duration, logger *zap.Logger, opts ...SlidingWindowOption) *SlidingWindow {
	sw := &SlidingWindow{
		store:          store,
		maxRequests:    maxRequests,
		windowDuration: windowDuration,
		now:            time.Now,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// Admit counts the request in the current window, then checks the weighted
// estimate against the limit.
func (sw *SlidingWindow) Admit(ctx context.Context, key string, exempt bool) (Decision, error) {
	if exempt {
		return exemptDecision(), nil
	}

	now := sw.now()
	index := now.UnixNano() / sw.windowDuration.Nanoseconds()
	start := time.Unix(0, index*sw.windowDuration.Nanoseconds())
	end := start.Add(sw.windowDuration)

	current, err := sw.store.Increment(ctx, sw.stateKey(key, index), 2*sw.windowDuration)
	if err != nil {
		sw.logger.Error("failed to increment sliding window", zap.String("key", key), zap.Error(err))
		return sw.failOpen(end), fmt.Errorf("increment sliding window: %w", err)
	}

	previous, ok, err := sw.store.Get(ctx, sw.stateKey(key, index-1))
	if err != nil {
		sw.logger.Error("failed to read previous sliding window", zap.String("key", key), zap.Error(err))
		return sw.failOpen(end), fmt.Errorf("read previous sliding window: %w", err)
	}
	if !ok {
		previous.Count = 0
	}

	weight := 1 - float64(now.Sub(start))/float64(sw.windowDuration)
	estimate := float64(previous.Count)*weight + float64(current.Count)

	remaining := sw.maxRequests - int64(math.Ceil(estimate))
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   estimate <= float64(sw.maxRequests),
		Limit:     sw.maxRequests,
		Remaining: remaining,
		ResetAt:   end,
	}, nil
}

// Reset clears the current and previous window counters for key.
func (sw *SlidingWindow) Reset(ctx context.Context, key string) error {
	index := sw.now().UnixNano() / sw.windowDuration.Nanoseconds()

	var errs []error
	for _, i := range []int64{index, index - 1} {
		if err := sw.store.Delete(ctx, sw.stateKey(key, i)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		sw.logger.Error("failed to reset sliding window state", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("reset sliding window state: %w", err)
	}
	return nil
}

// Close performs cleanup when the rate limiter is no longer needed.
func (sw *SlidingWindow) Close() error {
	return nil
}

func (sw *SlidingWindow) failOpen(end time.Time) Decision {
	return Decision{
		Allowed:   true,
		Limit:     sw.maxRequests,
		Remaining: sw.maxRequests,
		ResetAt:   end,
	}
}

// stateKey generates the counter key of one aligned window
func (sw *SlidingWindow) stateKey(key string, index int64) string {
	return fmt.Sprintf("limiter:sliding_window:%s:%d", key, index)
}
