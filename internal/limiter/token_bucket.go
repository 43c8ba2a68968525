package limiter

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenBucket implements the Token Bucket rate limiting algorithm on top of
// golang.org/x/time/rate, keeping one bucket per key in memory.
//
// How it works:
// 1. Each key owns a bucket holding up to maxRequests tokens
// 2. Tokens refill continuously at maxRequests per windowDuration
// 3. Each request consumes one token; an empty bucket rejects
//
// Unlike FixedWindow it has no boundary burst, but it is process-local.
type TokenBucket struct {
	mu             sync.Mutex
	buckets        map[string]*bucketEntry
	maxRequests    int64
	windowDuration time.Duration
	limit          rate.Limit
	idleTTL        time.Duration
	now            func() time.Time
	logger         *zap.Logger
	stopChan       chan struct{}
	stopOnce       sync.Once
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// TokenBucketOption configures a TokenBucket.
type TokenBucketOption func(*TokenBucket)

// WithTokenBucketClock overrides the time source. Intended for tests.
func WithTokenBucketClock(now func() time.Time) TokenBucketOption {
	return func(tb *TokenBucket) { tb.now = now }
}

// WithIdleTTL sets how long an untouched bucket survives before eviction.
// A non-positive value disables eviction.
func WithIdleTTL(d time.Duration) TokenBucketOption {
	return func(tb *TokenBucket) { tb.idleTTL = d }
}

// NewTokenBucket creates a new Token Bucket rate limiter.
//
// Example: Allow bursts of 3 requests, refilling 3 per minute
//
//	limiter := NewTokenBucket(3, time.Minute, logger)
func NewTokenBucket(maxRequests int64, windowDuration time.Duration, logger *zap.Logger, opts ...TokenBucketOption) *TokenBucket {
	tb := &TokenBucket{
		buckets:        make(map[string]*bucketEntry),
		maxRequests:    maxRequests,
		windowDuration: windowDuration,
		limit:          rate.Every(windowDuration / time.Duration(maxRequests)),
		idleTTL:        2 * windowDuration,
		now:            time.Now,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(tb)
	}

	if tb.idleTTL > 0 {
		go tb.janitor()
	}

	return tb
}

// Admit consumes one token for key if one is available.
func (tb *TokenBucket) Admit(ctx context.Context, key string, exempt bool) (Decision, error) {
	if exempt {
		return exemptDecision(), nil
	}
	if err := ctx.Err(); err != nil {
		return Decision{Allowed: true, Limit: tb.maxRequests, Remaining: tb.maxRequests}, err // Fail open
	}

	now := tb.now()
	lim := tb.bucket(key, now)

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)

	remaining := int64(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now
	if tokens < 1 {
		missing := 1 - tokens
		resetAt = now.Add(time.Duration(missing * float64(time.Second) / float64(tb.limit)))
	}

	if !allowed {
		tb.logger.Debug("token bucket empty", zap.String("key", key))
	}

	return Decision{
		Allowed:   allowed,
		Limit:     tb.maxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Reset drops the bucket for a specific key.
func (tb *TokenBucket) Reset(ctx context.Context, key string) error {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	delete(tb.buckets, key)
	return nil
}

// Close stops the eviction goroutine.
func (tb *TokenBucket) Close() error {
	tb.stopOnce.Do(func() { close(tb.stopChan) })
	return nil
}

// Len returns the number of tracked buckets.
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

// Evict removes buckets idle for longer than the idle TTL.
func (tb *TokenBucket) Evict() int {
	cutoff := tb.now().Add(-tb.idleTTL)

	tb.mu.Lock()
	defer tb.mu.Unlock()

	removed := 0
	for key, entry := range tb.buckets {
		if entry.lastSeen.Before(cutoff) {
			delete(tb.buckets, key)
			removed++
		}
	}
	return removed
}

func (tb *TokenBucket) bucket(key string, now time.Time) *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if entry, ok := tb.buckets[key]; ok {
		entry.lastSeen = now
		return entry.lim
	}

	lim := rate.NewLimiter(tb.limit, int(tb.maxRequests))
	tb.buckets[key] = &bucketEntry{lim: lim, lastSeen: now}
	return lim
}

func (tb *TokenBucket) janitor() {
	ticker := time.NewTicker(tb.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tb.Evict()
		case <-tb.stopChan:
			return
		}
	}
}
