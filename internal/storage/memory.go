package storage

import (
	"context"
	"sync"
	"time"
)

const defaultCleanupInterval = time.Minute

// MemoryStore implements Store using an in-process map guarded by one mutex.
type MemoryStore struct {
	mu       sync.Mutex
	windows  map[string]*windowEntry
	now      func() time.Time
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

type windowEntry struct {
	count int64
	end   time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(ms *MemoryStore) { ms.now = now }
}

// WithCleanupInterval sets how often elapsed windows are evicted.
// A non-positive interval disables the janitor.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(ms *MemoryStore) { ms.interval = d }
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	ms := &MemoryStore{
		windows:  make(map[string]*windowEntry),
		now:      time.Now,
		interval: defaultCleanupInterval,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}

	if ms.interval > 0 {
		go ms.cleanupExpiredKeys()
	}

	return ms
}

// cleanupExpiredKeys periodically removes elapsed windows
func (ms *MemoryStore) cleanupExpiredKeys() {
	ticker := time.NewTicker(ms.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.RemoveExpired()
		case <-ms.stopChan:
			return
		}
	}
}

// RemoveExpired evicts every window that has elapsed and returns how many were removed.
func (ms *MemoryStore) RemoveExpired() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	removed := 0
	for key, entry := range ms.windows {
		if !now.Before(entry.end) {
			delete(ms.windows, key)
			removed++
		}
	}

	return removed
}

// Len returns the number of tracked keys, elapsed or not.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.windows)
}

// Increment increments the counter for the given key
func (ms *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (Window, error) {
	if err := ctx.Err(); err != nil {
		return Window{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	entry, exists := ms.windows[key]
	if !exists || !now.Before(entry.end) {
		entry = &windowEntry{end: now.Add(window)}
		ms.windows[key] = entry
	}
	entry.count++

	return Window{Count: entry.count, End: entry.end}, nil
}

// Get retrieves the current window for the given key
func (ms *MemoryStore) Get(ctx context.Context, key string) (Window, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, exists := ms.windows[key]
	if !exists || !ms.now().Before(entry.end) {
		return Window{}, false, nil
	}

	return Window{Count: entry.count, End: entry.end}, true, nil
}

// Delete removes the key from storage
func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.windows, key)
	return nil
}

// Ping checks if the storage is accessible
func (ms *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the janitor. It is safe to call more than once.
func (ms *MemoryStore) Close() error {
	ms.stopOnce.Do(func() { close(ms.stopChan) })
	return nil
}
