package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	timestamp time.Time
	ttl       time.Duration
}

func (e entry) valid(now time.Time) bool {
	return now.Sub(e.timestamp) < e.ttl
}

// MemoryBackend keeps entries in process. Expired entries are dropped on
// the lookup that finds them stale.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

type MemoryOption func(*MemoryBackend)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(b *MemoryBackend) { b.now = now }
}

func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.valid(b.now()) {
		delete(b.entries, key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	b.mu.Lock()
	b.entries[key] = entry{data: data, timestamp: b.now(), ttl: ttl}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Clear(context.Context) error {
	b.mu.Lock()
	b.entries = make(map[string]entry)
	b.mu.Unlock()
	return nil
}

// Len counts stored entries, expired or not.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
