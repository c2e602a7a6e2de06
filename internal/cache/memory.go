package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an unbounded in-process cache. There is no size eviction;
// expired entries are removed lazily when read.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	fetchedAt time.Time
	ttl       time.Duration
}

// NewMemory creates an in-process cache. A nil clock uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:     now,
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the entry for key while its age is below its TTL.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().Sub(e.fetchedAt) >= e.ttl {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.data, true, nil
}

// Set stores data stamped with the current time.
func (m *Memory) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{data: data, fetchedAt: m.now(), ttl: ttl}
	return nil
}

// Delete removes key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close does nothing for the memory cache.
func (m *Memory) Close() error {
	return nil
}

// Ensure Memory implements Cache.
var _ Cache = (*Memory)(nil)
