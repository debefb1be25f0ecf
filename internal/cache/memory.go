package cache

import (
	"context"
	"sync"
	"time"
)

// entry is immutable once stored; Put swaps the whole value so concurrent
// readers never observe a partially written entry
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Memory is the in-process cache. TTL is enforced at read time (lazy
// expiry); Sweep exists only to bound memory, never for correctness.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemory creates an empty in-process cache
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Get returns the value for key, treating expired entries as misses
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if e.expired(m.now()) {
		// Lazy eviction; re-check under the write lock in case a fresh
		// entry was swapped in meanwhile
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expired(m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	return e.value, true, nil
}

// Put stores value under key. Last write wins.
func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := &entry{value: value, expiresAt: m.now().Add(ttl)}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Health always succeeds for the in-process store
func (m *Memory) Health(_ context.Context) error {
	return nil
}

// Sweep removes expired entries and returns how many were evicted.
// Called opportunistically by the eviction worker.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of stored entries, including not-yet-swept ones
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
