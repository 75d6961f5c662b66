package cache

import (
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

// Memory is an in-process Counter. Shared by every request handler; all
// access goes through the mutex.
type Memory struct {
	mu          sync.Mutex
	entries     map[string]*entry
	lastCleanup time.Time

	// now is overridable in tests.
	now func() time.Time
}

type entry struct {
	count     int
	expiresAt time.Time
}

// NewMemory creates an empty in-memory counter store.
func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[string]*entry),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (m *Memory) Get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || now.After(e.expiresAt) {
		m.cleanupLocked(now)
		return 0
	}
	return e.count
}

func (m *Memory) Incr(key string, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || now.After(e.expiresAt) {
		m.entries[key] = &entry{count: 1, expiresAt: now.Add(ttl)}
		m.cleanupLocked(now)
		return 1
	}

	e.count++
	m.cleanupLocked(now)
	return e.count
}

func (m *Memory) cleanupLocked(now time.Time) {
	if now.Sub(m.lastCleanup) < cleanupInterval {
		return
	}

	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
		}
	}

	m.lastCleanup = now
}
