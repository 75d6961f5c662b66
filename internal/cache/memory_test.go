package cache

import (
	"testing"
	"time"
)

func TestMemoryIncrAndGet(t *testing.T) {
	m := NewMemory()

	if got := m.Get("k"); got != 0 {
		t.Fatalf("expected 0 for absent key, got %d", got)
	}

	if got := m.Incr("k", time.Hour); got != 1 {
		t.Fatalf("expected 1 after first incr, got %d", got)
	}
	if got := m.Incr("k", time.Hour); got != 2 {
		t.Fatalf("expected 2 after second incr, got %d", got)
	}
	if got := m.Get("k"); got != 2 {
		t.Fatalf("expected 2 from Get, got %d", got)
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	base := time.Now()
	m.now = func() time.Time { return base }

	m.Incr("k", time.Hour)

	m.now = func() time.Time { return base.Add(time.Hour + time.Second) }
	if got := m.Get("k"); got != 0 {
		t.Fatalf("expected expired key to read 0, got %d", got)
	}
	if got := m.Incr("k", time.Hour); got != 1 {
		t.Fatalf("expected expired key to restart at 1, got %d", got)
	}
}

func TestMemoryCleanupRemovesStaleEntries(t *testing.T) {
	m := NewMemory()
	now := time.Now()

	m.entries["stale"] = &entry{count: 3, expiresAt: now.Add(-time.Hour)}
	m.lastCleanup = now.Add(-cleanupInterval - time.Second)

	m.Incr("fresh", time.Hour)

	if _, exists := m.entries["stale"]; exists {
		t.Fatal("expected stale entry to be cleaned up")
	}
}
