package devicecache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	info      Info
	expiresAt time.Time
}

// Memory is a process-local store. Expired entries are swept on every Put.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Memory{ttl: ttl, entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *Memory) Put(_ context.Context, info Info) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}

	key := newKey()
	m.entries[key] = memoryEntry{info: info, expiresAt: now.Add(m.ttl)}
	return key, nil
}

func (m *Memory) Take(_ context.Context, key string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Info{}, ErrNotFound
	}
	delete(m.entries, key)
	if !m.now().Before(e.expiresAt) {
		return Info{}, ErrNotFound
	}
	return e.info, nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
