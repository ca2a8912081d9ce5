package keylock

import (
	"context"
	"sync"
	"time"
)

type clocker interface {
	Now() time.Time
}

type memoryEntry struct {
	owner   uint64
	expires time.Time
}

// Memory is a process-local Locker.
type Memory struct {
	mu    sync.Mutex
	clock clocker
	seq   uint64
	locks map[string]memoryEntry
}

// NewMemory returns an empty process-local locker.
func NewMemory(clock clocker) *Memory {
	return &Memory{clock: clock, locks: make(map[string]memoryEntry)}
}

// Acquire takes key unless a live lock exists.
func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if e, ok := m.locks[key]; ok && now.Before(e.expires) {
		return nil, ErrLocked
	}

	m.seq++
	owner := m.seq
	m.locks[key] = memoryEntry{owner: owner, expires: now.Add(normalizeTTL(ttl))}

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if e, ok := m.locks[key]; ok && e.owner == owner {
			delete(m.locks, key)
		}
		return nil
	}, nil
}
