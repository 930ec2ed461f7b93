package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is what the watcher remembers about one lead between notifications.
type Memory struct {
	// LastObserved is the status seen on the previous notification.
	LastObserved string
	// Previous is the last status seen that was not the trigger.
	Previous string
}

// StatusMemory stores per-lead watcher memory.
type StatusMemory interface {
	Load(ctx context.Context, leadID uuid.UUID) (Memory, bool, error)
	Store(ctx context.Context, leadID uuid.UUID, memory Memory) error
	Forget(ctx context.Context, leadID uuid.UUID) error
}

type memoryEntry struct {
	memory    Memory
	expiresAt time.Time
}

// InMemoryStatusMemory keeps watcher memory in process. Entries expire after
// the configured TTL; a zero TTL keeps them forever.
type InMemoryStatusMemory struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryStatusMemory creates an empty in-process memory.
func NewInMemoryStatusMemory(ttl time.Duration) *InMemoryStatusMemory {
	return &InMemoryStatusMemory{
		entries: make(map[uuid.UUID]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *InMemoryStatusMemory) Load(_ context.Context, leadID uuid.UUID) (Memory, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[leadID]
	if !ok {
		return Memory{}, false, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.entries, leadID)
		return Memory{}, false, nil
	}
	return entry.memory, true, nil
}

func (m *InMemoryStatusMemory) Store(_ context.Context, leadID uuid.UUID, memory Memory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{memory: memory}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[leadID] = entry
	return nil
}

func (m *InMemoryStatusMemory) Forget(_ context.Context, leadID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, leadID)
	return nil
}

var _ StatusMemory = (*InMemoryStatusMemory)(nil)
