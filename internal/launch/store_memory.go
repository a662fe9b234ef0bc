package launch

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryStore is an in-process Store implementation. It backs the unit tests
// and store-less local development; production uses the Redis store.
type MemoryStore struct {
	clock clockwork.Clock

	mu        sync.Mutex
	counter   int64
	launches  []time.Time
	cooldowns map[string]time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		clock:     clock,
		cooldowns: make(map[string]time.Time),
	}
}

func (m *MemoryStore) IncrementCounter(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return m.counter, nil
}

func (m *MemoryStore) Counter(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counter, nil
}

func (m *MemoryStore) RecordLaunch(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launches = append(m.launches, at)
	return nil
}

func (m *MemoryStore) CountLaunches(_ context.Context, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, at := range m.launches {
		if !at.Before(from) && !at.After(to) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) PruneLaunches(_ context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.launches[:0]
	for _, at := range m.launches {
		if !at.Before(before) {
			kept = append(kept, at)
		}
	}
	m.launches = kept
	return nil
}

func (m *MemoryStore) TryCooldown(_ context.Context, clientID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	if expiry, ok := m.cooldowns[clientID]; ok && now.Before(expiry) {
		return false, nil
	}
	m.cooldowns[clientID] = now.Add(ttl)
	return true, nil
}
