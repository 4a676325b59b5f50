package jobs

import (
	"context"
	"sync"
	"time"
)

type lease struct {
	owner   string
	expires time.Time
}

// MemoryStore keeps jobs and locks in process. It serves batch runs and
// deployments without Redis.
type MemoryStore struct {
	mu    sync.Mutex
	jobs  map[string]Job
	locks map[string]lease
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]Job),
		locks: make(map[string]lease),
		now:   time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &j, nil
}

func (m *MemoryStore) Put(_ context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := *job
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = m.now()
	}
	m.jobs[j.ID] = j
	return nil
}

func (m *MemoryStore) Lock(_ context.Context, outputPath, owner string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := lockName(outputPath)
	now := m.now()
	if l, ok := m.locks[name]; ok && now.Before(l.expires) {
		return ErrLocked
	}
	m.locks[name] = lease{owner: owner, expires: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) Unlock(_ context.Context, outputPath, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := lockName(outputPath)
	if l, ok := m.locks[name]; ok && l.owner == owner {
		delete(m.locks, name)
	}
	return nil
}
