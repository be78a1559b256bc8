package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a map-backed Store for tests and cache-less deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]CacheRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]CacheRecord)}
}

func (m *MemoryStore) Get(_ context.Context, urlHash string) (*CacheRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[urlHash]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec
	return &out, nil
}

func (m *MemoryStore) Put(_ context.Context, rec *CacheRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	if prev, ok := m.recs[cp.URLHash]; ok {
		if cp.ID == "" {
			cp.ID = prev.ID
		}
		cp.TrueLabel = prev.TrueLabel
	}
	m.recs[cp.URLHash] = cp
	return nil
}

// Len reports the number of cached verdicts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recs)
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
