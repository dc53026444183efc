package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Store.
//
// Designed for testing and one-shot CLI runs where persistence across
// processes isn't required. Thread-safe for concurrent access.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]Record   // id -> record
	byName  map[string][]string // workflow -> ids in save order
	closed  bool
}

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]Record),
		byName:  make(map[string][]string),
	}
}

// SaveReport persists a record in memory (implements Store).
func (m *MemStore) SaveReport(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	if _, exists := m.records[rec.ID]; !exists {
		m.byName[rec.Workflow] = append(m.byName[rec.Workflow], rec.ID)
	}
	m.records[rec.ID] = rec
	return nil
}

// LoadReport retrieves a record by ID (implements Store).
func (m *MemStore) LoadReport(ctx context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Record{}, errClosed
	}
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// LoadLatest retrieves the most recently saved record for a workflow
// (implements Store).
func (m *MemStore) LoadLatest(ctx context.Context, workflow string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Record{}, errClosed
	}
	ids := m.byName[workflow]
	if len(ids) == 0 {
		return Record{}, ErrNotFound
	}
	return m.records[ids[len(ids)-1]], nil
}

// ListReports returns records for a workflow, newest first (implements
// Store).
func (m *MemStore) ListReports(ctx context.Context, workflow string, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}
	ids := m.byName[workflow]
	recs := make([]Record, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		recs = append(recs, m.records[ids[i]])
	}
	// Save order and CreatedAt normally agree; sort so callers relying
	// on timestamps get a stable newest-first view either way.
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Close marks the store closed (implements Store). Double-close is a
// no-op.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
