package schemadocs

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo used in tests and when no database
// is configured.
type MemoryRepo struct {
	mu   sync.RWMutex
	recs map[string]Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{recs: make(map[string]Record)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.recs[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	r.recs[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}
