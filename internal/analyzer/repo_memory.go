package analyzer

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Analyzer
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Analyzer)}
}

// Create stores a new analyzer record.
func (r *MemoryRepo) Create(ctx context.Context, a Analyzer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[a.ID] = a
	return nil
}

// GetByID returns an analyzer by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Analyzer, error) {
	if err := ctx.Err(); err != nil {
		return Analyzer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.data[id]
	if !ok {
		return Analyzer{}, ErrNotFound
	}
	return a, nil
}

// GetReadyByFingerprint returns any ready analyzer carrying the fingerprint.
func (r *MemoryRepo) GetReadyByFingerprint(ctx context.Context, fingerprint string) (Analyzer, error) {
	if err := ctx.Err(); err != nil {
		return Analyzer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.data {
		if a.Fingerprint == fingerprint && a.Status == StatusReady {
			return a, nil
		}
	}
	return Analyzer{}, ErrNotFound
}

// UpdateStatus records a status transition.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, id, status, detail string, readyAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.Detail = detail
	a.ReadyAt = readyAt
	r.data[id] = a
	return nil
}
