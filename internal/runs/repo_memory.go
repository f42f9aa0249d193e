package runs

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used in tests and when no database
// is configured.
type MemoryRepo struct {
	mu   sync.RWMutex
	runs map[string]Run
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{runs: make(map[string]Run)}
}

func (r *MemoryRepo) Create(ctx context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return ErrNotFound
	}
	run.Status = StatusProcessing
	run.StartedAt = &startedAt
	r.runs[id] = run
	return nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, id, analyzerID, handle, resultKey string, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return ErrNotFound
	}
	run.Status = StatusCompleted
	run.AnalyzerID = analyzerID
	run.OperationHandle = handle
	run.ResultKey = resultKey
	run.CompletedAt = &completedAt
	run.ErrorClass = ""
	run.ErrorDetail = ""
	r.runs[id] = run
	return nil
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, id, analyzerID, handle, class, detail string, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return ErrNotFound
	}
	run.Status = StatusFailed
	run.AnalyzerID = analyzerID
	run.OperationHandle = handle
	run.ErrorClass = class
	run.ErrorDetail = detail
	run.CompletedAt = &completedAt
	r.runs[id] = run
	return nil
}
