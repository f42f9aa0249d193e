package runs

import (
	"context"
	"time"
)

// Repo defines persistence operations for extraction runs.
type Repo interface {
	Create(ctx context.Context, run Run) error
	GetByID(ctx context.Context, id string) (Run, error)
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error
	MarkCompleted(ctx context.Context, id, analyzerID, handle, resultKey string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, analyzerID, handle, class, detail string, completedAt time.Time) error
}
