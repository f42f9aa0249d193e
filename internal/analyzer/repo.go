package analyzer

import (
	"context"
	"time"
)

// Repo defines persistence operations for analyzer records.
type Repo interface {
	Create(ctx context.Context, a Analyzer) error
	GetByID(ctx context.Context, id string) (Analyzer, error)
	GetReadyByFingerprint(ctx context.Context, fingerprint string) (Analyzer, error)
	UpdateStatus(ctx context.Context, id, status, detail string, readyAt *time.Time) error
}
