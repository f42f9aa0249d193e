package schemadocs

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("schema not found")

// Repo defines persistence operations for schema records.
type Repo interface {
	Upsert(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
}
