package analyzer

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new analyzer record.
func (r *PGRepo) Create(ctx context.Context, a Analyzer) error {
	const query = `
INSERT INTO analyzers (id, status, schema_name, fingerprint, detail, created_at, ready_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		a.ID,
		a.Status,
		a.SchemaName,
		a.Fingerprint,
		a.Detail,
		a.CreatedAt,
		a.ReadyAt,
	)
	return err
}

// GetByID returns an analyzer by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Analyzer, error) {
	const query = `
SELECT id, status, schema_name, fingerprint, detail, created_at, ready_at
FROM analyzers WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// GetReadyByFingerprint returns the most recent ready analyzer for the
// fingerprint.
func (r *PGRepo) GetReadyByFingerprint(ctx context.Context, fingerprint string) (Analyzer, error) {
	const query = `
SELECT id, status, schema_name, fingerprint, detail, created_at, ready_at
FROM analyzers
WHERE fingerprint = $1 AND status = $2
ORDER BY created_at DESC
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, fingerprint, StatusReady))
}

// UpdateStatus records a status transition.
func (r *PGRepo) UpdateStatus(ctx context.Context, id, status, detail string, readyAt *time.Time) error {
	const query = `
UPDATE analyzers SET status = $2, detail = $3, ready_at = $4 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, status, detail, readyAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) scanOne(row *sql.Row) (Analyzer, error) {
	var a Analyzer
	var readyAt sql.NullTime
	err := row.Scan(&a.ID, &a.Status, &a.SchemaName, &a.Fingerprint, &a.Detail, &a.CreatedAt, &readyAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Analyzer{}, ErrNotFound
	}
	if err != nil {
		return Analyzer{}, err
	}
	if readyAt.Valid {
		t := readyAt.Time
		a.ReadyAt = &t
	}
	return a, nil
}

var _ Repo = (*PGRepo)(nil)
