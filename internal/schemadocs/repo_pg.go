package schemadocs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	pgUpsertSchema = `INSERT INTO schema_documents (id, name, description, fingerprint, blob_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			fingerprint = EXCLUDED.fingerprint,
			blob_key = EXCLUDED.blob_key,
			updated_at = EXCLUDED.updated_at`

	pgSelectSchema = `SELECT id, name, description, fingerprint, blob_key, created_at, updated_at
		FROM schema_documents WHERE id = $1`
)

// PGRepo stores schema records in Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, rec Record) error {
	_, err := r.DB.ExecContext(ctx, pgUpsertSchema,
		rec.ID, rec.Name, rec.Description, rec.Fingerprint, rec.BlobKey,
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert schema: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Record, error) {
	row := r.DB.QueryRowContext(ctx, pgSelectSchema, id)

	var rec Record
	err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.Fingerprint,
		&rec.BlobKey, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("select schema: %w", err)
	}
	return rec, nil
}
