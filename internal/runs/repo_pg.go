package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	pgInsertRun = `INSERT INTO extraction_runs
		(id, schema_id, analyzer_id, operation_handle, document_refs, pages, locale, status, error_class, error_detail, result_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	pgSelectRun = `SELECT id, schema_id, analyzer_id, operation_handle, document_refs, pages, locale,
		status, error_class, error_detail, result_key, created_at, started_at, completed_at
		FROM extraction_runs WHERE id = $1`

	pgMarkProcessing = `UPDATE extraction_runs SET status = $2, started_at = $3 WHERE id = $1`

	pgMarkCompleted = `UPDATE extraction_runs
		SET status = $2, analyzer_id = $3, operation_handle = $4, result_key = $5,
		    error_class = '', error_detail = '', completed_at = $6
		WHERE id = $1`

	pgMarkFailed = `UPDATE extraction_runs
		SET status = $2, analyzer_id = $3, operation_handle = $4, error_class = $5, error_detail = $6, completed_at = $7
		WHERE id = $1`
)

// PGRepo stores runs in Postgres. Document refs are kept as a JSONB
// array alongside the run row.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, run Run) error {
	refs, err := json.Marshal(run.DocumentRefs)
	if err != nil {
		return fmt.Errorf("marshal document refs: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, pgInsertRun,
		run.ID, run.SchemaID, run.AnalyzerID, run.OperationHandle, refs,
		run.Pages, run.Locale, run.Status, run.ErrorClass, run.ErrorDetail,
		run.ResultKey, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Run, error) {
	row := r.DB.QueryRowContext(ctx, pgSelectRun, id)

	var (
		run       Run
		refs      []byte
		started   sql.NullTime
		completed sql.NullTime
	)
	err := row.Scan(&run.ID, &run.SchemaID, &run.AnalyzerID, &run.OperationHandle,
		&refs, &run.Pages, &run.Locale, &run.Status, &run.ErrorClass,
		&run.ErrorDetail, &run.ResultKey, &run.CreatedAt, &started, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("select run: %w", err)
	}
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &run.DocumentRefs); err != nil {
			return Run{}, fmt.Errorf("unmarshal document refs: %w", err)
		}
	}
	if started.Valid {
		t := started.Time
		run.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	return run, nil
}

func (r *PGRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	return r.exec(ctx, pgMarkProcessing, id, StatusProcessing, startedAt)
}

func (r *PGRepo) MarkCompleted(ctx context.Context, id, analyzerID, handle, resultKey string, completedAt time.Time) error {
	return r.exec(ctx, pgMarkCompleted, id, StatusCompleted, analyzerID, handle, resultKey, completedAt)
}

func (r *PGRepo) MarkFailed(ctx context.Context, id, analyzerID, handle, class, detail string, completedAt time.Time) error {
	return r.exec(ctx, pgMarkFailed, id, StatusFailed, analyzerID, handle, class, detail, completedAt)
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
