package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driven"
)

// watermarkStore implements driven.WatermarkStore.
type watermarkStore struct {
	store *Store
}

var _ driven.WatermarkStore = (*watermarkStore)(nil)

// Save stores or updates a watermark.
func (s *watermarkStore) Save(ctx context.Context, mark domain.Watermark) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO watermarks (repo_id, latest_ref, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(repo_id) DO UPDATE SET
			latest_ref = excluded.latest_ref,
			updated_at = excluded.updated_at
	`, mark.RepoID, mark.LatestRef, encodeTime(mark.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving watermark: %w", err)
	}
	return nil
}

// Get retrieves the watermark for a repository.
func (s *watermarkStore) Get(ctx context.Context, repoID string) (*domain.Watermark, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT repo_id, latest_ref, updated_at FROM watermarks WHERE repo_id = ?
	`, repoID)

	mark, err := scanWatermark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return mark, err
}

// List returns all stored watermarks.
func (s *watermarkStore) List(ctx context.Context) ([]domain.Watermark, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT repo_id, latest_ref, updated_at FROM watermarks")
	if err != nil {
		return nil, fmt.Errorf("querying watermarks: %w", err)
	}
	defer rows.Close()

	var marks []domain.Watermark //nolint:prealloc // size unknown from query
	for rows.Next() {
		mark, err := scanWatermark(rows)
		if err != nil {
			return nil, err
		}
		marks = append(marks, *mark)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watermarks: %w", err)
	}

	return marks, nil
}

func scanWatermark(row rowScanner) (*domain.Watermark, error) {
	var mark domain.Watermark
	var updatedAt string
	if err := row.Scan(&mark.RepoID, &mark.LatestRef, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning watermark: %w", err)
	}

	var err error
	if mark.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing watermark time: %w", err)
	}
	return &mark, nil
}

// checkpointStore implements driven.CheckpointStore. The checkpoint is a
// single row with a fixed id.
type checkpointStore struct {
	store *Store
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Save stores the checkpoint, replacing any previous value.
func (s *checkpointStore) Save(ctx context.Context, cp domain.Checkpoint) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO checkpoint (id, last_success_at, status, record_count, last_duration_ms, last_error)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_success_at = excluded.last_success_at,
			status = excluded.status,
			record_count = excluded.record_count,
			last_duration_ms = excluded.last_duration_ms,
			last_error = excluded.last_error
	`, encodeTime(cp.LastSuccessAt), string(cp.Status), cp.RecordCount,
		cp.LastDurationMs, cp.LastError)
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// Get retrieves the checkpoint. A store with no checkpoint yet returns a
// zero checkpoint with idle status.
func (s *checkpointStore) Get(ctx context.Context) (domain.Checkpoint, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT last_success_at, status, record_count, last_duration_ms, last_error
		FROM checkpoint WHERE id = 1
	`)

	var cp domain.Checkpoint
	var lastSuccess, status string
	err := row.Scan(&lastSuccess, &status, &cp.RecordCount, &cp.LastDurationMs, &cp.LastError)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Checkpoint{Status: domain.SyncIdle}, nil
	}
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("scanning checkpoint: %w", err)
	}

	cp.Status = domain.SyncStatus(status)
	if cp.LastSuccessAt, err = decodeTime(lastSuccess); err != nil {
		return domain.Checkpoint{}, fmt.Errorf("parsing checkpoint time: %w", err)
	}
	return cp, nil
}
