package driven

import (
	"context"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

// WatermarkStore persists per-repository head pointers.
// Only the sync orchestrator writes watermarks.
type WatermarkStore interface {
	// Save stores or updates a watermark.
	Save(ctx context.Context, mark domain.Watermark) error

	// Get retrieves the watermark for a repository, or domain.ErrNotFound.
	Get(ctx context.Context, repoID string) (*domain.Watermark, error)

	// List returns all stored watermarks.
	List(ctx context.Context) ([]domain.Watermark, error)
}

// CheckpointStore persists the singleton sync checkpoint.
// Only the sync orchestrator writes the checkpoint.
type CheckpointStore interface {
	// Save stores the checkpoint, replacing any previous value.
	Save(ctx context.Context, cp domain.Checkpoint) error

	// Get retrieves the checkpoint. A store with no checkpoint yet
	// returns a zero checkpoint with idle status, not an error.
	Get(ctx context.Context) (domain.Checkpoint, error)
}
