package driving

import (
	"context"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

// QueryService exposes read access to the article cache.
// Reads may proceed while a sync is in flight; results can reflect a
// partially-updated cache, which is acceptable for this use case.
type QueryService interface {
	// Search returns articles matching the filter, newest first.
	Search(ctx context.Context, filter domain.SearchFilter) ([]domain.Article, error)

	// GetByKey retrieves one article, or domain.ErrNotFound.
	GetByKey(ctx context.Context, key string) (*domain.Article, error)

	// CheckpointStatus returns the current sync checkpoint.
	CheckpointStatus(ctx context.Context) (domain.Checkpoint, error)
}
