package driven

import (
	"context"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

// ArticleStore persists articles and their full-text projection.
// Backed by SQLite with an FTS5 index over title and summary; the index
// is updated within the same transaction as the record so the two never
// diverge.
type ArticleStore interface {
	// Upsert inserts or updates an article keyed by Key. On update every
	// field is overwritten except FirstSeenAt, which coalesces to the
	// existing value. Idempotent.
	Upsert(ctx context.Context, article domain.Article) error

	// GetByKey retrieves an article, or domain.ErrNotFound.
	GetByKey(ctx context.Context, key string) (*domain.Article, error)

	// Search returns articles matching the filter, ordered by effective
	// date or change timestamp descending, undated records last.
	Search(ctx context.Context, filter domain.SearchFilter) ([]domain.Article, error)

	// Count returns the total number of cached articles.
	Count(ctx context.Context) (int, error)

	// DeleteByKey removes an article. The sync engine never calls this;
	// it exists as a hook for a future reconciliation pass over records
	// whose remote file disappeared.
	DeleteByKey(ctx context.Context, key string) error
}
