package services

import (
	"context"
	"fmt"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driven"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driving"
	"github.com/aktsmm/powerplat-update/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService exposes read access to the article cache. Reads are safe
// while a sync is in flight and may see a partially-updated cache.
type QueryService struct {
	articles    driven.ArticleStore
	checkpoints driven.CheckpointStore
}

// NewQueryService creates a query service.
func NewQueryService(articles driven.ArticleStore, checkpoints driven.CheckpointStore) *QueryService {
	return &QueryService{articles: articles, checkpoints: checkpoints}
}

// Search returns articles matching the filter, newest first.
func (s *QueryService) Search(ctx context.Context, filter domain.SearchFilter) ([]domain.Article, error) {
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultSearchLimit
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", domain.ErrInvalidInput)
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, fmt.Errorf("%w: date range is inverted", domain.ErrInvalidInput)
	}

	logger.Debug("search: text=%q category=%q limit=%d offset=%d",
		filter.Text, filter.Category, filter.Limit, filter.Offset)

	return s.articles.Search(ctx, filter)
}

// GetByKey retrieves one article, or domain.ErrNotFound.
func (s *QueryService) GetByKey(ctx context.Context, key string) (*domain.Article, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", domain.ErrInvalidInput)
	}
	return s.articles.GetByKey(ctx, key)
}

// CheckpointStatus returns the current sync checkpoint.
func (s *QueryService) CheckpointStatus(ctx context.Context) (domain.Checkpoint, error) {
	return s.checkpoints.Get(ctx)
}
