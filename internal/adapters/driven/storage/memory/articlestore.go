// Package memory provides in-memory implementations of the driven store
// ports, used in tests and as reference implementations.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driven"
)

// Ensure ArticleStore implements the interface.
var _ driven.ArticleStore = (*ArticleStore)(nil)

// ArticleStore is an in-memory implementation of driven.ArticleStore.
type ArticleStore struct {
	mu       sync.RWMutex
	articles map[string]domain.Article
}

// NewArticleStore creates a new in-memory article store.
func NewArticleStore() *ArticleStore {
	return &ArticleStore{
		articles: make(map[string]domain.Article),
	}
}

// Upsert inserts or updates an article, preserving FirstSeenAt on update.
func (s *ArticleStore) Upsert(_ context.Context, article domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.articles[article.Key]; ok {
		article = article.Merge(&existing)
	}
	s.articles[article.Key] = article
	return nil
}

// GetByKey retrieves an article by key.
func (s *ArticleStore) GetByKey(_ context.Context, key string) (*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	article, ok := s.articles[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &article, nil
}

// Search returns matching articles, newest first, undated records last.
func (s *ArticleStore) Search(_ context.Context, filter domain.SearchFilter) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Article
	for _, article := range s.articles {
		if !matches(article, filter) {
			continue
		}
		matched = append(matched, article)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SortDate().After(matched[j].SortDate())
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Count returns the number of stored articles.
func (s *ArticleStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles), nil
}

// DeleteByKey removes an article.
func (s *ArticleStore) DeleteByKey(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.articles, key)
	return nil
}

// matches applies the search filter to one article.
func matches(article domain.Article, filter domain.SearchFilter) bool {
	if filter.Category != "" && article.Category != filter.Category {
		return false
	}
	if filter.Text != "" {
		needle := strings.ToLower(filter.Text)
		haystack := strings.ToLower(article.Title + " " + article.Summary)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	// Date bounds are inclusive at day granularity, matching the SQLite
	// store's date-string comparison.
	sortDate := article.SortDate().UTC()
	day := time.Date(sortDate.Year(), sortDate.Month(), sortDate.Day(), 0, 0, 0, 0, time.UTC)
	if filter.DateFrom != nil && day.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && day.After(*filter.DateTo) {
		return false
	}
	return true
}
