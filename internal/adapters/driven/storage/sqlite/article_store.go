package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driven"
)

// articleColumns is the scan order shared by every article query.
const articleColumns = `key, repo_id, path, title, summary, category, effective_date,
	change_token, last_change_at, first_seen_at, source_url, canonical_url, updated_at`

// sortDateExpr is the ordering/filter date: the declared effective date
// when present, otherwise the date part of the remote change timestamp.
const sortDateExpr = `COALESCE(effective_date, substr(last_change_at, 1, 10))`

// articleStore implements driven.ArticleStore.
type articleStore struct {
	store *Store
}

var _ driven.ArticleStore = (*articleStore)(nil)

// Upsert inserts or updates an article. The full-text projection is
// maintained in the same transaction, and first_seen_at survives updates.
func (s *articleStore) Upsert(ctx context.Context, article domain.Article) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var effectiveDate sql.NullString
	if article.EffectiveDate != nil {
		effectiveDate = sql.NullString{
			String: article.EffectiveDate.Format(domain.EffectiveDateLayout),
			Valid:  true,
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			repo_id = excluded.repo_id,
			path = excluded.path,
			title = excluded.title,
			summary = excluded.summary,
			category = excluded.category,
			effective_date = excluded.effective_date,
			change_token = excluded.change_token,
			last_change_at = excluded.last_change_at,
			first_seen_at = articles.first_seen_at,
			source_url = excluded.source_url,
			canonical_url = excluded.canonical_url,
			updated_at = excluded.updated_at
	`, article.Key, article.RepoID, article.Path, article.Title, article.Summary,
		article.Category, effectiveDate, article.ChangeToken,
		encodeTime(article.LastChangeAt), encodeTime(article.FirstSeenAt),
		article.SourceURL, article.CanonicalURL, encodeTime(article.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving article: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM articles_fts WHERE key = ?", article.Key); err != nil {
		return fmt.Errorf("clearing article text index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO articles_fts (key, title, summary) VALUES (?, ?, ?)
	`, article.Key, article.Title, article.Summary); err != nil {
		return fmt.Errorf("indexing article text: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetByKey retrieves an article by key.
func (s *articleStore) GetByKey(ctx context.Context, key string) (*domain.Article, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE key = ?", key)
	return scanArticleRow(row)
}

// Search returns matching articles, newest first, undated records last.
func (s *articleStore) Search(ctx context.Context, filter domain.SearchFilter) ([]domain.Article, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Text != "" {
		conds = append(conds,
			"key IN (SELECT key FROM articles_fts WHERE articles_fts MATCH ?)")
		args = append(args, ftsQuery(filter.Text))
	}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.DateFrom != nil {
		conds = append(conds, sortDateExpr+" >= ?")
		args = append(args, filter.DateFrom.Format(domain.EffectiveDateLayout))
	}
	if filter.DateTo != nil {
		conds = append(conds, sortDateExpr+" <= ?")
		args = append(args, filter.DateTo.Format(domain.EffectiveDateLayout))
	}

	query := "SELECT " + articleColumns + " FROM articles"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	// An encoded zero sort date is the empty string and sorts after every
	// real date under DESC.
	query += " ORDER BY " + sortDateExpr + " DESC, key ASC"
	query += " LIMIT ? OFFSET ?"
	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // unlimited
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article //nolint:prealloc // size unknown from query
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating articles: %w", err)
	}

	return articles, nil
}

// Count returns the number of stored articles.
func (s *articleStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return count, nil
}

// DeleteByKey removes an article and its text projection.
func (s *articleStore) DeleteByKey(ctx context.Context, key string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM articles WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting article: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM articles_fts WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting article text index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ftsQuery quotes user text as an FTS5 phrase so query syntax characters
// in the input cannot change the query structure.
func ftsQuery(text string) string {
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticleRow(row *sql.Row) (*domain.Article, error) {
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return article, err
}

func scanArticle(row rowScanner) (*domain.Article, error) {
	var (
		article       domain.Article
		effectiveDate sql.NullString
		lastChange    string
		firstSeen     string
		updatedAt     string
	)

	err := row.Scan(&article.Key, &article.RepoID, &article.Path, &article.Title,
		&article.Summary, &article.Category, &effectiveDate, &article.ChangeToken,
		&lastChange, &firstSeen, &article.SourceURL, &article.CanonicalURL, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning article: %w", err)
	}

	if effectiveDate.Valid {
		d, err := time.Parse(domain.EffectiveDateLayout, effectiveDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing effective date: %w", err)
		}
		article.EffectiveDate = &d
	}
	if article.LastChangeAt, err = decodeTime(lastChange); err != nil {
		return nil, fmt.Errorf("parsing last change time: %w", err)
	}
	if article.FirstSeenAt, err = decodeTime(firstSeen); err != nil {
		return nil, fmt.Errorf("parsing first seen time: %w", err)
	}
	if article.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated time: %w", err)
	}

	return &article, nil
}
