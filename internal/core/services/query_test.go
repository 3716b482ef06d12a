package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aktsmm/powerplat-update/internal/adapters/driven/storage/memory"
	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

func newQueryFixture(t *testing.T) (*QueryService, *memory.ArticleStore, *memory.CheckpointStore) {
	t.Helper()
	articles := memory.NewArticleStore()
	checkpoints := memory.NewCheckpointStore()
	return NewQueryService(articles, checkpoints), articles, checkpoints
}

func seedArticle(t *testing.T, store *memory.ArticleStore, key, title, category string, date string) {
	t.Helper()
	article := domain.Article{
		Key:      key,
		Title:    title,
		Category: category,
	}
	if date != "" {
		d, err := time.Parse(domain.EffectiveDateLayout, date)
		require.NoError(t, err)
		article.EffectiveDate = &d
	}
	require.NoError(t, store.Upsert(context.Background(), article))
}

func TestQuerySearch_DefaultLimit(t *testing.T) {
	svc, articles, _ := newQueryFixture(t)
	ctx := context.Background()

	for i := 0; i < domain.DefaultSearchLimit+5; i++ {
		seedArticle(t, articles, string(rune('a'+i))+"/doc.md", "Item", "Power Apps", "2025-01-02")
	}

	got, err := svc.Search(ctx, domain.SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, got, domain.DefaultSearchLimit)
}

func TestQuerySearch_NewestFirst(t *testing.T) {
	svc, articles, _ := newQueryFixture(t)
	ctx := context.Background()

	seedArticle(t, articles, "r/old.md", "Old", "Power Apps", "2024-03-01")
	seedArticle(t, articles, "r/new.md", "New", "Power Apps", "2025-06-15")
	seedArticle(t, articles, "r/undated.md", "Undated", "Power Apps", "")

	got, err := svc.Search(ctx, domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "New", got[0].Title)
	assert.Equal(t, "Old", got[1].Title)
	assert.Equal(t, "Undated", got[2].Title, "undated records sort last")
}

func TestQuerySearch_InvalidInput(t *testing.T) {
	svc, _, _ := newQueryFixture(t)
	ctx := context.Background()

	_, err := svc.Search(ctx, domain.SearchFilter{Offset: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Search(ctx, domain.SearchFilter{DateFrom: &from, DateTo: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryGetByKey(t *testing.T) {
	svc, articles, _ := newQueryFixture(t)
	ctx := context.Background()

	seedArticle(t, articles, "power-apps/docs/whats-new.md", "New feature", "Power Apps", "2025-06-15")

	got, err := svc.GetByKey(ctx, "power-apps/docs/whats-new.md")
	require.NoError(t, err)
	assert.Equal(t, "New feature", got.Title)

	_, err = svc.GetByKey(ctx, "power-apps/docs/missing.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByKey(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryCheckpointStatus(t *testing.T) {
	svc, _, checkpoints := newQueryFixture(t)
	ctx := context.Background()

	// Empty store reads as a zero idle checkpoint, never an error.
	cp, err := svc.CheckpointStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncIdle, cp.Status)
	assert.True(t, cp.LastSuccessAt.IsZero())

	want := domain.Checkpoint{
		Status:        domain.SyncIdle,
		LastSuccessAt: time.Now().UTC().Truncate(time.Second),
		RecordCount:   7,
	}
	require.NoError(t, checkpoints.Save(ctx, want))

	cp, err = svc.CheckpointStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, cp)
}
