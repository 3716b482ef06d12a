package services

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aktsmm/powerplat-update/internal/adapters/driven/storage/memory"
	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driven"
)

var syncRepo = domain.TrackedRepo{
	ID:          "power-apps",
	Owner:       "MicrosoftDocs",
	Name:        "powerapps-docs",
	PathPrefix:  "docs",
	FilePattern: "whats-new*.md",
	Category:    "Power Apps",
}

// syncFixture bundles an orchestrator with its fake dependencies.
type syncFixture struct {
	source      *fakeSource
	articles    *memory.ArticleStore
	watermarks  *memory.WatermarkStore
	checkpoints *memory.CheckpointStore
	orch        *SyncOrchestrator
}

func newSyncFixture(cfg OrchestratorConfig) *syncFixture {
	f := &syncFixture{
		source:      newFakeSource(),
		articles:    memory.NewArticleStore(),
		watermarks:  memory.NewWatermarkStore(),
		checkpoints: memory.NewCheckpointStore(),
	}
	if cfg.MinSyncInterval == 0 {
		cfg.MinSyncInterval = time.Nanosecond
	}
	f.orch = NewSyncOrchestrator(
		f.source, f.articles, f.watermarks, f.checkpoints,
		[]domain.TrackedRepo{syncRepo}, cfg,
	)
	return f
}

const articleBody = `---
title: New feature
description: A new feature shipped.
ms.date: 06/15/2025
---
`

func TestRunSync_FirstSyncCreatesRecords(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new.md", "sha-a", articleBody)
	f.source.addFile("power-apps", "docs/whats-new-june.md", "sha-b", "# June updates\n\nSummary line.\n")
	f.source.addFile("power-apps", "docs/other.md", "sha-c", "# Not eligible\n")

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.UpdatedCount)
	assert.Zero(t, result.FailedCount)
	assert.Zero(t, result.DeferredCount)
	assert.NotEmpty(t, result.RunID)

	article, err := f.articles.GetByKey(ctx, "power-apps/docs/whats-new.md")
	require.NoError(t, err)
	assert.Equal(t, "New feature", article.Title)
	assert.Equal(t, "A new feature shipped.", article.Summary)
	assert.Equal(t, "Power Apps", article.Category)
	assert.Equal(t, "sha-a", article.ChangeToken)
	require.NotNil(t, article.EffectiveDate)
	assert.Equal(t, "2025-06-15", article.EffectiveDate.Format(domain.EffectiveDateLayout))
	assert.Contains(t, article.SourceURL, "raw.githubusercontent.com")
	assert.Contains(t, article.CanonicalURL, "github.com")
	assert.False(t, article.FirstSeenAt.IsZero())

	mark, err := f.watermarks.Get(ctx, "power-apps")
	require.NoError(t, err)
	assert.Equal(t, "head1", mark.LatestRef)

	cp, err := f.checkpoints.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncIdle, cp.Status)
	assert.False(t, cp.LastSuccessAt.IsZero())
	assert.Equal(t, 2, cp.RecordCount)
}

func TestRunSync_HeadingFallbackTitle(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new-blank.md", "sha-a", "\n\n")

	result := f.orch.RunSync(ctx, domain.SyncOptions{})
	require.True(t, result.Success)

	article, err := f.articles.GetByKey(ctx, "power-apps/docs/whats-new-blank.md")
	require.NoError(t, err)
	assert.Equal(t, "whats new blank", article.Title, "filename-derived fallback title")
}

func TestRunSync_MinIntervalGuard(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{MinSyncInterval: time.Hour})
	ctx := context.Background()

	require.NoError(t, f.checkpoints.Save(ctx, domain.Checkpoint{
		Status:        domain.SyncIdle,
		LastSuccessAt: time.Now().Add(-time.Minute),
	}))

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.True(t, result.Success)
	assert.Zero(t, result.UpdatedCount)
	assert.Zero(t, f.source.remoteCalls, "guarded run must not touch the remote API")
}

func TestRunSync_PointerSkip(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new.md", "sha-a", articleBody)

	first := f.orch.RunSync(ctx, domain.SyncOptions{})
	require.True(t, first.Success)

	cpBefore, err := f.checkpoints.Get(ctx)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	second := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.True(t, second.Success)
	assert.Zero(t, second.UpdatedCount)
	assert.Zero(t, f.source.fetchCallCount()-1, "no file fetches beyond the first run")

	cpAfter, err := f.checkpoints.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncIdle, cpAfter.Status)
	assert.True(t, cpAfter.LastSuccessAt.After(cpBefore.LastSuccessAt),
		"a pointer-skip run still refreshes the checkpoint timestamp")
}

func TestRunSync_UpsertIdempotent(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new.md", "sha-a", articleBody)

	first := f.orch.RunSync(ctx, domain.SyncOptions{})
	require.True(t, first.Success)

	// Force bypasses both the interval guard and the pointer check, so
	// the same content is re-processed end to end.
	second := f.orch.RunSync(ctx, domain.SyncOptions{Force: true})
	require.True(t, second.Success)

	count, err := f.articles.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-applying the same record must not duplicate rows")
}

func TestRunSync_FirstSeenPreservedAcrossContentChange(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new.md", "sha-a1", articleBody)

	require.True(t, f.orch.RunSync(ctx, domain.SyncOptions{}).Success)
	original, err := f.articles.GetByKey(ctx, "power-apps/docs/whats-new.md")
	require.NoError(t, err)

	// Remote content changed: new blob SHA, new head.
	f.source.refs["power-apps"] = "head2"
	f.source.addFile("power-apps", "docs/whats-new.md", "sha-a2", "---\ntitle: Updated\n---\n")

	time.Sleep(2 * time.Millisecond)
	require.True(t, f.orch.RunSync(ctx, domain.SyncOptions{}).Success)

	updated, err := f.articles.GetByKey(ctx, "power-apps/docs/whats-new.md")
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Title)
	assert.Equal(t, "sha-a2", updated.ChangeToken)
	assert.Equal(t, original.FirstSeenAt, updated.FirstSeenAt,
		"first-seen must survive any number of refreshes")
}

func TestRunSync_WatermarkNotAdvancedOnPartialFailure(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new-a.md", "sha-a", articleBody)
	f.source.addFile("power-apps", "docs/whats-new-b.md", "sha-b", articleBody)
	f.source.fetchErrs["sha-b"] = errors.New("blob unavailable")

	cpBefore, err := f.checkpoints.Get(ctx)
	require.NoError(t, err)

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.UpdatedCount, "partial success is visible via the count")
	assert.Equal(t, 1, result.FailedCount)
	assert.Contains(t, result.Err, "whats-new-b.md")

	_, err = f.watermarks.Get(ctx, "power-apps")
	assert.ErrorIs(t, err, domain.ErrNotFound, "watermark must not advance past a failed file")

	cpAfter, err := f.checkpoints.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, cpBefore.LastSuccessAt, cpAfter.LastSuccessAt,
		"sync timestamp withheld so the failed file is retried")
	assert.Equal(t, domain.SyncError, cpAfter.Status)

	// Next run retries only the failed file and converges.
	delete(f.source.fetchErrs, "sha-b")
	retry := f.orch.RunSync(ctx, domain.SyncOptions{})
	assert.True(t, retry.Success)
	assert.Equal(t, 1, retry.UpdatedCount, "only the previously failed file is re-attempted")
}

func TestRunSync_RemoteDeletionSkipped(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new-a.md", "sha-a", articleBody)
	first := f.orch.RunSync(ctx, domain.SyncOptions{})
	require.True(t, first.Success)

	// Since the last pass one file changed and another was deleted; the
	// commit window names both, but only the survivor is fetchable.
	f.source.refs["power-apps"] = "head2"
	f.source.addFile("power-apps", "docs/whats-new-a.md", "sha-a2", articleBody)
	f.source.commits["power-apps"] = []driven.Commit{{
		SHA:       "c2",
		Timestamp: time.Now().UTC(),
		ChangedPaths: []string{
			"docs/whats-new-a.md",
			"docs/whats-new-gone.md",
		},
	}}

	result := f.orch.RunSync(ctx, domain.SyncOptions{Incremental: true})

	assert.True(t, result.Success, "a deleted file must not fail the run")
	assert.Equal(t, 1, result.UpdatedCount)
	assert.Zero(t, result.FailedCount)

	mark, err := f.watermarks.Get(ctx, "power-apps")
	require.NoError(t, err)
	assert.Equal(t, "head2", mark.LatestRef, "watermark advances past the deletion")

	// With the watermark advanced the deletion commit drops out of the
	// next incremental window instead of failing every scheduled run.
	again := f.orch.RunSync(ctx, domain.SyncOptions{Incremental: true})
	assert.True(t, again.Success)
	assert.Zero(t, again.FailedCount)
}

func TestRunSync_CapDeferral(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		f.source.addFile("power-apps", "docs/whats-new-"+name+".md", "sha-"+name, articleBody)
	}

	cpBefore, err := f.checkpoints.Get(ctx)
	require.NoError(t, err)

	result := f.orch.RunSync(ctx, domain.SyncOptions{MaxFiles: 2})

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.UpdatedCount)
	assert.Equal(t, 3, result.DeferredCount)
	assert.Zero(t, result.FailedCount)

	count, err := f.articles.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	cpAfter, err := f.checkpoints.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, cpBefore.LastSuccessAt, cpAfter.LastSuccessAt,
		"timestamp must not advance past deferred candidates")

	_, err = f.watermarks.Get(ctx, "power-apps")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunSync_ConfiguredDefaultCap(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{DefaultMaxFiles: 1})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new-a.md", "sha-a", articleBody)
	f.source.addFile("power-apps", "docs/whats-new-b.md", "sha-b", articleBody)

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.Equal(t, 1, result.UpdatedCount)
	assert.Equal(t, 1, result.DeferredCount)

	// An explicit per-run cap still wins over the configured default.
	result = f.orch.RunSync(ctx, domain.SyncOptions{Force: true, MaxFiles: 5})
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.UpdatedCount)
}

func TestRunSync_RateLimitAbortsRun(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{FetchConcurrency: 1})
	ctx := context.Background()

	resetAt := time.Now().Add(42 * time.Minute).UTC()
	f.source.refs["power-apps"] = "head1"
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		f.source.addFile("power-apps", "docs/whats-new-"+name+".md", "sha-"+name, articleBody)
	}
	f.source.failFetchAfter = 2
	f.source.fetchErr = &domain.RateLimitError{ResetAt: resetAt}

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.UpdatedCount, "upserts before the limit stay persisted")
	assert.Equal(t, 1, result.FailedCount, "only the call that hit the limit fails")
	assert.Equal(t, 2, result.DeferredCount, "unattempted candidates are deferred, not failed")
	assert.Contains(t, result.Err, resetAt.Format(time.RFC3339), "error reports the reset time")
	assert.Equal(t, 3, f.source.fetchCallCount(), "no further remote calls after the limit")

	count, err := f.articles.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunSync_UnauthorizedAbortsRun(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{FetchConcurrency: 1})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	for _, name := range []string{"a", "b", "c", "d"} {
		f.source.addFile("power-apps", "docs/whats-new-"+name+".md", "sha-"+name, articleBody)
	}
	f.source.failFetchAfter = 1
	f.source.fetchErr = fmt.Errorf("fetch blob: %w", domain.ErrUnauthorized)

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.UpdatedCount, "upserts before the rejection stay persisted")
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, 2, result.DeferredCount, "dead credentials defer the rest, not fail it")
	assert.Contains(t, result.Err, "unauthorized")
	assert.Equal(t, 2, f.source.fetchCallCount(), "no further remote calls after the rejection")
}

func TestRunSync_UnauthorizedPointerCheckFailsRun(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refErrs["power-apps"] = fmt.Errorf("get ref: %w", domain.ErrUnauthorized)

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.False(t, result.Success)
	assert.Zero(t, result.UpdatedCount)
	assert.Contains(t, result.Err, "unauthorized")
	assert.Equal(t, 1, f.source.remoteCalls, "no detection work with rejected credentials")
}

func TestRunSync_TruncatedListingFailsRepo(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.treeErrs["power-apps"] = domain.ErrTruncatedListing

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "truncated")
	_, err := f.watermarks.Get(ctx, "power-apps")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunSync_StaleSyncingCheckpointReset(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	// A previous process died mid-run.
	require.NoError(t, f.checkpoints.Save(ctx, domain.Checkpoint{Status: domain.SyncRunning}))

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new.md", "sha-a", articleBody)

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.True(t, result.Success)
	cp, err := f.checkpoints.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncIdle, cp.Status)
}

func TestRunSync_StaleSyncingResetPersistedOnGuardedRun(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{MinSyncInterval: time.Hour})
	ctx := context.Background()

	// The previous process died mid-run shortly after a success, so the
	// interval guard will skip this run entirely.
	require.NoError(t, f.checkpoints.Save(ctx, domain.Checkpoint{
		Status:        domain.SyncRunning,
		LastSuccessAt: time.Now().UTC(),
	}))

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.True(t, result.Success)
	assert.Zero(t, f.source.remoteCalls)

	cp, err := f.checkpoints.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncIdle, cp.Status,
		"the stale status is cleared in the store, not just in memory")
}

func TestRunSync_ConcurrentTriggerJoinsInFlightRun(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{FetchConcurrency: 1})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new.md", "sha-a", articleBody)
	f.source.blockFetch = make(chan struct{})

	results := make([]domain.SyncResult, 2)
	var wg stdsync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			results[i] = f.orch.RunSync(ctx, domain.SyncOptions{Force: true})
		}()
	}

	// Let both triggers race, then release the single blocked fetch.
	time.Sleep(20 * time.Millisecond)
	close(f.source.blockFetch)
	wg.Wait()

	assert.Equal(t, results[0].RunID, results[1].RunID, "second trigger joins the first run")
	assert.Equal(t, 1, f.source.fetchCallCount(), "only one run actually executed")

	count, err := f.articles.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, f.orch.Running())
}

func TestRunSync_PointerCheckFailureFallsBackToSync(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	// Head pointer unavailable, but the tree listing works: the repo must
	// still be synced rather than skipped.
	f.source.refErrs["power-apps"] = errors.New("ref unavailable")
	f.source.addFile("power-apps", "docs/whats-new.md", "sha-a", articleBody)

	result := f.orch.RunSync(ctx, domain.SyncOptions{})

	assert.Equal(t, 1, result.UpdatedCount)
}

func TestSyncIfStale_RunsInBackground(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	f.source.refs["power-apps"] = "head1"
	f.source.addFile("power-apps", "docs/whats-new.md", "sha-a", articleBody)

	f.orch.SyncIfStale(time.Nanosecond)

	require.Eventually(t, func() bool {
		count, err := f.articles.Count(ctx)
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncIfStale_FreshCacheNoRun(t *testing.T) {
	f := newSyncFixture(OrchestratorConfig{})
	ctx := context.Background()

	require.NoError(t, f.checkpoints.Save(ctx, domain.Checkpoint{
		Status:        domain.SyncIdle,
		LastSuccessAt: time.Now(),
	}))

	f.orch.SyncIfStale(time.Hour)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.source.remoteCalls)
}
