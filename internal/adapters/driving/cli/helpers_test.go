package cli

import (
	"context"
	"time"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

// mockQuery is a test double for driving.QueryService.
type mockQuery struct {
	articles   []domain.Article
	article    *domain.Article
	checkpoint domain.Checkpoint
	lastFilter domain.SearchFilter
	err        error
}

func (m *mockQuery) Search(_ context.Context, filter domain.SearchFilter) ([]domain.Article, error) {
	m.lastFilter = filter
	return m.articles, m.err
}

func (m *mockQuery) GetByKey(_ context.Context, _ string) (*domain.Article, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.article, nil
}

func (m *mockQuery) CheckpointStatus(_ context.Context) (domain.Checkpoint, error) {
	return m.checkpoint, m.err
}

// mockRunner is a test double for driving.SyncRunner.
type mockRunner struct {
	result   domain.SyncResult
	lastOpts domain.SyncOptions
	running  bool
}

func (m *mockRunner) RunSync(_ context.Context, opts domain.SyncOptions) domain.SyncResult {
	m.lastOpts = opts
	return m.result
}

func (m *mockRunner) SyncIfStale(_ time.Duration) {}

func (m *mockRunner) Running() bool { return m.running }

// setupTestServices installs mock services and returns them with a cleanup
// that restores the previous wiring.
func setupTestServices() (*mockQuery, *mockRunner, func()) {
	prevQuery := queryService
	prevSync := syncRunner

	query := &mockQuery{}
	runner := &mockRunner{result: domain.SyncResult{RunID: "run-test", Success: true}}
	SetServices(Services{Query: query, Sync: runner})

	return query, runner, func() {
		queryService = prevQuery
		syncRunner = prevSync
	}
}
