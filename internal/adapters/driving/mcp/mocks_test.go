package mcp

import (
	"context"
	"time"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	articles   []domain.Article
	article    *domain.Article
	checkpoint domain.Checkpoint
	lastFilter domain.SearchFilter
	lastKey    string
	err        error
}

func (m *mockQueryService) Search(
	_ context.Context,
	filter domain.SearchFilter,
) ([]domain.Article, error) {
	m.lastFilter = filter
	return m.articles, m.err
}

func (m *mockQueryService) GetByKey(_ context.Context, key string) (*domain.Article, error) {
	m.lastKey = key
	if m.err != nil {
		return nil, m.err
	}
	return m.article, nil
}

func (m *mockQueryService) CheckpointStatus(_ context.Context) (domain.Checkpoint, error) {
	return m.checkpoint, m.err
}

// mockSyncRunner is a mock implementation of driving.SyncRunner.
type mockSyncRunner struct {
	result   domain.SyncResult
	lastOpts domain.SyncOptions
	running  bool
}

func (m *mockSyncRunner) RunSync(_ context.Context, opts domain.SyncOptions) domain.SyncResult {
	m.lastOpts = opts
	return m.result
}

func (m *mockSyncRunner) SyncIfStale(_ time.Duration) {}

func (m *mockSyncRunner) Running() bool {
	return m.running
}
