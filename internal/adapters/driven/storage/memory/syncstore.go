package memory

import (
	"context"
	"sync"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
	"github.com/aktsmm/powerplat-update/internal/core/ports/driven"
)

// Ensure WatermarkStore implements the interface.
var _ driven.WatermarkStore = (*WatermarkStore)(nil)

// WatermarkStore is an in-memory implementation of driven.WatermarkStore.
type WatermarkStore struct {
	mu    sync.RWMutex
	marks map[string]domain.Watermark
}

// NewWatermarkStore creates a new in-memory watermark store.
func NewWatermarkStore() *WatermarkStore {
	return &WatermarkStore{
		marks: make(map[string]domain.Watermark),
	}
}

// Save stores or updates a watermark.
func (s *WatermarkStore) Save(_ context.Context, mark domain.Watermark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[mark.RepoID] = mark
	return nil
}

// Get retrieves the watermark for a repository.
func (s *WatermarkStore) Get(_ context.Context, repoID string) (*domain.Watermark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mark, ok := s.marks[repoID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &mark, nil
}

// List returns all stored watermarks.
func (s *WatermarkStore) List(_ context.Context) ([]domain.Watermark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	marks := make([]domain.Watermark, 0, len(s.marks))
	for _, mark := range s.marks {
		marks = append(marks, mark)
	}
	return marks, nil
}

// Ensure CheckpointStore implements the interface.
var _ driven.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore is an in-memory implementation of driven.CheckpointStore.
type CheckpointStore struct {
	mu sync.RWMutex
	cp domain.Checkpoint
}

// NewCheckpointStore creates a new in-memory checkpoint store with an
// idle checkpoint.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		cp: domain.Checkpoint{Status: domain.SyncIdle},
	}
}

// Save stores the checkpoint.
func (s *CheckpointStore) Save(_ context.Context, cp domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cp = cp
	return nil
}

// Get retrieves the checkpoint.
func (s *CheckpointStore) Get(_ context.Context) (domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cp, nil
}
