package memory

import (
	"context"
	"sync"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// CheckpointStore is an in-memory implementation of domain.CheckpointStore.
type CheckpointStore struct {
	mu     sync.RWMutex
	blocks map[string]uint64
}

// NewCheckpointStore creates a new in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{blocks: make(map[string]uint64)}
}

// LastScannedBlock returns the stored checkpoint, or zero when the watcher
// has never checkpointed.
func (s *CheckpointStore) LastScannedBlock(_ context.Context, watcher string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.blocks[watcher], nil
}

// SetLastScannedBlock stores the checkpoint.
func (s *CheckpointStore) SetLastScannedBlock(_ context.Context, watcher string, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocks[watcher] = block
	return nil
}

// Compile-time interface check.
var _ domain.CheckpointStore = (*CheckpointStore)(nil)
