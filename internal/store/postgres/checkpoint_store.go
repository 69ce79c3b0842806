package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

const (
	loadCheckpointSQL = `SELECT last_block FROM scan_checkpoints WHERE watcher = $1`

	saveCheckpointSQL = `
		INSERT INTO scan_checkpoints (watcher, last_block, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (watcher) DO UPDATE SET last_block = $2, updated_at = NOW()`
)

// CheckpointStore implements domain.CheckpointStore using PostgreSQL.
type CheckpointStore struct {
	pool *pgxpool.Pool
}

// NewCheckpointStore creates a new CheckpointStore backed by the given pool.
func NewCheckpointStore(pool *pgxpool.Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

// LastScannedBlock returns the last block recorded for the watcher, or zero
// when the watcher has never checkpointed.
func (s *CheckpointStore) LastScannedBlock(ctx context.Context, watcher string) (uint64, error) {
	var block uint64
	err := s.pool.QueryRow(ctx, loadCheckpointSQL, watcher).Scan(&block)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: load checkpoint %s: %w", watcher, err)
	}
	return block, nil
}

// SetLastScannedBlock upserts the watcher's checkpoint.
func (s *CheckpointStore) SetLastScannedBlock(ctx context.Context, watcher string, block uint64) error {
	_, err := s.pool.Exec(ctx, saveCheckpointSQL, watcher, block)
	if err != nil {
		return fmt.Errorf("postgres: save checkpoint %s: %w", watcher, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CheckpointStore = (*CheckpointStore)(nil)
