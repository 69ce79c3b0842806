package domain

import (
	"context"
	"time"
)

// LotStore persists deposit lots. Implementations: postgres, memory.
type LotStore interface {
	// Insert stores a new lot. It returns ErrDuplicateTxRef when a lot with
	// the same tx ref already exists (duplicate event delivery).
	Insert(ctx context.Context, lot DepositLot) error
	// ListOpen returns the non-fully-consumed lots for (owner, vault) ordered
	// by deposit timestamp ascending. This ordering is the FIFO axis.
	ListOpen(ctx context.Context, owner, vault string) ([]DepositLot, error)
	// Consume decrements a lot's remaining shares and marks it fully consumed
	// when they reach zero.
	Consume(ctx context.Context, lotID string, shares float64) error
	// ListConsumedBefore returns fully consumed, not-yet-archived lots whose
	// deposit timestamp is before the cutoff.
	ListConsumedBefore(ctx context.Context, cutoff time.Time, limit int) ([]DepositLot, error)
	// MarkArchived flags lots as exported to cold storage. Rows are never
	// deleted; the event log stays re-derivable.
	MarkArchived(ctx context.Context, lotIDs []string) error
}

// WithdrawalStore persists the append-only withdrawal log.
type WithdrawalStore interface {
	// Insert stores a new withdrawal record. It returns ErrDuplicateTxRef on
	// duplicate event delivery.
	Insert(ctx context.Context, w WithdrawalRecord) error
	// ListByOwner returns withdrawals for (owner, vault) ordered by timestamp
	// ascending.
	ListByOwner(ctx context.Context, owner, vault string) ([]WithdrawalRecord, error)
}

// CheckpointStore remembers the last chain block scanned for vault events so
// the watcher resumes where it left off after a restart.
type CheckpointStore interface {
	// LastScannedBlock returns zero when the watcher has never checkpointed.
	LastScannedBlock(ctx context.Context, watcher string) (uint64, error)
	SetLastScannedBlock(ctx context.Context, watcher string, block uint64) error
}
