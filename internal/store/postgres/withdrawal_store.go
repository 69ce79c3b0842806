package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

const (
	insertWithdrawalSQL = `
		INSERT INTO withdrawals (
			id, owner, vault, shares_burned, assets_received,
			withdrawn_at, tx_ref, was_mature, penalty_paid
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9
		)`

	listWithdrawalsSQL = `
		SELECT id, owner, vault, shares_burned, assets_received,
		       withdrawn_at, tx_ref, was_mature, penalty_paid
		FROM withdrawals
		WHERE owner = $1 AND vault = $2
		ORDER BY withdrawn_at ASC`
)

// WithdrawalStore implements domain.WithdrawalStore using PostgreSQL.
type WithdrawalStore struct {
	pool *pgxpool.Pool
}

// NewWithdrawalStore creates a new WithdrawalStore backed by the given pool.
func NewWithdrawalStore(pool *pgxpool.Pool) *WithdrawalStore {
	return &WithdrawalStore{pool: pool}
}

// Insert stores a withdrawal record. The log is append-only; a tx_ref
// collision maps to ErrDuplicateTxRef.
func (s *WithdrawalStore) Insert(ctx context.Context, w domain.WithdrawalRecord) error {
	_, err := s.pool.Exec(ctx, insertWithdrawalSQL,
		w.ID, w.Owner, w.Vault, w.SharesBurned, w.AssetsReceived,
		w.WithdrawnAt, w.TxRef, w.Mature, w.PenaltyPaid,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTxRef
		}
		return fmt.Errorf("postgres: insert withdrawal %s: %w", w.TxRef, err)
	}
	return nil
}

// ListByOwner returns withdrawals for (owner, vault) in chronological order.
func (s *WithdrawalStore) ListByOwner(ctx context.Context, owner, vault string) ([]domain.WithdrawalRecord, error) {
	rows, err := s.pool.Query(ctx, listWithdrawalsSQL, owner, vault)
	if err != nil {
		return nil, fmt.Errorf("postgres: list withdrawals: %w", err)
	}
	defer rows.Close()

	var records []domain.WithdrawalRecord
	for rows.Next() {
		var w domain.WithdrawalRecord
		if err := rows.Scan(
			&w.ID, &w.Owner, &w.Vault, &w.SharesBurned, &w.AssetsReceived,
			&w.WithdrawnAt, &w.TxRef, &w.Mature, &w.PenaltyPaid,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan withdrawal: %w", err)
		}
		records = append(records, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate withdrawals: %w", err)
	}
	return records, nil
}

// Compile-time interface check.
var _ domain.WithdrawalStore = (*WithdrawalStore)(nil)
