package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// LotStore implements domain.LotStore using PostgreSQL.
type LotStore struct {
	pool *pgxpool.Pool
}

// NewLotStore creates a new LotStore backed by the given connection pool.
func NewLotStore(pool *pgxpool.Pool) *LotStore {
	return &LotStore{pool: pool}
}

const lotSelectCols = `id, owner, vault, initial_amount, shares_received,
	remaining_shares, deposit_timestamp, tx_ref, fully_consumed`

const (
	insertLotSQL = `
		INSERT INTO deposit_lots (
			id, owner, vault, initial_amount, shares_received,
			remaining_shares, deposit_timestamp, tx_ref, fully_consumed, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, NOW()
		)`

	listOpenLotsSQL = `SELECT ` + lotSelectCols + ` FROM deposit_lots
		WHERE owner = $1 AND vault = $2 AND NOT fully_consumed
		ORDER BY deposit_timestamp ASC`

	consumeLotSQL = `
		UPDATE deposit_lots SET
			remaining_shares = GREATEST(remaining_shares - $2, 0),
			fully_consumed   = (remaining_shares - $2) <= 1e-9,
			updated_at       = NOW()
		WHERE id = $1`

	listConsumedLotsSQL = `SELECT ` + lotSelectCols + ` FROM deposit_lots
		WHERE fully_consumed AND NOT archived AND deposit_timestamp < $1
		ORDER BY deposit_timestamp ASC
		LIMIT $2`

	markLotsArchivedSQL = `UPDATE deposit_lots SET archived = TRUE, updated_at = NOW() WHERE id = ANY($1)`
)

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanLotRows(rows pgx.Rows) ([]domain.DepositLot, error) {
	var lots []domain.DepositLot
	for rows.Next() {
		var l domain.DepositLot
		if err := rows.Scan(
			&l.ID, &l.Owner, &l.Vault, &l.InitialAmount, &l.SharesReceived,
			&l.RemainingShares, &l.DepositedAt, &l.TxRef, &l.FullyConsumed,
		); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// Insert stores a new lot. A tx_ref collision maps to ErrDuplicateTxRef so
// duplicate event delivery never double-counts.
func (s *LotStore) Insert(ctx context.Context, lot domain.DepositLot) error {
	_, err := s.pool.Exec(ctx, insertLotSQL,
		lot.ID, lot.Owner, lot.Vault, lot.InitialAmount, lot.SharesReceived,
		lot.RemainingShares, lot.DepositedAt, lot.TxRef, lot.FullyConsumed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTxRef
		}
		return fmt.Errorf("postgres: insert lot %s: %w", lot.TxRef, err)
	}
	return nil
}

// ListOpen returns non-fully-consumed lots for (owner, vault) in deposit
// order — the FIFO axis.
func (s *LotStore) ListOpen(ctx context.Context, owner, vault string) ([]domain.DepositLot, error) {
	rows, err := s.pool.Query(ctx, listOpenLotsSQL, owner, vault)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open lots: %w", err)
	}
	defer rows.Close()

	lots, err := scanLotRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open lots: %w", err)
	}
	return lots, nil
}

// Consume decrements a lot's remaining shares, clamping at zero and setting
// fully_consumed when depleted.
func (s *LotStore) Consume(ctx context.Context, lotID string, shares float64) error {
	tag, err := s.pool.Exec(ctx, consumeLotSQL, lotID, shares)
	if err != nil {
		return fmt.Errorf("postgres: consume lot %s: %w", lotID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListConsumedBefore returns fully consumed, unarchived lots deposited
// before the cutoff, oldest first.
func (s *LotStore) ListConsumedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.DepositLot, error) {
	rows, err := s.pool.Query(ctx, listConsumedLotsSQL, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list consumed lots: %w", err)
	}
	defer rows.Close()

	lots, err := scanLotRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan consumed lots: %w", err)
	}
	return lots, nil
}

// MarkArchived flags lots as exported to cold storage.
func (s *LotStore) MarkArchived(ctx context.Context, lotIDs []string) error {
	if len(lotIDs) == 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx, markLotsArchivedSQL, lotIDs)
	if err != nil {
		return fmt.Errorf("postgres: mark lots archived: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.LotStore = (*LotStore)(nil)
