// Package ledger implements the FIFO position ledger: an immutable event log
// of deposit lots and withdrawals from which principal vs. accrued yield is
// derived on demand. Nothing derived is ever persisted, so replaying the log
// from scratch reproduces identical results.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// shareEpsilon absorbs float dust when deciding whether a lot or a
// withdrawal has been fully consumed.
const shareEpsilon = 1e-9

// lockRetryInterval is how long a writer waits before re-attempting a held
// per-(owner,vault) lock.
const lockRetryInterval = 50 * time.Millisecond

// Service is the position ledger. Withdrawal tracking is a critical section
// per (owner, vault): concurrent calls for the same pair are serialized
// through the lock manager to preserve FIFO ordering, while different pairs
// proceed in parallel.
type Service struct {
	lots        domain.LotStore
	withdrawals domain.WithdrawalStore
	locks       domain.LockManager
	lockTTL     time.Duration
	logger      *slog.Logger
}

// New creates a ledger Service.
func New(lots domain.LotStore, withdrawals domain.WithdrawalStore, locks domain.LockManager, lockTTL time.Duration, logger *slog.Logger) *Service {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &Service{
		lots:        lots,
		withdrawals: withdrawals,
		locks:       locks,
		lockTTL:     lockTTL,
		logger:      logger.With(slog.String("component", "ledger")),
	}
}

// TrackDeposit records a newly observed deposit as a fresh lot with all its
// shares remaining. Duplicate delivery of the same event (same tx ref) is a
// logged no-op, never a double count.
func (s *Service) TrackDeposit(ctx context.Context, owner, vault string, amount, shares float64, at time.Time, txRef string) error {
	if shares <= 0 {
		return fmt.Errorf("ledger: deposit %s: shares must be positive, got %v", txRef, shares)
	}

	lot := domain.DepositLot{
		ID:              uuid.New().String(),
		Owner:           owner,
		Vault:           vault,
		InitialAmount:   amount,
		SharesReceived:  shares,
		RemainingShares: shares,
		DepositedAt:     at.UTC(),
		TxRef:           txRef,
	}

	err := s.lots.Insert(ctx, lot)
	if errors.Is(err, domain.ErrDuplicateTxRef) {
		s.logger.DebugContext(ctx, "duplicate deposit event ignored",
			slog.String("owner", owner),
			slog.String("tx_ref", txRef),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ledger: track deposit %s: %w", txRef, err)
	}

	s.logger.InfoContext(ctx, "deposit lot recorded",
		slog.String("owner", owner),
		slog.String("vault", vault),
		slog.Float64("amount", amount),
		slog.Float64("shares", shares),
		slog.String("tx_ref", txRef),
	)
	return nil
}

// TrackWithdrawal appends an immutable withdrawal record and consumes the
// owner's open lots oldest-first. The last lot touched may be partially
// decremented. When the open lots cannot cover sharesBurned the consumption
// stops at zero — never negative — and domain.ErrInsufficientLots is
// returned together with what was consumed, flagging a data-consistency
// issue rather than crashing.
func (s *Service) TrackWithdrawal(ctx context.Context, w domain.WithdrawalRecord) ([]domain.LotConsumption, error) {
	if w.SharesBurned <= 0 {
		return nil, fmt.Errorf("ledger: withdrawal %s: shares burned must be positive, got %v", w.TxRef, w.SharesBurned)
	}

	unlock, err := s.acquireLock(ctx, w.Owner, w.Vault)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	w.WithdrawnAt = w.WithdrawnAt.UTC()

	err = s.withdrawals.Insert(ctx, w)
	if errors.Is(err, domain.ErrDuplicateTxRef) {
		s.logger.DebugContext(ctx, "duplicate withdrawal event ignored",
			slog.String("owner", w.Owner),
			slog.String("tx_ref", w.TxRef),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: track withdrawal %s: %w", w.TxRef, err)
	}

	consumed, err := s.consumeFIFO(ctx, w)
	if err != nil {
		return consumed, err
	}

	s.logger.InfoContext(ctx, "withdrawal recorded",
		slog.String("owner", w.Owner),
		slog.String("vault", w.Vault),
		slog.Float64("shares_burned", w.SharesBurned),
		slog.Int("lots_touched", len(consumed)),
		slog.String("tx_ref", w.TxRef),
	)
	return consumed, nil
}

// consumeFIFO walks the open lots in deposit order, decrementing remaining
// shares until the withdrawal is fully allocated.
func (s *Service) consumeFIFO(ctx context.Context, w domain.WithdrawalRecord) ([]domain.LotConsumption, error) {
	open, err := s.lots.ListOpen(ctx, w.Owner, w.Vault)
	if err != nil {
		return nil, fmt.Errorf("ledger: list open lots for %s/%s: %w", w.Owner, w.Vault, err)
	}

	remaining := w.SharesBurned
	var consumed []domain.LotConsumption

	for _, lot := range open {
		if remaining <= shareEpsilon {
			break
		}

		take := math.Min(remaining, lot.RemainingShares)
		if take <= 0 {
			continue
		}

		if err := s.lots.Consume(ctx, lot.ID, take); err != nil {
			return consumed, fmt.Errorf("ledger: consume lot %s: %w", lot.ID, err)
		}

		remaining -= take
		consumed = append(consumed, domain.LotConsumption{
			LotID:    lot.ID,
			Shares:   take,
			Depleted: lot.RemainingShares-take <= shareEpsilon,
		})
	}

	if remaining > shareEpsilon {
		s.logger.ErrorContext(ctx, "withdrawal exceeds open lots",
			slog.String("owner", w.Owner),
			slog.String("vault", w.Vault),
			slog.Float64("unallocated_shares", remaining),
			slog.String("tx_ref", w.TxRef),
		)
		return consumed, fmt.Errorf("ledger: withdrawal %s left %v shares unallocated: %w", w.TxRef, remaining, domain.ErrInsufficientLots)
	}

	return consumed, nil
}

// GetPosition derives the owner's current standing in a vault from the open
// lots plus the caller-supplied live balance. It returns nil when no open
// lots exist. The derivation is pure over the stored log: calling it twice
// without new events yields identical results.
func (s *Service) GetPosition(ctx context.Context, owner, vault string, currentShares, currentValue float64) (*domain.Position, error) {
	open, err := s.lots.ListOpen(ctx, owner, vault)
	if err != nil {
		return nil, fmt.Errorf("ledger: list open lots for %s/%s: %w", owner, vault, err)
	}
	if len(open) == 0 {
		return nil, nil
	}

	var principal float64
	earliest := open[0].DepositedAt
	for _, lot := range open {
		principal += lot.RemainingPrincipal()
		if lot.DepositedAt.Before(earliest) {
			earliest = lot.DepositedAt
		}
	}

	// Yield is floored at zero: loss attribution is out of scope, so a
	// current value below principal reports zero yield, not a loss.
	yield := currentValue - principal
	if yield < 0 {
		yield = 0
	}

	return &domain.Position{
		Owner:         owner,
		Vault:         vault,
		CurrentShares: currentShares,
		CurrentValue:  currentValue,
		Principal:     principal,
		TotalYield:    yield,
		DaysStaked:    time.Since(earliest).Hours() / 24,
		OpenLots:      len(open),
	}, nil
}

// Withdrawals returns the append-only withdrawal history for (owner, vault).
func (s *Service) Withdrawals(ctx context.Context, owner, vault string) ([]domain.WithdrawalRecord, error) {
	records, err := s.withdrawals.ListByOwner(ctx, owner, vault)
	if err != nil {
		return nil, fmt.Errorf("ledger: list withdrawals for %s/%s: %w", owner, vault, err)
	}
	return records, nil
}

// acquireLock serializes withdrawal tracking per (owner, vault), retrying a
// held lock until ctx expires.
func (s *Service) acquireLock(ctx context.Context, owner, vault string) (func(), error) {
	key := fmt.Sprintf("ledger:%s:%s", owner, vault)
	for {
		unlock, err := s.locks.Acquire(ctx, key, s.lockTTL)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("ledger: acquire lock %s: %w", key, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("ledger: waiting for lock %s: %w", key, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}
