package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/celvios/Base-Jungle-sub000/internal/chain"
	"github.com/celvios/Base-Jungle-sub000/internal/domain"
	"github.com/celvios/Base-Jungle-sub000/internal/notify"
)

// VaultEvents is the slice of the vault reader the watcher needs.
type VaultEvents interface {
	Address() string
	Events(ctx context.Context, from, to uint64) ([]chain.DepositEvent, []chain.WithdrawEvent, error)
}

// HeadReader reports the current chain head.
type HeadReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// LedgerSink is the slice of the ledger service the watcher feeds.
type LedgerSink interface {
	TrackDeposit(ctx context.Context, owner, vault string, amount, shares float64, at time.Time, txRef string) error
	TrackWithdrawal(ctx context.Context, w domain.WithdrawalRecord) ([]domain.LotConsumption, error)
}

// WatcherConfig parameterizes the vault event watcher.
type WatcherConfig struct {
	// StartBlock is where scanning begins when no checkpoint exists.
	StartBlock uint64
	// MaxBlockRange caps one log query window so RPC providers with range
	// limits stay usable.
	MaxBlockRange uint64
}

const checkpointName = "vault_events"

// VaultWatcher tails a vault's Deposit/Withdraw events and feeds them to the
// position ledger. Progress is checkpointed per scanned window so a restart
// resumes without gaps; duplicate delivery across a restart is absorbed by
// the ledger's tx-ref idempotency.
type VaultWatcher struct {
	cfg         WatcherConfig
	vault       VaultEvents
	head        HeadReader
	ledger      LedgerSink
	checkpoints domain.CheckpointStore
	alerts      Alerter
	logger      *slog.Logger
}

// NewVaultWatcher creates a watcher over the given vault.
func NewVaultWatcher(
	cfg WatcherConfig,
	vault VaultEvents,
	head HeadReader,
	ledger LedgerSink,
	checkpoints domain.CheckpointStore,
	alerts Alerter,
	logger *slog.Logger,
) *VaultWatcher {
	if cfg.MaxBlockRange == 0 {
		cfg.MaxBlockRange = 2000
	}
	return &VaultWatcher{
		cfg:         cfg,
		vault:       vault,
		head:        head,
		ledger:      ledger,
		checkpoints: checkpoints,
		alerts:      alerts,
		logger:      logger.With(slog.String("component", "vault_watcher")),
	}
}

// RunCycle scans from the last checkpoint to the current head in bounded
// windows. It stops at the first window that fails so the checkpoint never
// skips past unprocessed blocks.
func (w *VaultWatcher) RunCycle(ctx context.Context) error {
	head, err := w.head.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("watcher: chain head: %w", err)
	}

	last, err := w.checkpoints.LastScannedBlock(ctx, checkpointName)
	if err != nil {
		return fmt.Errorf("watcher: load checkpoint: %w", err)
	}

	from := w.cfg.StartBlock
	if last >= from {
		from = last + 1
	}
	if from > head {
		return nil
	}

	for from <= head {
		if err := ctx.Err(); err != nil {
			return domain.ErrContextDone
		}

		to := from + w.cfg.MaxBlockRange - 1
		if to > head {
			to = head
		}

		if err := w.scanWindow(ctx, from, to); err != nil {
			return err
		}

		if err := w.checkpoints.SetLastScannedBlock(ctx, checkpointName, to); err != nil {
			return fmt.Errorf("watcher: save checkpoint: %w", err)
		}
		from = to + 1
	}

	return nil
}

// scanWindow processes one block window's deposits and withdrawals in
// chain order.
func (w *VaultWatcher) scanWindow(ctx context.Context, from, to uint64) error {
	deposits, withdrawals, err := w.vault.Events(ctx, from, to)
	if err != nil {
		return fmt.Errorf("watcher: events [%d, %d]: %w", from, to, err)
	}
	if len(deposits) == 0 && len(withdrawals) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "vault events found",
		slog.Uint64("from", from),
		slog.Uint64("to", to),
		slog.Int("deposits", len(deposits)),
		slog.Int("withdrawals", len(withdrawals)),
	)

	// Events() returns each slice in chain order; merge the two streams by
	// (block, log index) so a withdraw-then-deposit sequence inside one
	// window replays exactly as the chain emitted it.
	i, j := 0, 0
	for i < len(deposits) || j < len(withdrawals) {
		depositNext := j >= len(withdrawals) ||
			(i < len(deposits) && eventBefore(deposits[i].Block, deposits[i].LogIndex, withdrawals[j].Block, withdrawals[j].LogIndex))

		if depositNext {
			if err := w.applyDeposit(ctx, deposits[i]); err != nil {
				return err
			}
			i++
			continue
		}
		if err := w.applyWithdrawal(ctx, withdrawals[j]); err != nil {
			return err
		}
		j++
	}

	return nil
}

func eventBefore(block1 uint64, idx1 uint, block2 uint64, idx2 uint) bool {
	if block1 != block2 {
		return block1 < block2
	}
	return idx1 < idx2
}

func (w *VaultWatcher) applyDeposit(ctx context.Context, d chain.DepositEvent) error {
	err := w.ledger.TrackDeposit(ctx, d.Owner, w.vault.Address(), d.Assets, d.Shares, d.At, d.TxRef)
	if err != nil {
		return fmt.Errorf("watcher: track deposit %s: %w", d.TxRef, err)
	}
	return nil
}

func (w *VaultWatcher) applyWithdrawal(ctx context.Context, wd chain.WithdrawEvent) error {
	_, err := w.ledger.TrackWithdrawal(ctx, domain.WithdrawalRecord{
		Owner:          wd.Owner,
		Vault:          w.vault.Address(),
		SharesBurned:   wd.Shares,
		AssetsReceived: wd.Assets,
		WithdrawnAt:    wd.At,
		TxRef:          wd.TxRef,
		Mature:         wd.Mature,
		PenaltyPaid:    wd.Penalty,
	})
	if errors.Is(err, domain.ErrInsufficientLots) {
		// The on-chain withdrawal burned more shares than the ledger has
		// open lots for. The record is kept; flag it for an operator.
		w.logger.ErrorContext(ctx, "withdrawal exceeds tracked lots",
			slog.String("owner", wd.Owner),
			slog.String("tx_ref", wd.TxRef),
			slog.Float64("shares", wd.Shares),
		)
		if w.alerts != nil {
			_ = w.alerts.Notify(ctx, notify.EventLedgerInconsistency,
				"Ledger inconsistency",
				fmt.Sprintf("withdrawal %s by %s burned more shares than tracked", wd.TxRef, wd.Owner),
			)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("watcher: track withdrawal %s: %w", wd.TxRef, err)
	}
	return nil
}
