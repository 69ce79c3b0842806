// Package keeper contains the automation agents: harvest, rebalance, the
// system health monitor, and the vault event watcher that feeds the position
// ledger. Each agent exposes a RunCycle method that performs one pass and
// returns a CycleReport; the Runner drives the cycles on tickers.
package keeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// GasQuoter samples current gas prices. Quote never fails; it degrades to a
// configured fallback.
type GasQuoter interface {
	Quote(ctx context.Context) domain.GasQuote
}

// PriceSource resolves asset USD prices with feed/cache/fallback degradation.
type PriceSource interface {
	Price(ctx context.Context, asset string) (float64, error)
}

// ReceiptWaiter blocks until a submitted transaction is mined.
type ReceiptWaiter interface {
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Alerter is the slice of the notifier the agents use.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// newReport starts a CycleReport for the named agent.
func newReport(agent string) domain.CycleReport {
	return domain.CycleReport{Agent: agent, StartedAt: time.Now().UTC()}
}

// logReport emits the cycle summary the way every agent reports it.
func logReport(ctx context.Context, logger *slog.Logger, report domain.CycleReport) {
	executed, skipped, failed := report.Counts()
	logger.InfoContext(ctx, "cycle finished",
		slog.String("agent", report.Agent),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
		slog.Int("executed", executed),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)
}
