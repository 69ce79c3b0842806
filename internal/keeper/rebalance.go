package keeper

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
	"github.com/celvios/Base-Jungle-sub000/internal/notify"
)

// Rebalancer is the slice of the leverage manager wrapper the rebalance
// agent needs on top of the scanner's read path.
type Rebalancer interface {
	HealthReader
	Rebalance(ctx context.Context, user string, gasLimit uint64, gasPrice *big.Int) (common.Hash, error)
}

// RebalanceConfig parameterizes one rebalance agent.
type RebalanceConfig struct {
	Owners []string
	// MaxGasGwei gates ordinary rebalances only; emergency positions are
	// rebalanced regardless of gas price.
	MaxGasGwei float64
	// GasLimit is the fixed conservative limit for rebalance transactions.
	GasLimit uint64
}

// RebalanceAgent scans leveraged positions and rebalances the ones outside
// the healthy band, most urgent first. Emergency positions pay the fast gas
// price and ignore the gas ceiling; liquidation risk outranks cost.
type RebalanceAgent struct {
	cfg      RebalanceConfig
	manager  Rebalancer
	scanner  *HealthScanner
	gas      GasQuoter
	receipts ReceiptWaiter
	alerts   Alerter
	logger   *slog.Logger
}

// NewRebalanceAgent creates a rebalance agent over the given leverage
// manager.
func NewRebalanceAgent(
	cfg RebalanceConfig,
	manager Rebalancer,
	gas GasQuoter,
	receipts ReceiptWaiter,
	alerts Alerter,
	logger *slog.Logger,
) *RebalanceAgent {
	log := logger.With(slog.String("component", "rebalance"))
	return &RebalanceAgent{
		cfg:      cfg,
		manager:  manager,
		scanner:  NewHealthScanner(manager, logger),
		gas:      gas,
		receipts: receipts,
		alerts:   alerts,
		logger:   log,
	}
}

// Scan exposes the read-only portfolio snapshot without acting on it.
func (a *RebalanceAgent) Scan(ctx context.Context) ([]domain.PositionHealth, []domain.ItemResult) {
	return a.scanner.Scan(ctx, a.cfg.Owners)
}

// RunCycle performs one scan-and-rebalance pass. Positions are processed in
// urgency order; per-position failures are recorded and the cycle moves on.
func (a *RebalanceAgent) RunCycle(ctx context.Context) (domain.CycleReport, error) {
	report := newReport("rebalance")
	defer func() {
		report.FinishedAt = time.Now().UTC()
		logReport(ctx, a.logger, report)
	}()

	positions, failures := a.scanner.Scan(ctx, a.cfg.Owners)
	report.Items = append(report.Items, failures...)

	quote := a.gas.Quote(ctx)
	gasHigh := quote.StandardGwei() > a.cfg.MaxGasGwei

	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return report, domain.ErrContextDone
		}

		tier := pos.Tier()
		if !tier.NeedsRebalance() {
			report.Items = append(report.Items, domain.ItemResult{
				Item:    pos.Owner,
				Outcome: domain.OutcomeSkipped,
				Reason:  "healthy",
			})
			continue
		}

		if gasHigh && tier != domain.TierEmergency {
			report.Items = append(report.Items, domain.ItemResult{
				Item:    pos.Owner,
				Outcome: domain.OutcomeSkipped,
				Reason:  fmt.Sprintf("gas %.1f gwei above ceiling %.1f", quote.StandardGwei(), a.cfg.MaxGasGwei),
			})
			continue
		}

		report.Items = append(report.Items, a.rebalance(ctx, pos, tier, quote))
	}

	return report, nil
}

// rebalance executes one corrective transaction and re-reads the position on
// success so the new health factor lands in the logs.
func (a *RebalanceAgent) rebalance(ctx context.Context, pos domain.PositionHealth, tier domain.HealthTier, quote domain.GasQuote) domain.ItemResult {
	log := a.logger.With(
		slog.String("owner", pos.Owner),
		slog.String("tier", string(tier)),
		slog.Float64("health_factor", pos.HealthFactor),
	)

	gasPrice := quote.Standard
	if tier == domain.TierEmergency {
		gasPrice = quote.Fast
		a.alertEmergency(ctx, pos)
	}

	txHash, err := a.manager.Rebalance(ctx, pos.Owner, a.cfg.GasLimit, gasPrice)
	if err != nil {
		log.ErrorContext(ctx, "rebalance submission failed", slog.String("error", err.Error()))
		a.alertTxFailure(ctx, pos.Owner, err)
		return domain.ItemResult{Item: pos.Owner, Outcome: domain.OutcomeFailed, Reason: "rebalance submission", Err: err}
	}

	if _, err := a.receipts.WaitForReceipt(ctx, txHash); err != nil {
		log.ErrorContext(ctx, "rebalance transaction failed",
			slog.String("tx", txHash.Hex()),
			slog.String("error", err.Error()),
		)
		a.alertTxFailure(ctx, pos.Owner, err)
		return domain.ItemResult{Item: pos.Owner, Outcome: domain.OutcomeFailed, Reason: "rebalance transaction", TxHash: txHash.Hex(), Err: err}
	}

	after, err := a.manager.PositionHealth(ctx, pos.Owner)
	if err != nil {
		log.WarnContext(ctx, "post-rebalance health query failed", slog.String("error", err.Error()))
	} else {
		log.InfoContext(ctx, "rebalance executed",
			slog.String("tx", txHash.Hex()),
			slog.Float64("health_factor_after", after.HealthFactor),
		)
	}

	return domain.ItemResult{Item: pos.Owner, Outcome: domain.OutcomeExecuted, TxHash: txHash.Hex()}
}

func (a *RebalanceAgent) alertEmergency(ctx context.Context, pos domain.PositionHealth) {
	if a.alerts == nil {
		return
	}
	_ = a.alerts.Notify(ctx, notify.EventEmergencyRebalance,
		"Emergency rebalance",
		fmt.Sprintf("owner: %s\nhealth factor: %.4f", pos.Owner, pos.HealthFactor),
	)
}

func (a *RebalanceAgent) alertTxFailure(ctx context.Context, owner string, err error) {
	if a.alerts == nil {
		return
	}
	_ = a.alerts.Notify(ctx, notify.EventTxFailed,
		"Rebalance transaction failed",
		fmt.Sprintf("owner: %s\nerror: %v", owner, err),
	)
}
