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
	"github.com/celvios/Base-Jungle-sub000/internal/profit"
)

// RewardCompounder is the slice of the reward adapter wrapper the harvest
// agent needs.
type RewardCompounder interface {
	PendingRewards(ctx context.Context, source, claimant string) (*big.Int, error)
	Compound(ctx context.Context, source string, gasLimit uint64, gasPrice *big.Int) (common.Hash, error)
}

// HarvestConfig parameterizes one harvest agent.
type HarvestConfig struct {
	// MaxGasGwei is the cycle-level gas gate. When the standard quote exceeds
	// it the whole cycle is skipped before any chain write.
	MaxGasGwei float64
	// MinHarvestUSD is the absolute reward floor: profitable but trivial
	// harvests are skipped.
	MinHarvestUSD float64
	ROIThreshold  float64
	// EstimatedGasUnits feeds the profitability gate before any estimation
	// happens on-chain.
	EstimatedGasUnits uint64
	NativeAsset       string
	Keeper            string
	Sources           []domain.RewardSource
}

// HarvestAgent claims and compounds pending rewards across the configured
// sources. Each source is evaluated and executed independently; one source's
// failure never aborts the rest of the cycle.
type HarvestAgent struct {
	cfg      HarvestConfig
	adapters map[string]RewardCompounder // keyed by source ID
	gas      GasQuoter
	prices   PriceSource
	receipts ReceiptWaiter
	alerts   Alerter
	logger   *slog.Logger
}

// NewHarvestAgent creates a harvest agent. adapters maps source IDs to their
// reward adapter wrappers.
func NewHarvestAgent(
	cfg HarvestConfig,
	adapters map[string]RewardCompounder,
	gas GasQuoter,
	prices PriceSource,
	receipts ReceiptWaiter,
	alerts Alerter,
	logger *slog.Logger,
) *HarvestAgent {
	if cfg.ROIThreshold <= 0 {
		cfg.ROIThreshold = domain.DefaultROIThreshold
	}
	return &HarvestAgent{
		cfg:      cfg,
		adapters: adapters,
		gas:      gas,
		prices:   prices,
		receipts: receipts,
		alerts:   alerts,
		logger:   logger.With(slog.String("component", "harvest")),
	}
}

// RunCycle performs one harvest pass over all sources and reports per-source
// outcomes. It only returns an error when the cycle cannot start at all.
func (a *HarvestAgent) RunCycle(ctx context.Context) (domain.CycleReport, error) {
	report := newReport("harvest")
	defer func() {
		report.FinishedAt = time.Now().UTC()
		logReport(ctx, a.logger, report)
	}()

	quote := a.gas.Quote(ctx)
	if gwei := quote.StandardGwei(); gwei > a.cfg.MaxGasGwei {
		a.logger.InfoContext(ctx, "gas above ceiling, skipping cycle",
			slog.Float64("gas_gwei", gwei),
			slog.Float64("max_gwei", a.cfg.MaxGasGwei),
		)
		for _, src := range a.cfg.Sources {
			report.Items = append(report.Items, domain.ItemResult{
				Item:    src.ID,
				Outcome: domain.OutcomeSkipped,
				Reason:  fmt.Sprintf("gas %.1f gwei above ceiling %.1f", gwei, a.cfg.MaxGasGwei),
			})
		}
		return report, nil
	}

	nativePrice, err := a.prices.Price(ctx, a.cfg.NativeAsset)
	if err != nil {
		return report, fmt.Errorf("harvest: native token price: %w", err)
	}

	for _, src := range a.cfg.Sources {
		if err := ctx.Err(); err != nil {
			return report, domain.ErrContextDone
		}
		report.Items = append(report.Items, a.harvestSource(ctx, src, quote, nativePrice))
	}

	return report, nil
}

// harvestSource evaluates and, if worthwhile, compounds one reward source.
func (a *HarvestAgent) harvestSource(ctx context.Context, src domain.RewardSource, quote domain.GasQuote, nativePrice float64) domain.ItemResult {
	log := a.logger.With(slog.String("source", src.ID))

	adapter, ok := a.adapters[src.ID]
	if !ok {
		return domain.ItemResult{
			Item:    src.ID,
			Outcome: domain.OutcomeFailed,
			Reason:  "no adapter wired",
		}
	}

	pending, err := adapter.PendingRewards(ctx, src.Contract, a.cfg.Keeper)
	if err != nil {
		log.ErrorContext(ctx, "pending rewards query failed", slog.String("error", err.Error()))
		return domain.ItemResult{Item: src.ID, Outcome: domain.OutcomeFailed, Reason: "pending rewards query", Err: err}
	}

	reward := domain.PendingReward{Source: src, Amount: pending}
	if reward.IsZero() {
		return domain.ItemResult{Item: src.ID, Outcome: domain.OutcomeSkipped, Reason: "nothing to harvest"}
	}

	rewardPrice, err := a.prices.Price(ctx, src.RewardAsset)
	if err != nil {
		log.ErrorContext(ctx, "reward price unavailable", slog.String("error", err.Error()))
		return domain.ItemResult{Item: src.ID, Outcome: domain.OutcomeFailed, Reason: "reward price unavailable", Err: err}
	}

	eval := profit.Evaluate(profit.EvalInput{
		RewardAmount:        pending,
		RewardDecimals:      src.RewardDecimals,
		RewardPriceUSD:      rewardPrice,
		EstimatedGasUnits:   a.cfg.EstimatedGasUnits,
		GasPriceWei:         quote.Standard,
		NativeTokenPriceUSD: nativePrice,
		ROIThreshold:        a.cfg.ROIThreshold,
	})

	log.InfoContext(ctx, "profitability evaluated",
		slog.Float64("reward_usd", eval.RewardValueUSD),
		slog.Float64("gas_usd", eval.GasCostUSD),
		slog.Float64("roi", eval.ROI),
		slog.Bool("profitable", eval.Profitable),
	)

	if !eval.Profitable {
		return domain.ItemResult{
			Item:    src.ID,
			Outcome: domain.OutcomeSkipped,
			Reason:  fmt.Sprintf("unprofitable: net %.2f usd, roi %.2f", eval.NetProfitUSD, eval.ROI),
		}
	}
	if eval.RewardValueUSD < a.cfg.MinHarvestUSD {
		return domain.ItemResult{
			Item:    src.ID,
			Outcome: domain.OutcomeSkipped,
			Reason:  fmt.Sprintf("reward %.2f usd below floor %.2f", eval.RewardValueUSD, a.cfg.MinHarvestUSD),
		}
	}

	// Gas limit zero lets the chain client estimate and pad.
	txHash, err := adapter.Compound(ctx, src.Contract, 0, quote.Standard)
	if err != nil {
		log.ErrorContext(ctx, "compound submission failed", slog.String("error", err.Error()))
		a.alertTxFailure(ctx, src.ID, err)
		return domain.ItemResult{Item: src.ID, Outcome: domain.OutcomeFailed, Reason: "compound submission", Err: err}
	}

	if _, err := a.receipts.WaitForReceipt(ctx, txHash); err != nil {
		log.ErrorContext(ctx, "compound transaction failed",
			slog.String("tx", txHash.Hex()),
			slog.String("error", err.Error()),
		)
		a.alertTxFailure(ctx, src.ID, err)
		return domain.ItemResult{Item: src.ID, Outcome: domain.OutcomeFailed, Reason: "compound transaction", TxHash: txHash.Hex(), Err: err}
	}

	log.InfoContext(ctx, "harvest executed",
		slog.String("tx", txHash.Hex()),
		slog.Float64("reward_usd", eval.RewardValueUSD),
		slog.Float64("net_usd", eval.NetProfitUSD),
	)
	return domain.ItemResult{Item: src.ID, Outcome: domain.OutcomeExecuted, TxHash: txHash.Hex()}
}

func (a *HarvestAgent) alertTxFailure(ctx context.Context, source string, err error) {
	if a.alerts == nil {
		return
	}
	_ = a.alerts.Notify(ctx, notify.EventTxFailed,
		"Harvest transaction failed",
		fmt.Sprintf("source: %s\nerror: %v", source, err),
	)
}
