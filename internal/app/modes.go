package app

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/celvios/Base-Jungle-sub000/internal/chain"
	"github.com/celvios/Base-Jungle-sub000/internal/domain"
	"github.com/celvios/Base-Jungle-sub000/internal/keeper"
	"github.com/celvios/Base-Jungle-sub000/internal/ledger"
	"github.com/celvios/Base-Jungle-sub000/internal/oracle"
)

// buildHarvestAgent assembles the harvest agent from wired dependencies.
func (a *App) buildHarvestAgent(deps *Dependencies) *keeper.HarvestAgent {
	sources := make([]domain.RewardSource, 0, len(a.cfg.Harvest.Sources))
	adapters := make(map[string]keeper.RewardCompounder, len(a.cfg.Harvest.Sources))
	for _, sc := range a.cfg.Harvest.Sources {
		src := domain.RewardSource{
			ID:             sc.ID,
			Contract:       sc.Contract,
			Adapter:        sc.Adapter,
			RewardAsset:    sc.RewardAsset,
			RewardDecimals: sc.RewardDecimals,
		}
		sources = append(sources, src)
		adapters[src.ID] = chain.NewRewardAdapter(deps.Chain, src.Adapter)
	}

	return keeper.NewHarvestAgent(
		keeper.HarvestConfig{
			MaxGasGwei:        a.cfg.Harvest.MaxGasGwei,
			MinHarvestUSD:     a.cfg.Harvest.MinHarvestUSD,
			ROIThreshold:      a.cfg.Harvest.ROIThreshold,
			EstimatedGasUnits: a.cfg.Harvest.EstimatedGasUnits,
			NativeAsset:       a.cfg.Oracle.NativeAsset,
			Keeper:            deps.Chain.Keeper().Hex(),
			Sources:           sources,
		},
		adapters,
		deps.GasOracle,
		deps.PriceFeed,
		deps.Chain,
		deps.Notifier,
		a.logger,
	)
}

// buildRebalanceAgent assembles the rebalance agent from wired dependencies.
func (a *App) buildRebalanceAgent(deps *Dependencies) *keeper.RebalanceAgent {
	manager := chain.NewLeverageManager(deps.Chain, a.cfg.Rebalance.LeverageManager)
	return keeper.NewRebalanceAgent(
		keeper.RebalanceConfig{
			Owners:     a.cfg.Rebalance.Owners,
			MaxGasGwei: a.cfg.Rebalance.MaxGasGwei,
			GasLimit:   a.cfg.Rebalance.GasLimit,
		},
		manager,
		deps.GasOracle,
		deps.Chain,
		deps.Notifier,
		a.logger,
	)
}

// buildMonitor assembles the system health monitor.
func (a *App) buildMonitor(deps *Dependencies) *keeper.Monitor {
	paused := func(ctx context.Context, contract string) (bool, error) {
		return chain.Paused(ctx, deps.Chain, contract)
	}
	return keeper.NewMonitor(
		keeper.MonitorConfig{
			Keeper:              deps.Chain.Keeper().Hex(),
			MinKeeperBalanceEth: a.cfg.Monitor.MinKeeperBalanceEth,
			PausableContracts:   a.cfg.Monitor.PausableContracts,
			PriceProbeAsset:     a.cfg.Oracle.NativeAsset,
		},
		deps.Chain,
		paused,
		deps.PriceFeed,
		deps.Notifier,
		a.logger,
	)
}

// buildVaultWatcher assembles the ledger service and the vault event watcher
// feeding it.
func (a *App) buildVaultWatcher(deps *Dependencies) (*ledger.Service, *keeper.VaultWatcher) {
	svc := ledger.New(
		deps.LotStore,
		deps.WithdrawalStore,
		deps.LockManager,
		a.cfg.Ledger.LockTTL.Duration,
		a.logger,
	)

	vault := chain.NewVault(deps.Chain, a.cfg.Ledger.Vault)
	watcher := keeper.NewVaultWatcher(
		keeper.WatcherConfig{
			StartBlock:    a.cfg.Ledger.StartBlock,
			MaxBlockRange: a.cfg.Ledger.MaxBlockRange,
		},
		vault,
		deps.Chain,
		svc,
		deps.CheckpointStore,
		deps.Notifier,
		a.logger,
	)
	return svc, watcher
}

// reportSink returns a cycle wrapper that forwards finished reports to the
// archiver when one is wired.
func (a *App) reportSink(deps *Dependencies, run func(ctx context.Context) (domain.CycleReport, error)) keeper.CycleFunc {
	return func(ctx context.Context) error {
		report, err := run(ctx)
		if deps.Archiver != nil {
			if archErr := deps.Archiver.ArchiveReport(ctx, report); archErr != nil {
				a.logger.WarnContext(ctx, "report archive failed",
					slog.String("agent", report.Agent),
					slog.String("error", archErr.Error()),
				)
			}
		}
		return err
	}
}

// startPriceStream adds the websocket price stream goroutine when an endpoint
// is configured.
func (a *App) startPriceStream(g *errgroup.Group, ctx context.Context, deps *Dependencies) {
	if a.cfg.Oracle.StreamURL == "" {
		return
	}
	stream := oracle.NewPriceStream(a.cfg.Oracle.StreamURL, deps.PriceCache, a.logger)
	g.Go(func() error {
		return stream.Run(ctx)
	})
}

// HarvestMode runs only the harvest agent.
func (a *App) HarvestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting harvest mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startPriceStream(g, ctx, deps)

	agent := a.buildHarvestAgent(deps)
	runner := keeper.NewRunner("harvest",
		a.cfg.Harvest.Interval.Duration,
		a.cfg.Harvest.CycleTimeout.Duration,
		a.reportSink(deps, agent.RunCycle),
		a.logger,
	)
	g.Go(func() error { return runner.Run(ctx) })

	return g.Wait()
}

// RebalanceMode runs only the rebalance agent.
func (a *App) RebalanceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting rebalance mode")

	g, ctx := errgroup.WithContext(ctx)

	agent := a.buildRebalanceAgent(deps)
	runner := keeper.NewRunner("rebalance",
		a.cfg.Rebalance.Interval.Duration,
		a.cfg.Rebalance.CycleTimeout.Duration,
		a.reportSink(deps, agent.RunCycle),
		a.logger,
	)
	g.Go(func() error { return runner.Run(ctx) })

	return g.Wait()
}

// MonitorMode runs only the system health monitor.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	monitor := a.buildMonitor(deps)
	runner := keeper.NewRunner("monitor",
		a.cfg.Monitor.Interval.Duration,
		0,
		func(ctx context.Context) error {
			monitor.RunChecks(ctx)
			return nil
		},
		a.logger,
	)
	g.Go(func() error { return runner.Run(ctx) })

	return g.Wait()
}

// LedgerMode runs the vault event watcher, the position ledger, and the
// cold-storage archiver.
func (a *App) LedgerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting ledger mode")

	g, ctx := errgroup.WithContext(ctx)

	_, watcher := a.buildVaultWatcher(deps)
	runner := keeper.NewRunner("vault_watcher",
		a.cfg.Ledger.EventPollInterval.Duration,
		0,
		watcher.RunCycle,
		a.logger,
	)
	g.Go(func() error { return runner.Run(ctx) })

	a.startArchiver(g, ctx, deps)

	return g.Wait()
}

// FullMode runs every agent.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startPriceStream(g, ctx, deps)

	if a.cfg.Harvest.Enabled {
		agent := a.buildHarvestAgent(deps)
		runner := keeper.NewRunner("harvest",
			a.cfg.Harvest.Interval.Duration,
			a.cfg.Harvest.CycleTimeout.Duration,
			a.reportSink(deps, agent.RunCycle),
			a.logger,
		)
		g.Go(func() error { return runner.Run(ctx) })
	}

	if a.cfg.Rebalance.Enabled {
		agent := a.buildRebalanceAgent(deps)
		runner := keeper.NewRunner("rebalance",
			a.cfg.Rebalance.Interval.Duration,
			a.cfg.Rebalance.CycleTimeout.Duration,
			a.reportSink(deps, agent.RunCycle),
			a.logger,
		)
		g.Go(func() error { return runner.Run(ctx) })
	}

	if a.cfg.Monitor.Enabled {
		monitor := a.buildMonitor(deps)
		runner := keeper.NewRunner("monitor",
			a.cfg.Monitor.Interval.Duration,
			0,
			func(ctx context.Context) error {
				monitor.RunChecks(ctx)
				return nil
			},
			a.logger,
		)
		g.Go(func() error { return runner.Run(ctx) })
	}

	_, watcher := a.buildVaultWatcher(deps)
	watcherRunner := keeper.NewRunner("vault_watcher",
		a.cfg.Ledger.EventPollInterval.Duration,
		0,
		watcher.RunCycle,
		a.logger,
	)
	g.Go(func() error { return watcherRunner.Run(ctx) })

	a.startArchiver(g, ctx, deps)

	return g.Wait()
}

// startArchiver adds the cold-storage archive loop when S3 is wired.
func (a *App) startArchiver(g *errgroup.Group, ctx context.Context, deps *Dependencies) {
	if deps.Archiver == nil || a.cfg.S3.ArchiveEvery.Duration <= 0 {
		return
	}
	runner := keeper.NewRunner("archiver",
		a.cfg.S3.ArchiveEvery.Duration,
		0,
		func(ctx context.Context) error {
			_, err := deps.Archiver.ArchiveLots(ctx)
			return err
		},
		a.logger,
	)
	g.Go(func() error { return runner.Run(ctx) })
}
