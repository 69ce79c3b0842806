package keeper

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/celvios/Base-Jungle-sub000/internal/notify"
)

// weiPerEth converts the keeper balance floor from whole ether.
var weiPerEth = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// ChainProber is the slice of the chain client the monitor needs.
type ChainProber interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Balance(ctx context.Context, addr string) (*big.Int, error)
}

// PauseChecker reads a contract's pause flag.
type PauseChecker func(ctx context.Context, contract string) (bool, error)

// CheckResult is the outcome of one health check.
type CheckResult struct {
	Name    string
	Healthy bool
	Detail  string
}

// MonitorConfig parameterizes the system health monitor.
type MonitorConfig struct {
	Keeper string
	// MinKeeperBalanceEth is the native-token operating floor for the keeper
	// wallet. Below it transactions will start failing on gas.
	MinKeeperBalanceEth float64
	PausableContracts   []string
	// PriceProbeAsset is the asset whose price lookup doubles as the oracle
	// liveness probe.
	PriceProbeAsset string
}

// Monitor runs independent health checks in parallel: RPC liveness, keeper
// wallet balance, contract pause flags, and oracle availability. Each check
// is isolated; a panicking check is reported unhealthy, never allowed to take
// the process down.
type Monitor struct {
	cfg    MonitorConfig
	chain  ChainProber
	paused PauseChecker
	prices PriceSource
	alerts Alerter
	logger *slog.Logger
}

// NewMonitor creates a system health monitor.
func NewMonitor(cfg MonitorConfig, chain ChainProber, paused PauseChecker, prices PriceSource, alerts Alerter, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		chain:  chain,
		paused: paused,
		prices: prices,
		alerts: alerts,
		logger: logger.With(slog.String("component", "monitor")),
	}
}

// RunChecks executes all health checks concurrently and returns their
// results. Unhealthy results are logged and raised as one combined alert.
func (m *Monitor) RunChecks(ctx context.Context) []CheckResult {
	checks := []struct {
		name string
		fn   func(ctx context.Context) CheckResult
	}{
		{"rpc", m.checkRPC},
		{"keeper_balance", m.checkBalance},
		{"pause_flags", m.checkPauseFlags},
		{"oracle", m.checkOracle},
	}

	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, name string, fn func(ctx context.Context) CheckResult) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = CheckResult{
						Name:   name,
						Detail: fmt.Sprintf("check panicked: %v", r),
					}
				}
			}()
			results[i] = fn(ctx)
		}(i, c.name, c.fn)
	}
	wg.Wait()

	var unhealthy []string
	for _, r := range results {
		if r.Healthy {
			m.logger.DebugContext(ctx, "check passed", slog.String("check", r.Name))
			continue
		}
		m.logger.WarnContext(ctx, "check failed",
			slog.String("check", r.Name),
			slog.String("detail", r.Detail),
		)
		unhealthy = append(unhealthy, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}

	if len(unhealthy) > 0 && m.alerts != nil {
		_ = m.alerts.Notify(ctx, notify.EventMonitorUnhealthy,
			"Keeper health degraded",
			strings.Join(unhealthy, "\n"),
		)
	}

	return results
}

func (m *Monitor) checkRPC(ctx context.Context) CheckResult {
	block, err := m.chain.BlockNumber(ctx)
	if err != nil {
		return CheckResult{Name: "rpc", Detail: fmt.Sprintf("block number: %v", err)}
	}
	return CheckResult{Name: "rpc", Healthy: true, Detail: fmt.Sprintf("head %d", block)}
}

func (m *Monitor) checkBalance(ctx context.Context) CheckResult {
	bal, err := m.chain.Balance(ctx, m.cfg.Keeper)
	if err != nil {
		return CheckResult{Name: "keeper_balance", Detail: fmt.Sprintf("balance query: %v", err)}
	}

	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(bal), weiPerEth).Float64()
	if eth < m.cfg.MinKeeperBalanceEth {
		return CheckResult{
			Name:   "keeper_balance",
			Detail: fmt.Sprintf("%.4f eth below floor %.4f", eth, m.cfg.MinKeeperBalanceEth),
		}
	}
	return CheckResult{Name: "keeper_balance", Healthy: true, Detail: fmt.Sprintf("%.4f eth", eth)}
}

func (m *Monitor) checkPauseFlags(ctx context.Context) CheckResult {
	var paused []string
	for _, contract := range m.cfg.PausableContracts {
		isPaused, err := m.paused(ctx, contract)
		if err != nil {
			return CheckResult{Name: "pause_flags", Detail: fmt.Sprintf("%s: %v", contract, err)}
		}
		if isPaused {
			paused = append(paused, contract)
		}
	}
	if len(paused) > 0 {
		return CheckResult{Name: "pause_flags", Detail: "paused: " + strings.Join(paused, ", ")}
	}
	return CheckResult{Name: "pause_flags", Healthy: true, Detail: "all live"}
}

func (m *Monitor) checkOracle(ctx context.Context) CheckResult {
	price, err := m.prices.Price(ctx, m.cfg.PriceProbeAsset)
	if err != nil {
		return CheckResult{Name: "oracle", Detail: fmt.Sprintf("price probe: %v", err)}
	}
	return CheckResult{Name: "oracle", Healthy: true, Detail: fmt.Sprintf("%s at %.2f usd", m.cfg.PriceProbeAsset, price)}
}
