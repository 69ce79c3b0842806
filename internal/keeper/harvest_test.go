package keeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGas struct {
	quote domain.GasQuote
}

func (f fakeGas) Quote(context.Context) domain.GasQuote { return f.quote }

type fakePrices map[string]float64

func (f fakePrices) Price(_ context.Context, asset string) (float64, error) {
	if v, ok := f[asset]; ok {
		return v, nil
	}
	return 0, errors.New("no price available")
}

type fakeReceipts struct {
	err error
}

func (f fakeReceipts) WaitForReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

type fakeAdapter struct {
	pending     *big.Int
	pendingErr  error
	compoundErr error
	compounds   int
}

func (f *fakeAdapter) PendingRewards(context.Context, string, string) (*big.Int, error) {
	return f.pending, f.pendingErr
}

func (f *fakeAdapter) Compound(context.Context, string, uint64, *big.Int) (common.Hash, error) {
	if f.compoundErr != nil {
		return common.Hash{}, f.compoundErr
	}
	f.compounds++
	return common.HexToHash("0xabc123"), nil
}

type fakeAlerter struct {
	events []string
}

func (f *fakeAlerter) Notify(_ context.Context, event, _, _ string) error {
	f.events = append(f.events, event)
	return nil
}

// tokens returns n whole tokens in 18-decimal base units.
func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func harvestSources() []domain.RewardSource {
	return []domain.RewardSource{
		{ID: "aero-usdc", Contract: "0x1111", Adapter: "0xaaaa", RewardAsset: "aerodrome-finance", RewardDecimals: 18},
	}
}

func newHarvestAgent(adapter RewardCompounder, gasGwei int64, alerts Alerter) *HarvestAgent {
	return NewHarvestAgent(
		HarvestConfig{
			MaxGasGwei:        50,
			MinHarvestUSD:     1,
			ROIThreshold:      1.5,
			EstimatedGasUnits: 100_000,
			NativeAsset:       "ethereum",
			Keeper:            "0xkeeper",
			Sources:           harvestSources(),
		},
		map[string]RewardCompounder{"aero-usdc": adapter},
		fakeGas{quote: domain.DefaultGasQuote(gasGwei, time.Now())},
		fakePrices{"ethereum": 4000, "aerodrome-finance": 2.5},
		fakeReceipts{},
		alerts,
		testLogger(),
	)
}

func TestHarvestExecutesProfitableSource(t *testing.T) {
	// 2 tokens at $2.50 = $5 reward; 100k gas at 1 gwei and $4000 eth =
	// $0.40 cost; roi 12.5.
	adapter := &fakeAdapter{pending: tokens(2)}
	agent := newHarvestAgent(adapter, 1, nil)

	report, err := agent.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 1)

	assert.Equal(t, domain.OutcomeExecuted, report.Items[0].Outcome)
	assert.NotEmpty(t, report.Items[0].TxHash)
	assert.Equal(t, 1, adapter.compounds)
}

func TestHarvestSkipsWholeCycleOnHighGas(t *testing.T) {
	adapter := &fakeAdapter{pending: tokens(2)}
	agent := newHarvestAgent(adapter, 100, nil) // ceiling is 50 gwei

	report, err := agent.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 1)

	assert.Equal(t, domain.OutcomeSkipped, report.Items[0].Outcome)
	assert.Zero(t, adapter.compounds, "no transaction above the gas ceiling")
}

func TestHarvestSkipsZeroPending(t *testing.T) {
	adapter := &fakeAdapter{pending: big.NewInt(0)}
	agent := newHarvestAgent(adapter, 1, nil)

	report, err := agent.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 1)

	assert.Equal(t, domain.OutcomeSkipped, report.Items[0].Outcome)
	assert.Equal(t, "nothing to harvest", report.Items[0].Reason)
}

func TestHarvestSkipsUnprofitableSource(t *testing.T) {
	// Same $5 reward, but 40 gwei gas: 100k gas at $4000 eth = $16 cost.
	adapter := &fakeAdapter{pending: tokens(2)}
	agent := newHarvestAgent(adapter, 40, nil)

	report, err := agent.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 1)

	assert.Equal(t, domain.OutcomeSkipped, report.Items[0].Outcome)
	assert.Zero(t, adapter.compounds)
}

func TestHarvestFailureIsolation(t *testing.T) {
	broken := &fakeAdapter{pendingErr: errors.New("rpc timeout")}
	working := &fakeAdapter{pending: tokens(2)}

	agent := NewHarvestAgent(
		HarvestConfig{
			MaxGasGwei:        50,
			MinHarvestUSD:     1,
			ROIThreshold:      1.5,
			EstimatedGasUnits: 100_000,
			NativeAsset:       "ethereum",
			Keeper:            "0xkeeper",
			Sources: []domain.RewardSource{
				{ID: "broken", Contract: "0x1", Adapter: "0xa", RewardAsset: "aerodrome-finance", RewardDecimals: 18},
				{ID: "working", Contract: "0x2", Adapter: "0xb", RewardAsset: "aerodrome-finance", RewardDecimals: 18},
			},
		},
		map[string]RewardCompounder{"broken": broken, "working": working},
		fakeGas{quote: domain.DefaultGasQuote(1, time.Now())},
		fakePrices{"ethereum": 4000, "aerodrome-finance": 2.5},
		fakeReceipts{},
		nil,
		testLogger(),
	)

	report, err := agent.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 2)

	assert.Equal(t, domain.OutcomeFailed, report.Items[0].Outcome)
	assert.Equal(t, domain.OutcomeExecuted, report.Items[1].Outcome)
	assert.Equal(t, 1, working.compounds)
}

func TestHarvestAlertsOnSubmissionFailure(t *testing.T) {
	adapter := &fakeAdapter{pending: tokens(2), compoundErr: errors.New("nonce too low")}
	alerts := &fakeAlerter{}
	agent := newHarvestAgent(adapter, 1, alerts)

	report, err := agent.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 1)

	assert.Equal(t, domain.OutcomeFailed, report.Items[0].Outcome)
	assert.Contains(t, alerts.events, "tx_failed")
}

func TestHarvestCycleFailsWithoutNativePrice(t *testing.T) {
	adapter := &fakeAdapter{pending: tokens(2)}
	agent := NewHarvestAgent(
		HarvestConfig{
			MaxGasGwei:        50,
			EstimatedGasUnits: 100_000,
			NativeAsset:       "ethereum",
			Sources:           harvestSources(),
		},
		map[string]RewardCompounder{"aero-usdc": adapter},
		fakeGas{quote: domain.DefaultGasQuote(1, time.Now())},
		fakePrices{}, // no prices at all
		fakeReceipts{},
		nil,
		testLogger(),
	)

	_, err := agent.RunCycle(context.Background())
	require.Error(t, err)
	assert.Zero(t, adapter.compounds)
}
