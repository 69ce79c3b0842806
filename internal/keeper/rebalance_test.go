package keeper

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

type fakeManager struct {
	health     map[string]domain.PositionHealth
	healthErr  map[string]error
	rebalanced []string
	gasPrices  []*big.Int
	txErr      error
}

func (f *fakeManager) PositionHealth(_ context.Context, user string) (domain.PositionHealth, error) {
	if err := f.healthErr[user]; err != nil {
		return domain.PositionHealth{}, err
	}
	return f.health[user], nil
}

func (f *fakeManager) Rebalance(_ context.Context, user string, _ uint64, gasPrice *big.Int) (common.Hash, error) {
	if f.txErr != nil {
		return common.Hash{}, f.txErr
	}
	f.rebalanced = append(f.rebalanced, user)
	f.gasPrices = append(f.gasPrices, gasPrice)
	return common.HexToHash("0xdef456"), nil
}

func position(owner string, hf float64) domain.PositionHealth {
	return domain.PositionHealth{
		Owner:           owner,
		HealthFactor:    hf,
		CollateralValue: 1000,
		BorrowValue:     1000 / hf,
		Healthy:         hf >= 1.2,
	}
}

func newRebalanceAgent(manager *fakeManager, owners []string, gasGwei int64, alerts Alerter) *RebalanceAgent {
	return NewRebalanceAgent(
		RebalanceConfig{
			Owners:     owners,
			MaxGasGwei: 50,
			GasLimit:   800_000,
		},
		manager,
		fakeGas{quote: domain.DefaultGasQuote(gasGwei, time.Now())},
		fakeReceipts{},
		alerts,
		testLogger(),
	)
}

func TestRebalanceActsMostUrgentFirst(t *testing.T) {
	manager := &fakeManager{health: map[string]domain.PositionHealth{
		"0xidle":   position("0xidle", 2.5),
		"0xdanger": position("0xdanger", 1.25),
		"0xok":     position("0xok", 1.6),
	}}
	agent := newRebalanceAgent(manager, []string{"0xidle", "0xdanger", "0xok"}, 1, nil)

	report, err := agent.RunCycle(context.Background())
	require.NoError(t, err)

	// Danger before inefficient; healthy untouched.
	require.Equal(t, []string{"0xdanger", "0xidle"}, manager.rebalanced)

	executed, skipped, failed := report.Counts()
	assert.Equal(t, 2, executed)
	assert.Equal(t, 1, skipped)
	assert.Zero(t, failed)
}

func TestRebalanceSkipsHealthyPositions(t *testing.T) {
	manager := &fakeManager{health: map[string]domain.PositionHealth{
		"0xok": position("0xok", 1.5),
	}}
	agent := newRebalanceAgent(manager, []string{"0xok"}, 1, nil)

	report, err := agent.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 1)

	assert.Equal(t, domain.OutcomeSkipped, report.Items[0].Outcome)
	assert.Empty(t, manager.rebalanced)
}

func TestRebalanceHighGasOnlyEmergencyActs(t *testing.T) {
	manager := &fakeManager{health: map[string]domain.PositionHealth{
		"0xurgent": position("0xurgent", 1.1),
		"0xdanger": position("0xdanger", 1.25),
		"0xidle":   position("0xidle", 2.5),
	}}
	alerts := &fakeAlerter{}
	agent := newRebalanceAgent(manager, []string{"0xurgent", "0xdanger", "0xidle"}, 100, alerts)

	_, err := agent.RunCycle(context.Background())
	require.NoError(t, err)

	// Only the emergency position trades through the gas ceiling, at the
	// fast price.
	require.Equal(t, []string{"0xurgent"}, manager.rebalanced)
	require.Len(t, manager.gasPrices, 1)
	fast := domain.DefaultGasQuote(100, time.Now()).Fast
	assert.Equal(t, fast, manager.gasPrices[0])
	assert.Contains(t, alerts.events, "emergency_rebalance")
}

func TestRebalanceScanFailureIsolation(t *testing.T) {
	manager := &fakeManager{
		health: map[string]domain.PositionHealth{
			"0xdanger": position("0xdanger", 1.25),
		},
		healthErr: map[string]error{
			"0xbroken": errors.New("execution reverted"),
		},
	}
	agent := newRebalanceAgent(manager, []string{"0xbroken", "0xdanger"}, 1, nil)

	report, err := agent.RunCycle(context.Background())
	require.NoError(t, err)

	executed, _, failed := report.Counts()
	assert.Equal(t, 1, executed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"0xdanger"}, manager.rebalanced)
}

func TestRebalanceAlertsOnTxFailure(t *testing.T) {
	manager := &fakeManager{
		health: map[string]domain.PositionHealth{
			"0xdanger": position("0xdanger", 1.25),
		},
		txErr: errors.New("insufficient funds for gas"),
	}
	alerts := &fakeAlerter{}
	agent := newRebalanceAgent(manager, []string{"0xdanger"}, 1, alerts)

	report, err := agent.RunCycle(context.Background())
	require.NoError(t, err)

	_, _, failed := report.Counts()
	assert.Equal(t, 1, failed)
	assert.Contains(t, alerts.events, "tx_failed")
}

func TestScanReturnsSortedSnapshot(t *testing.T) {
	manager := &fakeManager{health: map[string]domain.PositionHealth{
		"0xa": position("0xa", 1.9),
		"0xb": position("0xb", 1.05),
	}}
	agent := newRebalanceAgent(manager, []string{"0xa", "0xb"}, 1, nil)

	positions, failures := agent.Scan(context.Background())
	require.Empty(t, failures)
	require.Len(t, positions, 2)
	assert.Equal(t, "0xb", positions[0].Owner)
	assert.Empty(t, manager.rebalanced, "scan is read-only")
}
