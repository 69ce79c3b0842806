package keeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celvios/Base-Jungle-sub000/internal/chain"
	"github.com/celvios/Base-Jungle-sub000/internal/domain"
	"github.com/celvios/Base-Jungle-sub000/internal/store/memory"
)

type fakeVault struct {
	deposits    []chain.DepositEvent
	withdrawals []chain.WithdrawEvent
	windows     [][2]uint64
}

func (f *fakeVault) Address() string { return "0xvault" }

func (f *fakeVault) Events(_ context.Context, from, to uint64) ([]chain.DepositEvent, []chain.WithdrawEvent, error) {
	f.windows = append(f.windows, [2]uint64{from, to})

	var deps []chain.DepositEvent
	for _, d := range f.deposits {
		if d.Block >= from && d.Block <= to {
			deps = append(deps, d)
		}
	}
	var wds []chain.WithdrawEvent
	for _, w := range f.withdrawals {
		if w.Block >= from && w.Block <= to {
			wds = append(wds, w)
		}
	}
	return deps, wds, nil
}

type fakeHead uint64

func (f fakeHead) BlockNumber(context.Context) (uint64, error) { return uint64(f), nil }

type recordingLedger struct {
	deposits    []string
	withdrawals []string
	ops         []string
	shortfall   bool
}

func (r *recordingLedger) TrackDeposit(_ context.Context, _, _ string, _, _ float64, _ time.Time, txRef string) error {
	r.deposits = append(r.deposits, txRef)
	r.ops = append(r.ops, "deposit:"+txRef)
	return nil
}

func (r *recordingLedger) TrackWithdrawal(_ context.Context, w domain.WithdrawalRecord) ([]domain.LotConsumption, error) {
	r.withdrawals = append(r.withdrawals, w.TxRef)
	r.ops = append(r.ops, "withdraw:"+w.TxRef)
	if r.shortfall {
		return nil, domain.ErrInsufficientLots
	}
	return nil, nil
}

func newWatcher(vault *fakeVault, head uint64, ledger *recordingLedger, checkpoints domain.CheckpointStore, alerts Alerter) *VaultWatcher {
	return NewVaultWatcher(
		WatcherConfig{StartBlock: 1, MaxBlockRange: 100},
		vault,
		fakeHead(head),
		ledger,
		checkpoints,
		alerts,
		testLogger(),
	)
}

func TestWatcherScansInBoundedWindows(t *testing.T) {
	vault := &fakeVault{}
	checkpoints := memory.NewCheckpointStore()
	watcher := newWatcher(vault, 250, &recordingLedger{}, checkpoints, nil)

	require.NoError(t, watcher.RunCycle(context.Background()))

	assert.Equal(t, [][2]uint64{{1, 100}, {101, 200}, {201, 250}}, vault.windows)

	last, err := checkpoints.LastScannedBlock(context.Background(), "vault_events")
	require.NoError(t, err)
	assert.Equal(t, uint64(250), last)
}

func TestWatcherResumesFromCheckpoint(t *testing.T) {
	vault := &fakeVault{}
	checkpoints := memory.NewCheckpointStore()
	require.NoError(t, checkpoints.SetLastScannedBlock(context.Background(), "vault_events", 200))

	watcher := newWatcher(vault, 250, &recordingLedger{}, checkpoints, nil)
	require.NoError(t, watcher.RunCycle(context.Background()))

	assert.Equal(t, [][2]uint64{{201, 250}}, vault.windows)
}

func TestWatcherNoOpWhenCaughtUp(t *testing.T) {
	vault := &fakeVault{}
	checkpoints := memory.NewCheckpointStore()
	require.NoError(t, checkpoints.SetLastScannedBlock(context.Background(), "vault_events", 250))

	watcher := newWatcher(vault, 250, &recordingLedger{}, checkpoints, nil)
	require.NoError(t, watcher.RunCycle(context.Background()))

	assert.Empty(t, vault.windows)
}

func TestWatcherFeedsEventsToLedger(t *testing.T) {
	now := time.Now().UTC()
	vault := &fakeVault{
		deposits: []chain.DepositEvent{
			{Owner: "0xalice", Assets: 100, Shares: 100, TxRef: "0xaaa:0", At: now, Block: 10},
		},
		withdrawals: []chain.WithdrawEvent{
			{Owner: "0xalice", Assets: 40, Shares: 40, Mature: true, TxRef: "0xbbb:1", At: now, Block: 20},
		},
	}
	ledger := &recordingLedger{}
	watcher := newWatcher(vault, 50, ledger, memory.NewCheckpointStore(), nil)

	require.NoError(t, watcher.RunCycle(context.Background()))

	assert.Equal(t, []string{"0xaaa:0"}, ledger.deposits)
	assert.Equal(t, []string{"0xbbb:1"}, ledger.withdrawals)
}

func TestWatcherAppliesEventsInChainOrder(t *testing.T) {
	now := time.Now().UTC()

	// A withdrawal precedes a deposit inside the same window, and in the
	// last block the two interleave by log index. Replay order must match
	// the chain, not group deposits first.
	vault := &fakeVault{
		deposits: []chain.DepositEvent{
			{Owner: "0xalice", Assets: 50, Shares: 50, TxRef: "0xddd:0", At: now, Block: 12},
			{Owner: "0xalice", Assets: 10, Shares: 10, TxRef: "0xfff:7", At: now, Block: 30, LogIndex: 7},
		},
		withdrawals: []chain.WithdrawEvent{
			{Owner: "0xalice", Assets: 40, Shares: 40, TxRef: "0xeee:0", At: now, Block: 8},
			{Owner: "0xalice", Assets: 5, Shares: 5, TxRef: "0xfff:3", At: now, Block: 30, LogIndex: 3},
		},
	}
	ledger := &recordingLedger{}
	watcher := newWatcher(vault, 50, ledger, memory.NewCheckpointStore(), nil)

	require.NoError(t, watcher.RunCycle(context.Background()))

	assert.Equal(t, []string{
		"withdraw:0xeee:0",
		"deposit:0xddd:0",
		"withdraw:0xfff:3",
		"deposit:0xfff:7",
	}, ledger.ops)
}

func TestWatcherFlagsLedgerShortfallAndContinues(t *testing.T) {
	now := time.Now().UTC()
	vault := &fakeVault{
		withdrawals: []chain.WithdrawEvent{
			{Owner: "0xalice", Assets: 999, Shares: 999, TxRef: "0xccc:0", At: now, Block: 5},
		},
	}
	ledger := &recordingLedger{shortfall: true}
	alerts := &fakeAlerter{}
	checkpoints := memory.NewCheckpointStore()
	watcher := newWatcher(vault, 50, ledger, checkpoints, alerts)

	require.NoError(t, watcher.RunCycle(context.Background()))

	assert.Contains(t, alerts.events, "ledger_inconsistency")

	// The shortfall is a data flag, not a scan failure: the checkpoint still
	// advances.
	last, err := checkpoints.LastScannedBlock(context.Background(), "vault_events")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), last)
}
