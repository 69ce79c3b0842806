package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
	"github.com/celvios/Base-Jungle-sub000/internal/store/memory"
)

const (
	testOwner = "0xAliceAliceAliceAliceAliceAliceAliceAlic1"
	testVault = "0xVaultVaultVaultVaultVaultVaultVaultVaul1"
)

func newTestService(t *testing.T) (*Service, *memory.LotStore) {
	t.Helper()
	lots := memory.NewLotStore()
	svc := New(
		lots,
		memory.NewWithdrawalStore(),
		memory.NewLockManager(),
		time.Second,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return svc, lots
}

func withdrawal(shares float64, assets float64, txRef string, at time.Time) domain.WithdrawalRecord {
	return domain.WithdrawalRecord{
		Owner:          testOwner,
		Vault:          testVault,
		SharesBurned:   shares,
		AssetsReceived: assets,
		WithdrawnAt:    at,
		TxRef:          txRef,
		Mature:         true,
	}
}

func TestTrackWithdrawalConsumesOldestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 100, 100, t1, "0xaaa:0"))
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 50, 50, t2, "0xbbb:0"))

	consumed, err := svc.TrackWithdrawal(ctx, withdrawal(120, 130, "0xccc:0", t2.Add(time.Hour)))
	require.NoError(t, err)
	require.Len(t, consumed, 2)

	// The older lot is emptied first; the newer one covers the remainder.
	assert.InDelta(t, 100, consumed[0].Shares, 1e-12)
	assert.True(t, consumed[0].Depleted)
	assert.InDelta(t, 20, consumed[1].Shares, 1e-12)
	assert.False(t, consumed[1].Depleted)

	pos, err := svc.GetPosition(ctx, testOwner, testVault, 30, 30)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 1, pos.OpenLots)
	assert.InDelta(t, 30, pos.Principal, 1e-9)
}

func TestTrackWithdrawalDepletesRemainder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 100, 100, t1, "0xaaa:0"))
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 50, 50, t2, "0xbbb:0"))

	_, err := svc.TrackWithdrawal(ctx, withdrawal(120, 120, "0xccc:0", t2.Add(time.Hour)))
	require.NoError(t, err)

	consumed, err := svc.TrackWithdrawal(ctx, withdrawal(30, 33, "0xddd:0", t2.Add(2*time.Hour)))
	require.NoError(t, err)
	require.Len(t, consumed, 1)
	assert.InDelta(t, 30, consumed[0].Shares, 1e-12)
	assert.True(t, consumed[0].Depleted)

	pos, err := svc.GetPosition(ctx, testOwner, testVault, 0, 0)
	require.NoError(t, err)
	assert.Nil(t, pos, "all lots consumed, no position remains")
}

func TestTrackWithdrawalInsufficientLots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 40, 40, t1, "0xaaa:0"))

	consumed, err := svc.TrackWithdrawal(ctx, withdrawal(100, 100, "0xbbb:0", t1.Add(time.Hour)))
	require.ErrorIs(t, err, domain.ErrInsufficientLots)

	// What was available got consumed before the shortfall was flagged.
	require.Len(t, consumed, 1)
	assert.InDelta(t, 40, consumed[0].Shares, 1e-12)
	assert.True(t, consumed[0].Depleted)
}

func TestTrackWithdrawalNoOpenLots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.TrackWithdrawal(ctx, withdrawal(10, 10, "0xaaa:0", time.Now()))
	require.ErrorIs(t, err, domain.ErrInsufficientLots)
}

func TestDuplicateDepositIsNoOp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 100, 100, t1, "0xaaa:0"))
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 100, 100, t1, "0xaaa:0"))

	pos, err := svc.GetPosition(ctx, testOwner, testVault, 100, 100)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 1, pos.OpenLots, "duplicate delivery must not double count")
	assert.InDelta(t, 100, pos.Principal, 1e-9)
}

func TestDuplicateWithdrawalIsNoOp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 100, 100, t1, "0xaaa:0"))

	first, err := svc.TrackWithdrawal(ctx, withdrawal(60, 60, "0xbbb:0", t1.Add(time.Hour)))
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.TrackWithdrawal(ctx, withdrawal(60, 60, "0xbbb:0", t1.Add(time.Hour)))
	require.NoError(t, err)
	assert.Nil(t, second, "duplicate delivery must not consume lots again")

	pos, err := svc.GetPosition(ctx, testOwner, testVault, 40, 40)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.InDelta(t, 40, pos.Principal, 1e-9)
}

func TestGetPositionAttributesYield(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t1 := time.Now().UTC().Add(-10 * 24 * time.Hour)
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 1000, 1000, t1, "0xaaa:0"))

	// Vault appreciated: 1000 shares now worth 1100.
	pos, err := svc.GetPosition(ctx, testOwner, testVault, 1000, 1100)
	require.NoError(t, err)
	require.NotNil(t, pos)

	assert.InDelta(t, 1000, pos.Principal, 1e-9)
	assert.InDelta(t, 100, pos.TotalYield, 1e-9)
	assert.InDelta(t, 10, pos.DaysStaked, 0.1)
}

func TestGetPositionYieldNeverNegative(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 1000, 1000, t1, "0xaaa:0"))

	pos, err := svc.GetPosition(ctx, testOwner, testVault, 1000, 900)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Zero(t, pos.TotalYield)
}

func TestGetPositionIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 100, 100, t1, "0xaaa:0"))
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 200, 190, t2, "0xbbb:0"))
	_, err := svc.TrackWithdrawal(ctx, withdrawal(150, 160, "0xccc:0", t2.Add(time.Hour)))
	require.NoError(t, err)

	first, err := svc.GetPosition(ctx, testOwner, testVault, 140, 150)
	require.NoError(t, err)
	second, err := svc.GetPosition(ctx, testOwner, testVault, 140, 150)
	require.NoError(t, err)

	assert.InDelta(t, first.Principal, second.Principal, 1e-12)
	assert.InDelta(t, first.TotalYield, second.TotalYield, 1e-12)
	assert.Equal(t, first.OpenLots, second.OpenLots)
}

func TestPartialLotProportionalPrincipal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Deposit 200 assets for 190 shares, withdraw half the shares: remaining
	// principal is the unconsumed share fraction of the original amount.
	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 200, 190, t1, "0xaaa:0"))

	_, err := svc.TrackWithdrawal(ctx, withdrawal(95, 100, "0xbbb:0", t1.Add(time.Hour)))
	require.NoError(t, err)

	pos, err := svc.GetPosition(ctx, testOwner, testVault, 95, 105)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.InDelta(t, 100, pos.Principal, 1e-9)
}

func TestTrackDepositRejectsNonPositiveShares(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.TrackDeposit(ctx, testOwner, testVault, 100, 0, time.Now(), "0xaaa:0")
	require.Error(t, err)
}

func TestWithdrawalsReturnsHistoryInOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TrackDeposit(ctx, testOwner, testVault, 300, 300, t1, "0xaaa:0"))

	_, err := svc.TrackWithdrawal(ctx, withdrawal(100, 100, "0xbbb:0", t1.Add(time.Hour)))
	require.NoError(t, err)
	_, err = svc.TrackWithdrawal(ctx, withdrawal(50, 55, "0xccc:0", t1.Add(2*time.Hour)))
	require.NoError(t, err)

	records, err := svc.Withdrawals(ctx, testOwner, testVault)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "0xbbb:0", records[0].TxRef)
	assert.Equal(t, "0xccc:0", records[1].TxRef)
}
