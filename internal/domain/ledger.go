package domain

import "time"

// DepositLot records one observed deposit event. Lots are consumed
// oldest-first by later withdrawals; RemainingShares only ever decreases.
// Invariant: 0 <= RemainingShares <= SharesReceived, and
// FullyConsumed <=> RemainingShares == 0.
type DepositLot struct {
	ID              string
	Owner           string
	Vault           string
	InitialAmount   float64 // assets deposited, in USD-equivalent units
	SharesReceived  float64
	RemainingShares float64
	DepositedAt     time.Time
	TxRef           string
	FullyConsumed   bool
}

// ShareRatio reports the unconsumed fraction of the lot.
func (l DepositLot) ShareRatio() float64 {
	if l.SharesReceived <= 0 {
		return 0
	}
	return l.RemainingShares / l.SharesReceived
}

// RemainingPrincipal is the slice of the original deposit still attributable
// to this lot.
func (l DepositLot) RemainingPrincipal() float64 {
	return l.InitialAmount * l.ShareRatio()
}

// WithdrawalRecord is the immutable record of one observed withdrawal.
// Append-only; never mutated after creation.
type WithdrawalRecord struct {
	ID             string
	Owner          string
	Vault          string
	SharesBurned   float64
	AssetsReceived float64
	WithdrawnAt    time.Time
	TxRef          string
	Mature         bool
	PenaltyPaid    float64
}

// LotConsumption describes how much of one lot a withdrawal consumed.
type LotConsumption struct {
	LotID    string
	Shares   float64
	Depleted bool
}

// Position is the derived view of a user's standing in one vault: current
// balance attributed to original principal vs. accrued yield. It is computed
// on demand from the open lots and never stored.
type Position struct {
	Owner         string
	Vault         string
	CurrentShares float64
	CurrentValue  float64
	Principal     float64
	TotalYield    float64
	DaysStaked    float64
	OpenLots      int
}
