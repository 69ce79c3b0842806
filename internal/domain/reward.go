package domain

import "math/big"

// RewardSource identifies one reward stream (a gauge or vault adapter) the
// harvest keeper services. Static configuration, read-only at runtime.
type RewardSource struct {
	ID       string
	Contract string // vault / gauge contract address
	Adapter  string // reward adapter contract address
	// RewardAsset is the price-feed identifier of the reward token
	// (e.g. "ethereum", "base-jungle").
	RewardAsset string
	// RewardDecimals is the reward token's base-unit precision.
	RewardDecimals int
}

// PendingReward is the claimable amount reported by a reward adapter for one
// source, in the reward token's base units.
type PendingReward struct {
	Source RewardSource
	Amount *big.Int
}

// IsZero reports whether there is nothing to harvest.
func (p PendingReward) IsZero() bool {
	return p.Amount == nil || p.Amount.Sign() == 0
}

// TokenAmountToFloat converts a base-unit integer amount to a whole-token
// float using the given decimal precision.
func TokenAmountToFloat(amount *big.Int, decimals int) float64 {
	if amount == nil {
		return 0
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), scale).Float64()
	return f
}
