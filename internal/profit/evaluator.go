// Package profit implements the profitability gate: the pure decision
// function that determines whether a keeper action is worth its gas cost.
package profit

import (
	"math/big"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// weiPerEth is 10^18, the native token's base-unit precision.
var weiPerEth = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// EvalInput carries everything the gate needs for one decision. All fields
// are caller-supplied; the gate performs no I/O and holds no state, so it is
// deterministic and safe for concurrent use.
type EvalInput struct {
	// RewardAmount is the claimable amount in the reward token's base units.
	RewardAmount *big.Int
	// RewardDecimals is the reward token's base-unit precision.
	RewardDecimals int
	// RewardPriceUSD is the reward token's USD price.
	RewardPriceUSD float64
	// EstimatedGasUnits is the expected gas usage of the action.
	EstimatedGasUnits uint64
	// GasPriceWei is the price per gas unit in wei.
	GasPriceWei *big.Int
	// NativeTokenPriceUSD is the gas token's USD price.
	NativeTokenPriceUSD float64
	// ROIThreshold is the minimum reward/cost multiple; <= 0 falls back to
	// the default of 1.5.
	ROIThreshold float64
}

// RewardLeg is one reward stream inside a batched evaluation.
type RewardLeg struct {
	Amount   *big.Int
	Decimals int
	PriceUSD float64
}

// Evaluate runs one candidate action through the gate.
//
// ROI is defined as 0, not infinite, when the gas cost is zero; in that case
// profitability depends only on the net profit being positive.
func Evaluate(in EvalInput) domain.ProfitabilityResult {
	rewardUSD := domain.TokenAmountToFloat(in.RewardAmount, in.RewardDecimals) * in.RewardPriceUSD
	gasUSD := gasCostUSD(in.EstimatedGasUnits, in.GasPriceWei, in.NativeTokenPriceUSD)
	return gate(rewardUSD, gasUSD, in.ROIThreshold)
}

// EvaluateBatch sums multiple reward legs against one shared gas cost before
// applying the same rule — used when one transaction harvests several
// sources at once.
func EvaluateBatch(legs []RewardLeg, estimatedGasUnits uint64, gasPriceWei *big.Int, nativePriceUSD, roiThreshold float64) domain.ProfitabilityResult {
	var rewardUSD float64
	for _, leg := range legs {
		rewardUSD += domain.TokenAmountToFloat(leg.Amount, leg.Decimals) * leg.PriceUSD
	}
	gasUSD := gasCostUSD(estimatedGasUnits, gasPriceWei, nativePriceUSD)
	return gate(rewardUSD, gasUSD, roiThreshold)
}

func gasCostUSD(gasUnits uint64, gasPriceWei *big.Int, nativePriceUSD float64) float64 {
	if gasPriceWei == nil || gasPriceWei.Sign() <= 0 || gasUnits == 0 {
		return 0
	}
	costWei := new(big.Int).Mul(new(big.Int).SetUint64(gasUnits), gasPriceWei)
	costEth, _ := new(big.Float).Quo(new(big.Float).SetInt(costWei), weiPerEth).Float64()
	return costEth * nativePriceUSD
}

func gate(rewardUSD, gasUSD, roiThreshold float64) domain.ProfitabilityResult {
	if roiThreshold <= 0 {
		roiThreshold = domain.DefaultROIThreshold
	}

	net := rewardUSD - gasUSD

	// With zero gas cost ROI is defined as 0 and profitability depends only
	// on the net profit being positive.
	var roi float64
	profitable := net > 0
	if gasUSD > 0 {
		roi = rewardUSD / gasUSD
		profitable = profitable && roi >= roiThreshold
	}

	return domain.ProfitabilityResult{
		RewardValueUSD: rewardUSD,
		GasCostUSD:     gasUSD,
		NetProfitUSD:   net,
		ROI:            roi,
		Profitable:     profitable,
	}
}
