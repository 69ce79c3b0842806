package domain

// DefaultROIThreshold requires the reward to be worth at least 1.5x the gas
// spent claiming it.
const DefaultROIThreshold = 1.5

// ProfitabilityResult is the outcome of running one candidate action through
// the profitability gate. It is a pure value object: recomputed per decision,
// never mutated.
type ProfitabilityResult struct {
	RewardValueUSD float64
	GasCostUSD     float64
	NetProfitUSD   float64
	// ROI is RewardValueUSD / GasCostUSD, defined as 0 when the gas cost is
	// zero rather than infinite.
	ROI        float64
	Profitable bool
}
