package domain

import "sort"

// Health factor tier boundaries. 1.0 is break-even; below it the position is
// eligible for liquidation on chain.
const (
	EmergencyHealthFactor   = 1.2
	DangerHealthFactor      = 1.3
	InefficientHealthFactor = 2.0
)

// HealthTier is the urgency bucket derived from a position's health factor.
type HealthTier string

const (
	TierEmergency   HealthTier = "emergency"
	TierDanger      HealthTier = "danger"
	TierHealthy     HealthTier = "healthy"
	TierInefficient HealthTier = "inefficient"
)

// MaxHealthFactor is the sentinel reported for positions with zero borrow.
// A position that owes nothing cannot be liquidated.
const MaxHealthFactor = 1e9

// PositionHealth is a fresh snapshot of one leveraged position. It is
// recomputed on every scan and never cached across cycles: staleness directly
// risks a mis-triggered or missed rebalance.
type PositionHealth struct {
	Owner           string
	CollateralValue float64
	BorrowValue     float64
	HealthFactor    float64
	Healthy         bool
}

// Tier classifies the position's health factor. The four ranges are disjoint
// and together cover (0, inf).
func (p PositionHealth) Tier() HealthTier {
	return ClassifyHealthFactor(p.HealthFactor)
}

// ClassifyHealthFactor maps a health factor onto its urgency tier.
func ClassifyHealthFactor(hf float64) HealthTier {
	switch {
	case hf < EmergencyHealthFactor:
		return TierEmergency
	case hf < DangerHealthFactor:
		return TierDanger
	case hf <= InefficientHealthFactor:
		return TierHealthy
	default:
		return TierInefficient
	}
}

// NeedsRebalance reports whether a tier triggers corrective action. Emergency
// and danger positions are at liquidation risk; inefficient ones have capital
// under-deployed.
func (t HealthTier) NeedsRebalance() bool {
	return t != TierHealthy
}

// SortByUrgency orders positions ascending by health factor so the positions
// closest to liquidation are serviced first when a cycle is time- or
// gas-budget-limited. The sort is stable so equal health factors keep their
// scan order.
func SortByUrgency(positions []PositionHealth) {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].HealthFactor < positions[j].HealthFactor
	})
}
