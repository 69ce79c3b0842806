package domain

import (
	"math/big"
	"time"
)

// GasQuote is a point-in-time sample of network gas prices in wei per gas
// unit. The three speeds are derived as percentages of a single sampled base
// price; quotes are never persisted, only re-fetched or defaulted.
type GasQuote struct {
	Slow       *big.Int
	Standard   *big.Int
	Fast       *big.Int
	ObservedAt time.Time
}

var gweiFactor = big.NewInt(1_000_000_000)

// GasQuoteFromBase derives a full quote from one sampled base price:
// slow = 80%, standard = 100%, fast = 125%.
func GasQuoteFromBase(base *big.Int, at time.Time) GasQuote {
	slow := new(big.Int).Div(new(big.Int).Mul(base, big.NewInt(80)), big.NewInt(100))
	fast := new(big.Int).Div(new(big.Int).Mul(base, big.NewInt(125)), big.NewInt(100))
	return GasQuote{
		Slow:       slow,
		Standard:   new(big.Int).Set(base),
		Fast:       fast,
		ObservedAt: at,
	}
}

// DefaultGasQuote returns the fallback quote used when the node cannot be
// sampled, built from a gwei value out of configuration.
func DefaultGasQuote(gwei int64, at time.Time) GasQuote {
	base := new(big.Int).Mul(big.NewInt(gwei), gweiFactor)
	return GasQuoteFromBase(base, at)
}

// StandardGwei reports the standard price in gwei as a float, for gate
// comparisons and logging.
func (q GasQuote) StandardGwei() float64 {
	if q.Standard == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(q.Standard), new(big.Float).SetInt(gweiFactor)).Float64()
	return f
}

// GweiToWei converts a whole-gwei amount to wei.
func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), gweiFactor)
}
