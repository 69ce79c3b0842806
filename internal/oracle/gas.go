package oracle

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// GasPricer samples the node's suggested gas price.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// GasOracle derives slow/standard/fast gas quotes from a single sampled base
// price. Quotes are never persisted; a sampling failure degrades to a quote
// built from the configured fallback gwei value.
type GasOracle struct {
	chain        GasPricer
	fallbackGwei int64
	logger       *slog.Logger
}

// NewGasOracle creates a GasOracle with the given fallback price in gwei.
func NewGasOracle(chain GasPricer, fallbackGwei int64, logger *slog.Logger) *GasOracle {
	return &GasOracle{
		chain:        chain,
		fallbackGwei: fallbackGwei,
		logger:       logger.With(slog.String("component", "gas_oracle")),
	}
}

// Quote returns the current gas quote. It never fails: on a sampling error
// the fallback quote is returned and the degradation logged.
func (g *GasOracle) Quote(ctx context.Context) domain.GasQuote {
	now := time.Now().UTC()

	base, err := g.chain.SuggestGasPrice(ctx)
	if err != nil || base == nil || base.Sign() <= 0 {
		if err != nil {
			g.logger.WarnContext(ctx, "gas price sample failed, using fallback",
				slog.Int64("fallback_gwei", g.fallbackGwei),
				slog.String("error", err.Error()),
			)
		}
		return domain.DefaultGasQuote(g.fallbackGwei, now)
	}

	return domain.GasQuoteFromBase(base, now)
}
