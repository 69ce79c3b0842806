package keeper

import (
	"context"
	"log/slog"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// HealthReader is the slice of the leverage manager wrapper the scanner
// needs.
type HealthReader interface {
	PositionHealth(ctx context.Context, user string) (domain.PositionHealth, error)
}

// HealthScanner reads leveraged position health for a set of owners. It is a
// pure read path shared by the rebalance agent and anything that wants a
// portfolio snapshot.
type HealthScanner struct {
	manager HealthReader
	logger  *slog.Logger
}

// NewHealthScanner creates a scanner over the given leverage manager.
func NewHealthScanner(manager HealthReader, logger *slog.Logger) *HealthScanner {
	return &HealthScanner{
		manager: manager,
		logger:  logger.With(slog.String("component", "health_scanner")),
	}
}

// Scan queries health for every owner and returns the successful reads sorted
// most-urgent-first, plus a failure record per owner that could not be read.
// A single owner's read failure never hides the rest of the portfolio.
func (s *HealthScanner) Scan(ctx context.Context, owners []string) ([]domain.PositionHealth, []domain.ItemResult) {
	var (
		positions []domain.PositionHealth
		failures  []domain.ItemResult
	)

	for _, owner := range owners {
		if ctx.Err() != nil {
			failures = append(failures, domain.ItemResult{
				Item:    owner,
				Outcome: domain.OutcomeFailed,
				Reason:  "scan cancelled",
				Err:     domain.ErrContextDone,
			})
			continue
		}

		ph, err := s.manager.PositionHealth(ctx, owner)
		if err != nil {
			s.logger.ErrorContext(ctx, "health query failed",
				slog.String("owner", owner),
				slog.String("error", err.Error()),
			)
			failures = append(failures, domain.ItemResult{
				Item:    owner,
				Outcome: domain.OutcomeFailed,
				Reason:  "health query",
				Err:     err,
			})
			continue
		}

		s.logger.DebugContext(ctx, "position scanned",
			slog.String("owner", owner),
			slog.Float64("health_factor", ph.HealthFactor),
			slog.String("tier", string(ph.Tier())),
		)
		positions = append(positions, ph)
	}

	domain.SortByUrgency(positions)
	return positions, failures
}
