// Package memory provides in-memory implementations of the ledger store
// interfaces, used by unit tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// LotStore is an in-memory implementation of domain.LotStore.
type LotStore struct {
	mu       sync.RWMutex
	byID     map[string]*domain.DepositLot
	txRefs   map[string]struct{}
	archived map[string]struct{}
}

// NewLotStore creates a new in-memory lot store.
func NewLotStore() *LotStore {
	return &LotStore{
		byID:     make(map[string]*domain.DepositLot),
		txRefs:   make(map[string]struct{}),
		archived: make(map[string]struct{}),
	}
}

// Insert stores a new lot, enforcing tx-ref uniqueness.
func (s *LotStore) Insert(_ context.Context, lot domain.DepositLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txRefs[lot.TxRef]; exists {
		return domain.ErrDuplicateTxRef
	}

	cp := lot
	s.byID[lot.ID] = &cp
	s.txRefs[lot.TxRef] = struct{}{}
	return nil
}

// ListOpen returns the non-fully-consumed lots for (owner, vault) ordered by
// deposit timestamp ascending.
func (s *LotStore) ListOpen(_ context.Context, owner, vault string) ([]domain.DepositLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var open []domain.DepositLot
	for _, lot := range s.byID {
		if lot.Owner == owner && lot.Vault == vault && !lot.FullyConsumed {
			open = append(open, *lot)
		}
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].DepositedAt.Before(open[j].DepositedAt)
	})
	return open, nil
}

// Consume decrements a lot's remaining shares, clamping at zero.
func (s *LotStore) Consume(_ context.Context, lotID string, shares float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lot, ok := s.byID[lotID]
	if !ok {
		return domain.ErrNotFound
	}

	lot.RemainingShares -= shares
	if lot.RemainingShares <= 1e-9 {
		lot.RemainingShares = 0
		lot.FullyConsumed = true
	}
	return nil
}

// ListConsumedBefore returns fully consumed, unarchived lots deposited
// before the cutoff.
func (s *LotStore) ListConsumedBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.DepositLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DepositLot
	for _, lot := range s.byID {
		if !lot.FullyConsumed || !lot.DepositedAt.Before(cutoff) {
			continue
		}
		if _, done := s.archived[lot.ID]; done {
			continue
		}
		out = append(out, *lot)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].DepositedAt.Before(out[j].DepositedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkArchived flags lots as exported to cold storage.
func (s *LotStore) MarkArchived(_ context.Context, lotIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range lotIDs {
		s.archived[id] = struct{}{}
	}
	return nil
}

// Compile-time interface check.
var _ domain.LotStore = (*LotStore)(nil)
