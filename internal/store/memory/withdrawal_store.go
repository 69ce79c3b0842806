package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// WithdrawalStore is an in-memory implementation of domain.WithdrawalStore.
type WithdrawalStore struct {
	mu      sync.RWMutex
	records []domain.WithdrawalRecord
	txRefs  map[string]struct{}
}

// NewWithdrawalStore creates a new in-memory withdrawal store.
func NewWithdrawalStore() *WithdrawalStore {
	return &WithdrawalStore{
		txRefs: make(map[string]struct{}),
	}
}

// Insert appends a withdrawal record, enforcing tx-ref uniqueness.
func (s *WithdrawalStore) Insert(_ context.Context, w domain.WithdrawalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txRefs[w.TxRef]; exists {
		return domain.ErrDuplicateTxRef
	}

	s.records = append(s.records, w)
	s.txRefs[w.TxRef] = struct{}{}
	return nil
}

// ListByOwner returns withdrawals for (owner, vault) ordered by timestamp
// ascending.
func (s *WithdrawalStore) ListByOwner(_ context.Context, owner, vault string) ([]domain.WithdrawalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.WithdrawalRecord
	for _, w := range s.records {
		if w.Owner == owner && w.Vault == vault {
			out = append(out, w)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].WithdrawnAt.Before(out[j].WithdrawnAt)
	})
	return out, nil
}

// Compile-time interface check.
var _ domain.WithdrawalStore = (*WithdrawalStore)(nil)
