package memory

import (
	"context"
	"sync"
	"time"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// LockManager is an in-memory, single-process implementation of
// domain.LockManager. Deployments with multiple keeper instances use the
// Redis lock manager instead.
type LockManager struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLockManager creates a new in-memory lock manager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]struct{})}
}

// Acquire takes the lock for key, returning domain.ErrLockHeld when it is
// already taken. The TTL is ignored: in-process locks are always released
// explicitly.
func (m *LockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.held[key]; taken {
		return nil, domain.ErrLockHeld
	}
	m.held[key] = struct{}{}

	released := false
	unlock := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(m.held, key)
	}
	return unlock, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
