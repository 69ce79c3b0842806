package memory

import (
	"context"
	"sync"
	"time"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// PriceCache is an in-memory implementation of domain.PriceCache.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]cachedPrice
}

type cachedPrice struct {
	price float64
	ts    time.Time
}

// NewPriceCache creates a new in-memory price cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[string]cachedPrice)}
}

// SetPrice stores the latest price and timestamp for an asset.
func (c *PriceCache) SetPrice(_ context.Context, asset string, price float64, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prices[asset] = cachedPrice{price: price, ts: ts}
	return nil
}

// GetPrice returns the cached price, or ErrNotFound.
func (c *PriceCache) GetPrice(_ context.Context, asset string) (float64, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.prices[asset]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return entry.price, entry.ts, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
