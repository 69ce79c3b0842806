package domain

import (
	"context"
	"time"
)

// PriceCache stores the latest observed USD price per asset so a feed outage
// degrades to a recent value instead of aborting a keeper cycle.
type PriceCache interface {
	SetPrice(ctx context.Context, asset string, price float64, ts time.Time) error
	// GetPrice returns ErrNotFound when no price has been cached for asset.
	GetPrice(ctx context.Context, asset string) (float64, time.Time, error)
}

// LockManager serializes critical sections across keeper instances. The
// ledger uses it to make withdrawal tracking single-writer per (owner, vault).
type LockManager interface {
	// Acquire returns an unlock function on success, or ErrLockHeld when the
	// lock is taken by another holder.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
