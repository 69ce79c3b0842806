package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateTxRef   = errors.New("duplicate tx ref")
	ErrLockHeld         = errors.New("lock already held")
	ErrGasTooHigh       = errors.New("gas price above configured ceiling")
	ErrInsufficientLots = errors.New("withdrawal exceeds open deposit lots")
	ErrStalePrice       = errors.New("price feed stale")
	ErrTxReverted       = errors.New("transaction reverted")
	ErrPaused           = errors.New("contract is paused")
	ErrContextDone      = errors.New("context cancelled")
)
