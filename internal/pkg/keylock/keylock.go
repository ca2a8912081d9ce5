// Package keylock provides short-lived exclusive locks keyed by string.
//
// A lock is held until it is released or its TTL elapses, so a crashed holder
// never blocks a key forever.
package keylock

import (
	"context"
	"errors"
	"time"
)

// ErrLocked is returned by Acquire when another holder owns the key.
var ErrLocked = errors.New("keylock: key is locked")

// Release gives the lock back. Releasing an expired or stolen lock is a no-op.
type Release func(ctx context.Context) error

// Locker hands out exclusive per-key locks.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

const defaultTTL = 10 * time.Second

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultTTL
	}
	return ttl
}
