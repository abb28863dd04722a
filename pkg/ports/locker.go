package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a previously acquired distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes session access across processes. It is
// optional: a single-process deployment relies on the session manager's
// in-process mutexes alone.
type DistributedLocker interface {
	// Lock acquires a lock for the key, blocking until acquired or the
	// context is cancelled. The TTL bounds how long a crashed holder can
	// block others.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
