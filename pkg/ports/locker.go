package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates access to a parameter record across processes,
// for instance an HTTP server and a CLI sharing one Redis.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx ends.
	// The returned UnlockFunc MUST be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
