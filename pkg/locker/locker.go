// Package locker provides locks that keep migrations and search index
// rebuilds from running twice at the same time.
package locker

import (
	"context"
	"time"
)

// DistributedLocker hands out named locks with an expiry. RedisLocker
// coordinates several instances; LocalLocker covers a single process.
// Implementations must be safe for concurrent use.
//
// Most callers go through WithLock:
//
//	ran, err := locker.WithLock(ctx, l, "migrate:lock", 5*time.Minute, func(ctx context.Context) error {
//	    return migrations.Run(db)
//	})
type DistributedLocker interface {
	// Acquire takes key for ttl. It reports false, without error, when the
	// key is held elsewhere. The ttl bounds how long a crashed holder can
	// block others, so it should cover the guarded operation's timeout.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives key back. Releasing a key this holder does not own is a no-op.
	Release(ctx context.Context, key string) error
}

// WithLock runs fn while holding key. It reports false without running fn
// when another holder has the lock. The lock is released when fn returns.
func WithLock(ctx context.Context, l DistributedLocker, key string, ttl time.Duration, fn func(context.Context) error) (bool, error) {
	acquired, err := l.Acquire(ctx, key, ttl)
	if err != nil || !acquired {
		return false, err
	}
	defer func() { _ = l.Release(context.WithoutCancel(ctx), key) }()

	return true, fn(ctx)
}
