package locker

import (
	"context"
	"sync"
	"time"
)

// LocalLocker is an in-process DistributedLocker for single-instance
// deployments without Redis. Locks expire after their ttl.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	now   func() time.Time
}

// NewLocalLocker creates a new LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		locks: make(map[string]time.Time),
		now:   time.Now,
	}
}

// Acquire takes the lock unless it is held and not yet expired.
func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, held := l.locks[key]; held && now.Before(expires) {
		return false, nil
	}
	l.locks[key] = now.Add(ttl)
	return true, nil
}

// Release drops the lock. Releasing an unknown key is a no-op.
func (l *LocalLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.locks, key)
	l.mu.Unlock()
	return nil
}
