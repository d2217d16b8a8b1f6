package locker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker implements DistributedLocker with Redsync (Redlock).
// Keys are namespaced with a prefix so several services can share one Redis.
type RedisLocker struct {
	rs     *redsync.Redsync
	prefix string
	logger *zap.Logger

	mu   sync.Mutex
	held map[string]*redsync.Mutex
}

// NewRedisLocker creates a new RedisLocker.
func NewRedisLocker(client *redis.Client, prefix string, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		prefix: prefix,
		logger: logger,
		held:   make(map[string]*redsync.Mutex),
	}
}

// Acquire makes a single, non-blocking attempt to take key.
func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	mutex := r.rs.NewMutex(
		r.prefix+key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if isTaken(err) {
			r.logger.Debug("lock held elsewhere", zap.String("key", key))
			return false, nil
		}
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	r.mu.Lock()
	r.held[key] = mutex
	r.mu.Unlock()

	r.logger.Debug("lock acquired",
		zap.String("key", key),
		zap.Duration("ttl", ttl),
	)
	return true, nil
}

// Release unlocks key if this locker acquired it. Redsync checks the token,
// so an expired lock that someone else has since taken is left alone.
func (r *RedisLocker) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	mutex, ok := r.held[key]
	delete(r.held, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	released, err := mutex.UnlockContext(ctx)
	if err != nil {
		if errors.Is(err, redsync.ErrLockAlreadyExpired) {
			r.logger.Debug("lock expired before release", zap.String("key", key))
			return nil
		}
		return fmt.Errorf("release lock %s: %w", key, err)
	}

	r.logger.Debug("lock released",
		zap.String("key", key),
		zap.Bool("owned", released),
	)
	return nil
}

// isTaken reports lock contention. Redsync reports it either as ErrFailed
// or as a wrapped "lock already taken" error listing the locked nodes.
func isTaken(err error) bool {
	var taken *redsync.ErrTaken
	return errors.Is(err, redsync.ErrFailed) ||
		errors.As(err, &taken) ||
		strings.Contains(err.Error(), "lock already taken")
}
