package app

import (
	"context"
	"time"

	"github.com/flashmart/seckill/internal/lock"
)

type redisLocker struct {
	inner *lock.Locker
}

// NewRedisLocker adapts the Redis locker to the Locker interface the
// fulfiller consumes.
func NewRedisLocker(inner *lock.Locker) Locker {
	return redisLocker{inner: inner}
}

func (r redisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (LockHandle, error) {
	handle, err := r.inner.Acquire(ctx, name, ttl)
	if handle == nil {
		// Avoid wrapping a nil *lock.Handle in a non-nil interface.
		return nil, err
	}
	return handle, err
}
