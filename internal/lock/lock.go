// Package lock provides non-blocking, TTL'd mutual exclusion over Redis.
// Acquire never waits on contention; a crashed holder is bounded by the TTL.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "lock:"

// releaseScript deletes the key only when it still carries this holder's
// token. A plain DEL could drop a lock re-acquired by someone else after
// this holder's TTL expired mid-operation.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// Acquire attempts to take the named lock for at most ttl. It returns
// (nil, nil) when another holder owns the lock; it never retries or queues.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Handle, error) {
	token := newToken()
	ok, err := l.rdb.SetNX(ctx, keyPrefix+name, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, nil
	}
	return &Handle{rdb: l.rdb, key: keyPrefix + name, token: token}, nil
}

// Handle is transient exclusive ownership of a named resource. It is not
// valid past its TTL.
type Handle struct {
	rdb   *redis.Client
	key   string
	token string
}

// Release drops the lock via compare-and-delete on the holder token.
// Releasing a lock that already expired (or was taken over) is a no-op.
func (h *Handle) Release(ctx context.Context) error {
	if err := h.rdb.Eval(ctx, releaseScript, []string{h.key}, h.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", h.key, err)
	}
	return nil
}
