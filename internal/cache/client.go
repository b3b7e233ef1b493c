// Package cache is a read-through cache over Redis with two strategies:
// passthrough with negative caching (penetration protection) and logical
// expiration with background rebuild (stampede protection). Rebuilds run on
// a bounded worker pool owned by the Client and serialized per key through
// a distributed lock, so each expiry cycle triggers at most one rebuild no
// matter how many readers observe the stale value.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/flashmart/seckill/internal/clock"
	"github.com/flashmart/seckill/internal/domain"
	"github.com/flashmart/seckill/internal/lock"
)

// Loader fetches the value from the authoritative store. A nil result with
// a nil error means the id does not exist.
type Loader[T any] func(ctx context.Context, id string) (*T, error)

const (
	// negativeTTL bounds how long a cached "does not exist" answer
	// suppresses loader calls for the same id.
	negativeTTL = 2 * time.Minute

	rebuildLockTTL = 10 * time.Second
	rebuildTimeout = 5 * time.Second
)

// envelope wraps a logically-expiring value. The Redis key carries no
// store-level TTL; staleness is decided by ExpireTime alone.
type envelope struct {
	Data       json.RawMessage `json:"data"`
	ExpireTime time.Time       `json:"expireTime"`
}

type Client[T any] struct {
	rdb    *redis.Client
	locker *lock.Locker
	clock  clock.Clock
	log    zerolog.Logger

	rebuilds chan func()
	workers  sync.WaitGroup

	loaderCalls     atomic.Int64
	droppedRebuilds atomic.Int64
}

// New starts the rebuild worker pool; the caller owns the Client's
// lifecycle and must Close it to drain in-flight rebuilds.
func New[T any](rdb *redis.Client, locker *lock.Locker, clk clock.Clock, logger zerolog.Logger, workers, queueDepth int) *Client[T] {
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	c := &Client[T]{
		rdb:      rdb,
		locker:   locker,
		clock:    clk,
		log:      logger,
		rebuilds: make(chan func(), queueDepth),
	}
	c.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go c.rebuildWorker()
	}
	return c
}

// Close stops accepting rebuilds and waits for the workers to drain.
func (c *Client[T]) Close() {
	close(c.rebuilds)
	c.workers.Wait()
}

func (c *Client[T]) rebuildWorker() {
	defer c.workers.Done()
	for job := range c.rebuilds {
		c.runRebuild(job)
	}
}

func (c *Client[T]) runRebuild(job func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("cache rebuild panicked")
		}
	}()
	job()
}

// Set writes a value with a store-level TTL (passthrough strategy).
func (c *Client[T]) Set(ctx context.Context, key string, value *T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set cache key %s: %w", key, err)
	}
	return nil
}

// SetWithLogicalExpire writes a value wrapped in an expiry envelope and no
// store-level TTL; the key lives until explicitly rewritten. Keys served by
// GetWithLogicalExpire must be pre-populated through here.
func (c *Client[T]) SetWithLogicalExpire(ctx context.Context, key string, value *T, freshFor time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	env, err := json.Marshal(envelope{
		Data:       data,
		ExpireTime: c.clock.Now().Add(freshFor),
	})
	if err != nil {
		return fmt.Errorf("marshal cache envelope: %w", err)
	}
	if err := c.rdb.Set(ctx, key, env, 0).Err(); err != nil {
		return fmt.Errorf("set cache key %s: %w", key, err)
	}
	return nil
}

// GetWithPassthrough reads through the cache with negative caching. A miss
// invokes the loader; a loader miss writes an empty sentinel with a short
// TTL so repeated lookups of a nonexistent id stop reaching the
// authoritative store.
func (c *Client[T]) GetWithPassthrough(ctx context.Context, keyPrefix, id string, ttl time.Duration, load Loader[T]) (*T, error) {
	key := keyPrefix + id

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		// miss, fall through to the loader
	case err != nil:
		return nil, fmt.Errorf("get cache key %s: %w", key, err)
	case raw == "":
		// negative sentinel
		return nil, domain.ErrNotFound
	default:
		var value T
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("decode cache key %s: %w", key, err)
		}
		return &value, nil
	}

	c.loaderCalls.Inc()
	value, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	if value == nil {
		if err := c.rdb.Set(ctx, key, "", negativeTTL).Err(); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("failed to cache negative lookup")
		}
		return nil, domain.ErrNotFound
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to populate cache")
	}
	return value, nil
}

// GetWithLogicalExpire serves pre-populated keys, returning stale values
// immediately and rebuilding in the background. It never blocks on the
// authoritative store: a miss is a not-found, not a loader call.
func (c *Client[T]) GetWithLogicalExpire(ctx context.Context, keyPrefix, id string, freshFor time.Duration, load Loader[T]) (*T, error) {
	key := keyPrefix + id

	raw, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache key %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode cache envelope %s: %w", key, err)
	}
	var value T
	if err := json.Unmarshal(env.Data, &value); err != nil {
		return nil, fmt.Errorf("decode cache value %s: %w", key, err)
	}

	if env.ExpireTime.After(c.clock.Now()) {
		return &value, nil
	}

	// Stale. Hand the caller the old value and rebuild behind the per-key
	// lock; a held lock means a rebuild is already in flight.
	c.tryRebuild(ctx, key, id, freshFor, load)
	return &value, nil
}

func (c *Client[T]) tryRebuild(ctx context.Context, key, id string, freshFor time.Duration, load Loader[T]) {
	handle, err := c.locker.Acquire(ctx, key, rebuildLockTTL)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("rebuild lock acquire failed")
		return
	}
	if handle == nil {
		return
	}

	job := func() {
		rebuildCtx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
		defer cancel()
		defer func() {
			if err := handle.Release(rebuildCtx); err != nil {
				c.log.Warn().Err(err).Str("key", key).Msg("rebuild lock release failed")
			}
		}()

		c.loaderCalls.Inc()
		value, err := load(rebuildCtx, id)
		if err != nil {
			c.log.Error().Err(err).Str("key", key).Msg("cache rebuild load failed")
			return
		}
		if value == nil {
			c.log.Warn().Str("key", key).Msg("cache rebuild found no source row")
			return
		}
		if err := c.SetWithLogicalExpire(rebuildCtx, key, value, freshFor); err != nil {
			c.log.Error().Err(err).Str("key", key).Msg("cache rebuild write failed")
		}
	}

	select {
	case c.rebuilds <- job:
	default:
		// Pool saturated: skip this cycle, a later reader retries.
		c.droppedRebuilds.Inc()
		if err := handle.Release(ctx); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("rebuild lock release failed")
		}
	}
}

// LoaderCalls reports how many times any loader was invoked.
func (c *Client[T]) LoaderCalls() int64 { return c.loaderCalls.Load() }

// DroppedRebuilds reports rebuilds skipped because the pool was saturated.
func (c *Client[T]) DroppedRebuilds() int64 { return c.droppedRebuilds.Load() }
