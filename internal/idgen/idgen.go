// Package idgen produces globally unique, roughly time-ordered 64-bit ids
// without a central sequencer: a second-resolution timestamp in the high
// bits and a per-day Redis counter in the low bits.
package idgen

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/flashmart/seckill/internal/clock"
)

// epoch is 2022-01-01T00:00:00Z. The timestamp field is 31 bits of seconds
// since this instant, which overflows around the year 2090; fine for this
// system's lifetime but not forever.
const epoch int64 = 1640995200

// counterBits is the width of the per-day sequence field.
const counterBits = 32

type Generator struct {
	rdb   *redis.Client
	clock clock.Clock
}

func New(rdb *redis.Client, clk clock.Clock) *Generator {
	return &Generator{rdb: rdb, clock: clk}
}

// NextID returns the next id for the namespace. Ids are unique across
// concurrent callers and non-decreasing at one-second resolution; ties
// within a second are ordered by the strictly increasing counter. The
// counter key embeds the date, so it resets implicitly each day.
func (g *Generator) NextID(ctx context.Context, namespace string) (uint64, error) {
	now := g.clock.Now()
	timestamp := uint64(now.Unix() - epoch)

	key := fmt.Sprintf("icr:%s:%s", namespace, now.Format("2006:01:02"))
	count, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment id counter %s: %w", key, err)
	}

	return compose(timestamp, uint64(count)), nil
}

func compose(timestamp, count uint64) uint64 {
	return timestamp<<counterBits | count
}
