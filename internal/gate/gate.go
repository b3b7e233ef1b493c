// Package gate implements the atomic check-and-reserve step of the flash
// sale. It is the only serialization point on the hot path: the Lua script
// observes stock and purchase history and reserves one unit without any
// interleaving, so concurrent callers can never both see the last unit.
package gate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// Result of a check-and-reserve attempt.
type Result int

const (
	Reserved       Result = 0
	SoldOut        Result = 1
	AlreadyOrdered Result = 2
)

const (
	stockKeyPrefix = "seckill:stock:"
	orderKeyPrefix = "seckill:order:"
)

// reserveScript: KEYS[1] = stock counter, KEYS[2] = purchased-by set,
// ARGV[1] = user id. A missing stock key counts as sold out rather than
// erroring so an unpublished voucher cannot be reserved.
const reserveScript = `local stock = tonumber(redis.call('get', KEYS[1]))
if stock == nil or stock <= 0 then
	return 1
end
if redis.call('sismember', KEYS[2], ARGV[1]) == 1 then
	return 2
end
redis.call('incrby', KEYS[1], -1)
redis.call('sadd', KEYS[2], ARGV[1])
return 0`

type Gate struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Gate {
	return &Gate{rdb: rdb}
}

// CheckAndReserve verifies remaining stock and the per-voucher purchase
// history for userID and, when both pass, reserves one unit in the same
// atomic step. The shared-store state is mutated before the caller does
// anything else; a caller failing after a Reserved result must not lose
// that silently.
func (g *Gate) CheckAndReserve(ctx context.Context, voucherID, userID int64) (Result, error) {
	voucher := strconv.FormatInt(voucherID, 10)
	keys := []string{stockKeyPrefix + voucher, orderKeyPrefix + voucher}

	n, err := g.rdb.Eval(ctx, reserveScript, keys, strconv.FormatInt(userID, 10)).Int64()
	if err != nil {
		return 0, fmt.Errorf("eval reserve script: %w", err)
	}
	switch Result(n) {
	case Reserved, SoldOut, AlreadyOrdered:
		return Result(n), nil
	default:
		return 0, fmt.Errorf("reserve script returned unknown result %d", n)
	}
}

// PrimeStock seeds the advisory stock counter for a voucher. Called when a
// voucher is published, before any reservation can arrive.
func (g *Gate) PrimeStock(ctx context.Context, voucherID int64, stock int) error {
	key := stockKeyPrefix + strconv.FormatInt(voucherID, 10)
	if err := g.rdb.Set(ctx, key, stock, 0).Err(); err != nil {
		return fmt.Errorf("prime stock for voucher %d: %w", voucherID, err)
	}
	return nil
}

// Stock reads the advisory stock counter. A missing key reports zero.
func (g *Gate) Stock(ctx context.Context, voucherID int64) (int, error) {
	key := stockKeyPrefix + strconv.FormatInt(voucherID, 10)
	val, err := g.rdb.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read stock for voucher %d: %w", voucherID, err)
	}
	return val, nil
}
