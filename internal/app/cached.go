package app

import (
	"context"
	"strconv"
	"time"

	"github.com/flashmart/seckill/internal/cache"
	"github.com/flashmart/seckill/internal/domain"
)

const (
	voucherKeyPrefix = "cache:seckill:voucher:"
	orderKeyPrefix   = "cache:seckill:order:"

	// voucherFreshFor is the logical freshness window; the key itself has
	// no store-level TTL and survives until rewritten.
	voucherFreshFor = 30 * time.Minute
	orderCacheTTL   = 10 * time.Minute
)

// CachedVouchers serves voucher reads through the logical-expiration
// strategy: the entry is pre-populated at publish time and the hot sale
// window never waits on Postgres.
type CachedVouchers struct {
	cache *cache.Client[domain.SeckillVoucher]
	repo  VoucherRepository
}

func NewCachedVouchers(c *cache.Client[domain.SeckillVoucher], repo VoucherRepository) *CachedVouchers {
	return &CachedVouchers{cache: c, repo: repo}
}

func (c *CachedVouchers) Get(ctx context.Context, voucherID int64) (*domain.SeckillVoucher, error) {
	id := strconv.FormatInt(voucherID, 10)
	return c.cache.GetWithLogicalExpire(ctx, voucherKeyPrefix, id, voucherFreshFor, func(ctx context.Context, id string) (*domain.SeckillVoucher, error) {
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, err
		}
		return c.repo.GetVoucher(ctx, parsed)
	})
}

func (c *CachedVouchers) Put(ctx context.Context, voucher *domain.SeckillVoucher) error {
	id := strconv.FormatInt(voucher.VoucherID, 10)
	return c.cache.SetWithLogicalExpire(ctx, voucherKeyPrefix+id, voucher, voucherFreshFor)
}

// OrderReader loads an order row by id for the query path.
type OrderReader interface {
	GetOrderByID(ctx context.Context, orderID uint64) (*domain.VoucherOrder, error)
}

// CachedOrders serves order lookups through the passthrough strategy:
// lookups for ids that were never fulfilled (or never existed) are absorbed
// by the negative sentinel instead of hammering Postgres.
type CachedOrders struct {
	cache *cache.Client[domain.VoucherOrder]
	repo  OrderReader
}

func NewCachedOrders(c *cache.Client[domain.VoucherOrder], repo OrderReader) *CachedOrders {
	return &CachedOrders{cache: c, repo: repo}
}

func (c *CachedOrders) Get(ctx context.Context, orderID uint64) (*domain.VoucherOrder, error) {
	id := strconv.FormatUint(orderID, 10)
	return c.cache.GetWithPassthrough(ctx, orderKeyPrefix, id, orderCacheTTL, func(ctx context.Context, id string) (*domain.VoucherOrder, error) {
		parsed, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return nil, err
		}
		return c.repo.GetOrderByID(ctx, parsed)
	})
}
