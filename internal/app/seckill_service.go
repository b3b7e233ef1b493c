package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/flashmart/seckill/internal/clock"
	"github.com/flashmart/seckill/internal/domain"
	"github.com/flashmart/seckill/internal/gate"
	"github.com/flashmart/seckill/internal/queue"
)

// Gate is the atomic check-and-reserve step against the shared store.
type Gate interface {
	CheckAndReserve(ctx context.Context, voucherID, userID int64) (gate.Result, error)
}

// IDGenerator issues globally unique order ids.
type IDGenerator interface {
	NextID(ctx context.Context, namespace string) (uint64, error)
}

// VoucherReader serves voucher lookups, normally through the cache layer.
type VoucherReader interface {
	Get(ctx context.Context, voucherID int64) (*domain.SeckillVoucher, error)
}

const orderIDNamespace = "order"

// SeckillService is the synchronous admission path. It never takes an
// application-level lock: the gate's atomicity is the only serialization
// point, which is what keeps the hot path fast.
type SeckillService struct {
	vouchers VoucherReader
	gate     Gate
	ids      IDGenerator
	channel  queue.Channel
	clock    clock.Clock
	log      zerolog.Logger
}

func NewSeckillService(vouchers VoucherReader, g Gate, ids IDGenerator, ch queue.Channel, clk clock.Clock, logger zerolog.Logger) *SeckillService {
	return &SeckillService{
		vouchers: vouchers,
		gate:     g,
		ids:      ids,
		channel:  ch,
		clock:    clk,
		log:      logger,
	}
}

// Purchase admits or rejects one purchase attempt and returns the order id
// immediately; durable persistence happens later in the fulfiller. Sold-out
// and duplicate-order results are user-facing rejections, never retried.
func (s *SeckillService) Purchase(ctx context.Context, voucherID, userID int64) (uint64, error) {
	voucher, err := s.vouchers.Get(ctx, voucherID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.ErrVoucherNotFound
		}
		return 0, fmt.Errorf("load voucher %d: %w", voucherID, err)
	}

	now := s.clock.Now()
	if !voucher.SaleStarted(now) {
		return 0, domain.ErrSaleNotStarted
	}
	if voucher.SaleEnded(now) {
		return 0, domain.ErrSaleEnded
	}

	result, err := s.gate.CheckAndReserve(ctx, voucherID, userID)
	if err != nil {
		return 0, fmt.Errorf("check and reserve: %w", err)
	}
	switch result {
	case gate.SoldOut:
		return 0, domain.ErrSoldOut
	case gate.AlreadyOrdered:
		return 0, domain.ErrAlreadyOrdered
	}

	// The reservation is taken from here on. Any failure below leaves the
	// advisory stock under-counted until reconciled, so it is logged with
	// everything needed to find it.
	orderID, err := s.ids.NextID(ctx, orderIDNamespace)
	if err != nil {
		s.log.Error().Err(err).
			Int64("user_id", userID).
			Int64("voucher_id", voucherID).
			Msg("reservation taken but order id generation failed")
		return 0, fmt.Errorf("next order id: %w", err)
	}

	task := domain.OrderTask{OrderID: orderID, UserID: userID, VoucherID: voucherID}
	if err := s.channel.Submit(ctx, task); err != nil {
		s.log.Error().Err(err).
			Uint64("order_id", orderID).
			Int64("user_id", userID).
			Int64("voucher_id", voucherID).
			Msg("reservation taken but order task was not enqueued")
		return 0, fmt.Errorf("submit order task: %w", err)
	}

	return orderID, nil
}
