package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flashmart/seckill/internal/clock"
	"github.com/flashmart/seckill/internal/domain"
)

// VoucherRepository persists vouchers in the authoritative store.
type VoucherRepository interface {
	CreateVoucher(ctx context.Context, voucher *domain.SeckillVoucher) error
	GetVoucher(ctx context.Context, voucherID int64) (*domain.SeckillVoucher, error)
}

// StockPrimer seeds the advisory stock counter in the shared store.
type StockPrimer interface {
	PrimeStock(ctx context.Context, voucherID int64, stock int) error
}

// VoucherWriter pre-populates the voucher cache entry.
type VoucherWriter interface {
	Put(ctx context.Context, voucher *domain.SeckillVoucher) error
}

// VoucherService publishes vouchers: the authoritative row, the advisory
// stock counter, and the pre-populated cache entry that the
// logical-expiration read path requires.
type VoucherService struct {
	repo  VoucherRepository
	gate  StockPrimer
	cache VoucherWriter
	clock clock.Clock
	log   zerolog.Logger
}

func NewVoucherService(repo VoucherRepository, g StockPrimer, cache VoucherWriter, clk clock.Clock, logger zerolog.Logger) *VoucherService {
	return &VoucherService{
		repo:  repo,
		gate:  g,
		cache: cache,
		clock: clk,
		log:   logger,
	}
}

type PublishVoucherInput struct {
	Title     string
	Stock     int
	BeginTime int64 // unix seconds
	EndTime   int64
}

func (s *VoucherService) PublishVoucher(ctx context.Context, in PublishVoucherInput) (domain.SeckillVoucher, error) {
	if in.Stock <= 0 {
		return domain.SeckillVoucher{}, domain.ErrInvalidStock
	}
	if in.EndTime <= in.BeginTime {
		return domain.SeckillVoucher{}, domain.ErrInvalidSaleTime
	}

	voucher := domain.SeckillVoucher{
		Title:      in.Title,
		Stock:      in.Stock,
		BeginTime:  unixUTC(in.BeginTime),
		EndTime:    unixUTC(in.EndTime),
		CreateTime: s.clock.Now(),
	}
	if err := s.repo.CreateVoucher(ctx, &voucher); err != nil {
		return domain.SeckillVoucher{}, fmt.Errorf("create voucher: %w", err)
	}

	if err := s.gate.PrimeStock(ctx, voucher.VoucherID, voucher.Stock); err != nil {
		return domain.SeckillVoucher{}, fmt.Errorf("prime advisory stock: %w", err)
	}
	if err := s.cache.Put(ctx, &voucher); err != nil {
		// The row and counter exist; a missing cache entry only makes the
		// voucher invisible to the logical-expire read path.
		s.log.Warn().Err(err).Int64("voucher_id", voucher.VoucherID).Msg("failed to pre-populate voucher cache")
	}

	s.log.Info().
		Int64("voucher_id", voucher.VoucherID).
		Int("stock", voucher.Stock).
		Msg("voucher published")
	return voucher, nil
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
