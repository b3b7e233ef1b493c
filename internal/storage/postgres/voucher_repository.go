package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashmart/seckill/internal/domain"
)

type VoucherRepository struct {
	pool *pgxpool.Pool
}

func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// CreateVoucher inserts the voucher and assigns its generated id.
func (r *VoucherRepository) CreateVoucher(ctx context.Context, voucher *domain.SeckillVoucher) error {
	const stmt = `
INSERT INTO seckill_vouchers (title, stock, begin_time, end_time, create_time)
VALUES ($1, $2, $3, $4, $5)
RETURNING voucher_id`

	err := r.pool.QueryRow(ctx, stmt,
		voucher.Title, voucher.Stock, voucher.BeginTime, voucher.EndTime, voucher.CreateTime,
	).Scan(&voucher.VoucherID)
	if err != nil {
		return fmt.Errorf("create voucher: %w", err)
	}
	return nil
}

// GetVoucher returns nil when the voucher does not exist; the cache layer
// turns that into a negative entry.
func (r *VoucherRepository) GetVoucher(ctx context.Context, voucherID int64) (*domain.SeckillVoucher, error) {
	const query = `
SELECT voucher_id, title, stock, begin_time, end_time, create_time
FROM seckill_vouchers
WHERE voucher_id = $1`

	var v domain.SeckillVoucher
	err := r.pool.QueryRow(ctx, query, voucherID).
		Scan(&v.VoucherID, &v.Title, &v.Stock, &v.BeginTime, &v.EndTime, &v.CreateTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	return &v, nil
}
