package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashmart/seckill/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) GetOrderByUserAndVoucher(ctx context.Context, userID, voucherID int64) (*domain.VoucherOrder, error) {
	const query = `
SELECT id, user_id, voucher_id, create_time
FROM voucher_orders
WHERE user_id = $1 AND voucher_id = $2`

	var o domain.VoucherOrder
	var id int64
	err := r.queryRow(ctx, query, userID, voucherID).
		Scan(&id, &o.UserID, &o.VoucherID, &o.CreateTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.ID = uint64(id)
	return &o, nil
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, orderID uint64) (*domain.VoucherOrder, error) {
	const query = `
SELECT id, user_id, voucher_id, create_time
FROM voucher_orders
WHERE id = $1`

	var o domain.VoucherOrder
	var id int64
	err := r.queryRow(ctx, query, int64(orderID)).
		Scan(&id, &o.UserID, &o.VoucherID, &o.CreateTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	o.ID = uint64(id)
	return &o, nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.VoucherOrder) error {
	const stmt = `
INSERT INTO voucher_orders (id, user_id, voucher_id, create_time)
VALUES ($1, $2, $3, $4)`

	_, err := r.exec(ctx, stmt, int64(order.ID), order.UserID, order.VoucherID, order.CreateTime)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyOrdered
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// DecrementStock is the only way authoritative stock goes down: a
// conditional atomic update guarded by stock > 0, never a read-then-write
// pair. It reports whether a row actually changed.
func (r *OrderRepository) DecrementStock(ctx context.Context, voucherID int64) (bool, error) {
	const stmt = `
UPDATE seckill_vouchers
SET stock = stock - 1
WHERE voucher_id = $1 AND stock > 0`

	tag, err := r.exec(ctx, stmt, voucherID)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
