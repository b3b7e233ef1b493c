package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flashmart/seckill/internal/clock"
	"github.com/flashmart/seckill/internal/domain"
	"github.com/flashmart/seckill/internal/queue"
)

// FulfillmentRepository is the authoritative store as seen by the
// fulfiller. All three mutating steps run inside one WithTx transaction.
type FulfillmentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetOrderByUserAndVoucher(ctx context.Context, userID, voucherID int64) (*domain.VoucherOrder, error)
	DecrementStock(ctx context.Context, voucherID int64) (bool, error)
	CreateOrder(ctx context.Context, order domain.VoucherOrder) error
}

// LockHandle is transient ownership of a named lock.
type LockHandle interface {
	Release(ctx context.Context) error
}

// Locker hands out non-blocking TTL'd locks; a nil handle with a nil error
// means another holder owns the lock.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (LockHandle, error)
}

const (
	userLockTTL     = 10 * time.Second
	consumeBackoff  = time.Second
	lockReleaseWait = 2 * time.Second
)

// Fulfiller is the single logical consumer of the order channel. It
// re-validates every delivery against the authoritative store, which is
// what makes the channel's at-least-once delivery safe.
type Fulfiller struct {
	channel queue.Channel
	repo    FulfillmentRepository
	locker  Locker
	clock   clock.Clock
	log     zerolog.Logger
}

func NewFulfiller(ch queue.Channel, repo FulfillmentRepository, locker Locker, clk clock.Clock, logger zerolog.Logger) *Fulfiller {
	return &Fulfiller{
		channel: ch,
		repo:    repo,
		locker:  locker,
		clock:   clk,
		log:     logger,
	}
}

// Run drains the channel until ctx is cancelled or the channel closes.
func (f *Fulfiller) Run(ctx context.Context) error {
	for {
		delivery, err := f.channel.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return nil
			}
			f.log.Error().Err(err).Msg("consume order task failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(consumeBackoff):
			}
			continue
		}
		f.handle(ctx, delivery)
	}
}

func (f *Fulfiller) handle(ctx context.Context, delivery queue.Delivery) {
	task := delivery.Task
	logger := f.log.With().
		Uint64("order_id", task.OrderID).
		Int64("user_id", task.UserID).
		Int64("voucher_id", task.VoucherID).
		Logger()

	// One in-flight fulfillment attempt per user. The lock covers both
	// legitimate redeliveries and anything the gate's advisory set missed.
	handle, err := f.locker.Acquire(ctx, fmt.Sprintf("order:user:%d", task.UserID), userLockTTL)
	if err != nil {
		// Store unreachable; leave the task unacknowledged for redelivery.
		logger.Error().Err(err).Msg("user lock acquire failed")
		return
	}
	if handle == nil {
		// A concurrent delivery for this user is already in flight and
		// will resolve the invariant; drop this one.
		logger.Warn().Msg("user lock contended, dropping delivery")
		f.ack(ctx, delivery, logger)
		return
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseWait)
		defer cancel()
		if err := handle.Release(releaseCtx); err != nil {
			logger.Warn().Err(err).Msg("user lock release failed, TTL will expire it")
		}
	}()

	err = f.repo.WithTx(ctx, func(txCtx context.Context) error {
		return f.fulfill(txCtx, task, logger)
	})
	if err != nil {
		// Unacknowledged: a durable channel redelivers, and the existence
		// check above makes the retry idempotent.
		logger.Error().Err(err).Msg("order fulfillment failed")
		return
	}

	f.ack(ctx, delivery, logger)
}

func (f *Fulfiller) fulfill(ctx context.Context, task domain.OrderTask, logger zerolog.Logger) error {
	existing, err := f.repo.GetOrderByUserAndVoucher(ctx, task.UserID, task.VoucherID)
	if err != nil {
		return fmt.Errorf("check existing order: %w", err)
	}
	if existing != nil {
		logger.Info().Uint64("existing_order_id", existing.ID).Msg("order already exists, skipping redelivery")
		return nil
	}

	decremented, err := f.repo.DecrementStock(ctx, task.VoucherID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if !decremented {
		// The advisory reservation promised stock the authoritative row no
		// longer has. Not fatal, but worth investigating.
		logger.Warn().Msg("authoritative stock exhausted despite advisory reservation")
		return nil
	}

	order := domain.VoucherOrder{
		ID:         task.OrderID,
		UserID:     task.UserID,
		VoucherID:  task.VoucherID,
		CreateTime: f.clock.Now(),
	}
	if err := f.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, domain.ErrAlreadyOrdered) {
			logger.Info().Msg("order row appeared concurrently, skipping")
			return nil
		}
		return fmt.Errorf("create order: %w", err)
	}

	logger.Info().Msg("order fulfilled")
	return nil
}

func (f *Fulfiller) ack(ctx context.Context, delivery queue.Delivery, logger zerolog.Logger) {
	if err := delivery.Ack(ctx); err != nil {
		logger.Warn().Err(err).Msg("ack failed, task may be redelivered")
	}
}
