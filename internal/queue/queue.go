// Package queue transports admitted purchase intents from the synchronous
// request path to the asynchronous fulfiller. Backends are interchangeable:
// an in-process bounded queue (fast, lost on crash), a Redis Stream consumer
// group, or a Kafka topic (both durable, at-least-once). The fulfiller's
// idempotent re-validation is what makes at-least-once delivery safe.
package queue

import (
	"context"
	"errors"

	"github.com/flashmart/seckill/internal/domain"
)

// ErrClosed is returned by Consume once the channel has shut down.
var ErrClosed = errors.New("order channel closed")

// Delivery is one task handed to the consumer. Ack must be called after the
// task has been handled (including handled-as-no-op); durable backends keep
// unacknowledged tasks redeliverable.
type Delivery struct {
	Task domain.OrderTask
	Ack  func(ctx context.Context) error
}

// Channel carries order tasks between admission and fulfillment.
//
// Submit is non-blocking for capacity-bounded backends and returns
// domain.ErrChannelFull when the task cannot be accepted; that is a
// transient infrastructure failure, not a user-facing rejection.
// Consume blocks until a task is available or ctx is done.
type Channel interface {
	Submit(ctx context.Context, task domain.OrderTask) error
	Consume(ctx context.Context) (Delivery, error)
	Close() error
}

func nopAck(context.Context) error { return nil }
