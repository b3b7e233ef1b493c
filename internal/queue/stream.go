package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/flashmart/seckill/internal/domain"
)

const (
	defaultBlock   = 2 * time.Second
	defaultMinIdle = 30 * time.Second
)

// StreamChannel is a durable order channel on a Redis Stream consumer
// group. Submit appends to the stream; Consume reads new entries for this
// consumer and, between reads, reclaims entries left pending by crashed
// consumers, so every admitted task is delivered at least once.
type StreamChannel struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string
	block    time.Duration
	minIdle  time.Duration
	log      zerolog.Logger
}

// NewStreamChannel creates the consumer group if it does not exist yet.
func NewStreamChannel(ctx context.Context, rdb *redis.Client, stream, group, consumer string, logger zerolog.Logger) (*StreamChannel, error) {
	err := rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group %s on %s: %w", group, stream, err)
	}
	return &StreamChannel{
		rdb:      rdb,
		stream:   stream,
		group:    group,
		consumer: consumer,
		block:    defaultBlock,
		minIdle:  defaultMinIdle,
		log:      logger,
	}, nil
}

func (s *StreamChannel) Submit(ctx context.Context, task domain.OrderTask) error {
	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":        strconv.FormatUint(task.OrderID, 10),
			"userId":    strconv.FormatInt(task.UserID, 10),
			"voucherId": strconv.FormatInt(task.VoucherID, 10),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("append to stream %s: %w", s.stream, err)
	}
	return nil
}

func (s *StreamChannel) Consume(ctx context.Context) (Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Delivery{}, err
		}

		if d, ok := s.reclaim(ctx); ok {
			return d, nil
		}

		res, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{s.stream, ">"},
			Count:    1,
			Block:    s.block,
		}).Result()
		if err == redis.Nil {
			continue // bounded block elapsed with nothing new
		}
		if err != nil {
			if ctx.Err() != nil {
				return Delivery{}, ctx.Err()
			}
			return Delivery{}, fmt.Errorf("read from stream %s: %w", s.stream, err)
		}
		if len(res) == 0 || len(res[0].Messages) == 0 {
			continue
		}

		msg := res[0].Messages[0]
		task, err := taskFromValues(msg.Values)
		if err != nil {
			// Malformed entries cannot succeed on retry; ack and move on.
			s.log.Error().Err(err).Str("entry", msg.ID).Msg("skipping malformed stream entry")
			_ = s.rdb.XAck(ctx, s.stream, s.group, msg.ID).Err()
			continue
		}
		return s.delivery(task, msg.ID), nil
	}
}

// reclaim transfers the oldest entry another consumer left pending past
// minIdle into this consumer and hands it out for redelivery. Exactly one
// entry per pass: XCLAIM resets the idle time of every entry it touches,
// so a batch claim would hide the rest of the backlog from the idle filter
// for another full minIdle window.
func (s *StreamChannel) reclaim(ctx context.Context) (Delivery, bool) {
	pending, err := s.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.stream,
		Group:  s.group,
		Start:  "-",
		End:    "+",
		Count:  1,
		Idle:   s.minIdle,
	}).Result()
	if err != nil || len(pending) == 0 {
		return Delivery{}, false
	}

	claimed, err := s.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   s.stream,
		Group:    s.group,
		Consumer: s.consumer,
		MinIdle:  s.minIdle,
		Messages: []string{pending[0].ID},
	}).Result()
	if err != nil || len(claimed) == 0 {
		return Delivery{}, false
	}

	msg := claimed[0]
	task, err := taskFromValues(msg.Values)
	if err != nil {
		s.log.Error().Err(err).Str("entry", msg.ID).Msg("skipping malformed pending entry")
		_ = s.rdb.XAck(ctx, s.stream, s.group, msg.ID).Err()
		return Delivery{}, false
	}
	s.log.Warn().Str("entry", msg.ID).Uint64("order_id", task.OrderID).Msg("reclaimed pending order task")
	return s.delivery(task, msg.ID), true
}

func (s *StreamChannel) delivery(task domain.OrderTask, entryID string) Delivery {
	return Delivery{
		Task: task,
		Ack: func(ctx context.Context) error {
			if err := s.rdb.XAck(ctx, s.stream, s.group, entryID).Err(); err != nil {
				return fmt.Errorf("ack stream entry %s: %w", entryID, err)
			}
			return nil
		},
	}
}

func (s *StreamChannel) Close() error { return nil }

func taskFromValues(values map[string]interface{}) (domain.OrderTask, error) {
	id, err := uintField(values, "id")
	if err != nil {
		return domain.OrderTask{}, err
	}
	userID, err := intField(values, "userId")
	if err != nil {
		return domain.OrderTask{}, err
	}
	voucherID, err := intField(values, "voucherId")
	if err != nil {
		return domain.OrderTask{}, err
	}
	return domain.OrderTask{OrderID: id, UserID: userID, VoucherID: voucherID}, nil
}

func uintField(values map[string]interface{}, name string) (uint64, error) {
	raw, ok := values[name].(string)
	if !ok {
		return 0, fmt.Errorf("missing field %q", name)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse field %q: %w", name, err)
	}
	return v, nil
}

func intField(values map[string]interface{}, name string) (int64, error) {
	raw, ok := values[name].(string)
	if !ok {
		return 0, fmt.Errorf("missing field %q", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse field %q: %w", name, err)
	}
	return v, nil
}
