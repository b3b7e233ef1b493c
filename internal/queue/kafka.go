package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/flashmart/seckill/internal/domain"
)

// KafkaChannel is a durable order channel on a Kafka topic with a consumer
// group. Offsets are committed only after Ack, so unacknowledged tasks are
// redelivered on restart. Tasks are keyed by user id to keep one user's
// deliveries on one partition, in order.
type KafkaChannel struct {
	writer *kafka.Writer
	reader *kafka.Reader
	log    zerolog.Logger
}

func NewKafkaChannel(brokers []string, topic, group string, logger zerolog.Logger) *KafkaChannel {
	return &KafkaChannel{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        group,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0, // manual commits only
		}),
		log: logger,
	}
}

func (k *KafkaChannel) Submit(ctx context.Context, task domain.OrderTask) error {
	value, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal order task: %w", err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(task.UserID, 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write order task: %w", err)
	}
	return nil
}

func (k *KafkaChannel) Consume(ctx context.Context) (Delivery, error) {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Delivery{}, ctx.Err()
			}
			return Delivery{}, fmt.Errorf("fetch order task: %w", err)
		}

		var task domain.OrderTask
		if err := json.Unmarshal(msg.Value, &task); err != nil {
			// Malformed messages cannot succeed on retry; commit and skip.
			k.log.Error().Err(err).Int64("offset", msg.Offset).Msg("skipping malformed kafka message")
			if err := k.reader.CommitMessages(ctx, msg); err != nil {
				k.log.Error().Err(err).Msg("failed to commit malformed message")
			}
			continue
		}

		m := msg
		return Delivery{
			Task: task,
			Ack: func(ctx context.Context) error {
				if err := k.reader.CommitMessages(ctx, m); err != nil {
					return fmt.Errorf("commit order task: %w", err)
				}
				return nil
			},
		}, nil
	}
}

func (k *KafkaChannel) Close() error {
	werr := k.writer.Close()
	rerr := k.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
