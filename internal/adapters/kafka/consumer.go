package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"stockwatch/pkg/logger"
)

// Consumer reads one topic as part of a consumer group
type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10e6
	}

	log := logger.Get().With("component", "kafka_consumer", "topic", cfg.Topic)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.LastOffset,
	})

	return &Consumer{reader: reader, log: log}
}

// MessageHandler processes one message; an error is logged and consumption continues
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// Consume blocks until ctx is cancelled
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.log.Infow("Starting consumer")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Infow("Consumer stopped")
				return ctx.Err()
			}
			c.log.Warnw("Failed to read message", "error", err)
			continue
		}

		if err := handler(ctx, msg); err != nil {
			c.log.Warnw("Failed to handle message", "key", string(msg.Key), "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
