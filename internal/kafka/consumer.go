package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-membership/internal/logger"
	"ms-membership/internal/models"
)

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer replays notifications published by every instance into a local
// handler. Each instance uses its own group so all of them see every message.
type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{Reader: reader, Logger: log}
}

// Run reads until ctx is done. Malformed messages are skipped.
func (c *Consumer) Run(ctx context.Context, handle func(context.Context, models.Notification)) error {
	c.Logger.Info("KAFKA", "Notification consumer started")
	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read notification: %w", err)
		}

		var n models.Notification
		if err := json.Unmarshal(msg.Value, &n); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Skipping malformed notification at offset %d: %v", msg.Offset, err))
			continue
		}
		handle(ctx, n)
	}
}

func (c *Consumer) Close() error {
	return c.Reader.Close()
}
