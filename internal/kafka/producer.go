package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-membership/internal/models"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes registration notifications keyed by event ID, so one
// event's updates stay ordered within a partition.
type Producer struct {
	Writer MessageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{Writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (p *Producer) Name() string { return "kafka" }

// Notify streams the notification to Kafka
func (p *Producer) Notify(ctx context.Context, n models.Notification) error {
	msgBytes, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.EventID),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
