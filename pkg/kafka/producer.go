// Package kafka publishes and consumes JSON-encoded events with
// segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
)

// Event is one message. Key picks the partition; Value is JSON-encoded.
type Event struct {
	Key   string
	Value any
}

type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Encode turns events into kafka messages.
func Encode(events []Event) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event.Value)
		if err != nil {
			return nil, fmt.Errorf("marshaling event %q: %w", event.Key, err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(event.Key),
			Value: value,
		})
	}
	return messages, nil
}

func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch writes events in a single synchronous call.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	messages, err := Encode(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish batch", "count", len(messages), "error", err)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug("batch published", "count", len(messages))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
