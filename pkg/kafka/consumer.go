package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
)

// MessageHandler processes one message. Returning an error leaves the
// message uncommitted.
type MessageHandler func(ctx context.Context, key, value []byte) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  reader
	handler MessageHandler
	logger  *slog.Logger
	// backoff is the pause after a failed fetch.
	backoff time.Duration
}

// NewConsumer joins cfg.ConsumerGroup on topic, starting from the newest
// offset when the group has no commits yet.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(r, topic, handler)
}

func newConsumer(r reader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  r,
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
		backoff: time.Second,
	}
}

// Run consumes until ctx is cancelled. Handler failures are logged and the
// message is skipped; the reader is closed on return.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("kafka reader closed: %w", err)
			}
			c.logger.Error("failed to fetch message", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("failed to process message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
