// Package kafka publishes and consumes JSON events over segmentio/kafka-go.
// Producers tag each message with its event type; consumers hand messages to
// a Handler and commit them once handled.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/resilience"
)

// Message is a consumed event.
type Message struct {
	Key   []byte
	Type  string
	Value []byte
	Time  time.Time
}

// Handler processes one message. A returned error leaves the message
// uncommitted.
type Handler func(ctx context.Context, msg Message) error

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	logger  *slog.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler Handler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	return &Consumer{
		reader:  r,
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Run consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	backoff := resilience.Backoff{Initial: 100 * time.Millisecond, Max: 10 * time.Second}
	failures := 0
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping")
				return nil
			}
			failures++
			c.logger.Error("fetch failed", "error", err, "consecutive_failures", failures)
			select {
			case <-ctx.Done():
			case <-time.After(backoff.Delay(failures)):
			}
			continue
		}
		failures = 0
		msg := Message{Key: m.Key, Value: m.Value, Time: m.Time}
		for _, h := range m.Headers {
			if h.Key == HeaderEventType {
				msg.Type = string(h.Value)
			}
		}
		if err := c.handler(ctx, msg); err != nil {
			c.logger.Error("handler failed",
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit failed", "partition", m.Partition, "offset", m.Offset, "error", err)
		}
	}
}

// Stats returns the reader's counters.
func (c *Consumer) Stats() kafka.ReaderStats {
	return c.reader.Stats()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return out, fmt.Errorf("decoding kafka message: %w", err)
	}
	return out, nil
}
