package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
)

// HeaderEventType names the kind of JSON document carried in a message.
const HeaderEventType = "event-type"

// Event is one message to publish. Value is JSON-encoded; Key picks the
// partition.
type Event struct {
	Key   string
	Type  string
	Value any
}

// Producer publishes JSON events to one topic.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a Producer for topic. Writes are synchronous and
// batched by the writer for up to 10ms.
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

// PublishBatch writes events in one call. Either all are encoded and handed
// to the writer or none are.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := encode(event)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("publish failed", "count", len(messages), "error", err)
		return fmt.Errorf("publishing %d events to kafka: %w", len(messages), err)
	}
	p.logger.Debug("events published", "count", len(messages))
	return nil
}

func encode(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding %s event: %w", event.Type, err)
	}
	msg := kafka.Message{Key: []byte(event.Key), Value: value}
	if event.Type != "" {
		msg.Headers = []kafka.Header{{Key: HeaderEventType, Value: []byte(event.Type)}}
	}
	return msg, nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
