package event

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// MessageWriter is the part of kafka.Writer the forwarder uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder is a wildcard handler that copies every domain event to a
// Kafka topic, keyed by aggregate id so one order's events stay ordered.
type KafkaForwarder struct {
	writer       MessageWriter
	serializer   *EventSerializer
	logger       *zap.Logger
	writeTimeout time.Duration
}

// NewKafkaWriter builds the topic writer
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewKafkaForwarder creates a forwarder writing through writer
func NewKafkaForwarder(writer MessageWriter, serializer *EventSerializer, logger *zap.Logger) *KafkaForwarder {
	return &KafkaForwarder{
		writer:       writer,
		serializer:   serializer,
		logger:       logger,
		writeTimeout: 5 * time.Second,
	}
}

// EventTypes subscribes to every event
func (f *KafkaForwarder) EventTypes() []string {
	return nil
}

// Handle writes the event envelope to the topic
func (f *KafkaForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	value, err := f.serializer.Encode(event)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: value,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType())},
			{Key: "event_id", Value: []byte(event.EventID().String())},
		},
	}
	if err := f.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("failed to forward event %s to kafka: %w", event.EventType(), err)
	}

	f.logger.Debug("Forwarded event to Kafka",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
	)
	return nil
}

// Close flushes and closes the writer
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}

var _ shared.EventHandler = (*KafkaForwarder)(nil)
