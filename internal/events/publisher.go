// Package events publishes roster changes to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/mergington/activity-signup/internal/model"
)

// Publisher emits roster change events.
type Publisher interface {
	Publish(ctx context.Context, change model.RosterChange) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.RosterChange) error { return nil }
func (NopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes roster changes to a Kafka topic as JSON. Messages
// are keyed by activity name so changes to one roster stay ordered within
// a partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a KafkaPublisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
		},
	}
}

// Publish encodes change and writes it synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, change model.RosterChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode roster change: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(change.Activity),
		Value: payload,
		Time:  change.OccurredAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(change.Action)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write roster change: %w", err)
	}
	return nil
}

// Close flushes and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
