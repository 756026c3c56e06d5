package repository

import (
	"context"

	"StockInsight/internal/domain/models"
	pkgkafka "StockInsight/pkg/kafka"
)

// KafkaSignalPublisher implements SignalPublisher for Kafka. Events are keyed
// by symbol so one symbol stays ordered on one partition.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates Kafka publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, ev *models.SignalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

// Close is a no-op; the producer is shared and closed by its owner.
func (p *KafkaSignalPublisher) Close() error { return nil }

// NoopSignalPublisher drops events. Used when Kafka is disabled.
type NoopSignalPublisher struct{}

func (NoopSignalPublisher) Publish(context.Context, *models.SignalEvent) error { return nil }

func (NoopSignalPublisher) Close() error { return nil }
