package repository

import (
	"context"
	"fmt"

	"FinScout/internal/domain/models"
	domrepo "FinScout/internal/domain/repository"
	pkgkafka "FinScout/pkg/kafka"
)

// KafkaPublisher emits saved signals to a Kafka topic, keyed by symbol
// so one symbol's history stays on one partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher over an established producer.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, rec *models.SignalRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("signal id required")
	}
	return p.producer.Publish(ctx, p.topic, []byte(rec.Symbol), rec)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops events. Used when no bus is configured.
type NopPublisher struct{}

var _ domrepo.Publisher = NopPublisher{}

func (NopPublisher) Publish(context.Context, *models.SignalRecord) error { return nil }

func (NopPublisher) Close() error { return nil }
