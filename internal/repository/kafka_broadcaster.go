package repository

import (
	"context"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/domain/repository"
	pkgkafka "RiskPulse/pkg/kafka"
)

// KafkaBroadcaster publishes risk updates to a Kafka topic, keyed by entity
// so downstream consumers see per-entity order.
type KafkaBroadcaster struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaBroadcaster creates a Kafka-backed broadcaster.
func NewKafkaBroadcaster(producer *pkgkafka.Producer, topic string) repository.Broadcaster {
	return &KafkaBroadcaster{producer: producer, topic: topic}
}

func (b *KafkaBroadcaster) BroadcastRiskUpdate(ctx context.Context, a *models.RiskAssessment) error {
	return b.producer.Publish(ctx, b.topic, []byte(a.EntityID), riskUpdateEnvelope(a))
}

func (b *KafkaBroadcaster) Close() error {
	if b.producer != nil {
		return b.producer.Close()
	}
	return nil
}
