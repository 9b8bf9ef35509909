package repository

import (
	"context"

	"Predictelligence/internal/domain/models"
	"Predictelligence/internal/domain/repository"
	pkgkafka "Predictelligence/pkg/kafka"
)

// KafkaLedgerPublisher mirrors appended prediction records to a Kafka topic,
// keyed by subject so per-subject ordering is preserved across partitions.
type KafkaLedgerPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaLedgerPublisher(producer *pkgkafka.Producer, topic string) repository.Archive {
	return &KafkaLedgerPublisher{producer: producer, topic: topic}
}

func (p *KafkaLedgerPublisher) Store(ctx context.Context, rec *models.PredictionRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.SubjectKey), rec)
}

func (p *KafkaLedgerPublisher) Health(ctx context.Context) error {
	return nil
}

func (p *KafkaLedgerPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
