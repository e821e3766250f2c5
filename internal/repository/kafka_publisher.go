package repository

import (
	"context"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	pkgkafka "PricePulse/pkg/kafka"
)

type anomalyProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// AnomalyEvent is the message value published per anomaly record.
type AnomalyEvent struct {
	RunDate string `json:"run_date"`
	models.AnomalyRecord
}

// KafkaPublisher publishes anomaly records keyed by brand|name, so all
// events of one product land on one partition.
type KafkaPublisher struct {
	producer anomalyProducer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishAnomalies(ctx context.Context, runDate time.Time, records []models.AnomalyRecord) error {
	if len(records) == 0 {
		return nil
	}
	rd := runDate.UTC().Format(dateLayout)
	msgs := make([]pkgkafka.Message, len(records))
	for i, r := range records {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(r.Key().String()),
			Value: AnomalyEvent{RunDate: rd, AnomalyRecord: r},
		}
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish %d anomalies: %w", len(records), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.AnomalyPublisher = (*KafkaPublisher)(nil)
