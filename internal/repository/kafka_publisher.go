package repository

import (
	"context"
	"time"

	"AutoValue/internal/domain/models"
	domrepo "AutoValue/internal/domain/repository"
)

// EventValuationCompleted is the event type of a finished valuation.
const EventValuationCompleted = "valuation.completed"

// producer is the part of pkg/kafka.Producer the publisher needs.
type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// ValuationEvent is the envelope written to the events topic.
type ValuationEvent struct {
	Event      string            `json:"event"`
	OccurredAt time.Time         `json:"occurred_at"`
	Valuation  *models.Valuation `json:"valuation"`
}

// KafkaPublisher emits valuation events and request results.
type KafkaPublisher struct {
	producer     producer
	eventsTopic  string
	resultsTopic string
}

func NewKafkaPublisher(p producer, eventsTopic, resultsTopic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, eventsTopic: eventsTopic, resultsTopic: resultsTopic}
}

// PublishValuation keys the event by make so one make stays on one partition.
func (p *KafkaPublisher) PublishValuation(ctx context.Context, v *models.Valuation) error {
	return p.producer.Publish(ctx, p.eventsTopic, []byte(v.Vehicle.Make), ValuationEvent{
		Event:      EventValuationCompleted,
		OccurredAt: v.CreatedAt,
		Valuation:  v,
	})
}

func (p *KafkaPublisher) PublishResult(ctx context.Context, res *models.ValuationResultMessage) error {
	return p.producer.Publish(ctx, p.resultsTopic, []byte(res.RequestID), res)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.EventPublisher = (*KafkaPublisher)(nil)
