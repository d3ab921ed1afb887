package repository

import (
	"context"

	"AutoValue/internal/domain/models"
)

// ValuationStore persists completed valuations.
type ValuationStore interface {
	Store(ctx context.Context, v *models.Valuation) error
	Recent(ctx context.Context, makeName string, limit int) ([]models.ValuationSummary, error)
	Health(ctx context.Context) error
}

// EventPublisher emits valuation lifecycle events.
type EventPublisher interface {
	PublishValuation(ctx context.Context, v *models.Valuation) error
	PublishResult(ctx context.Context, res *models.ValuationResultMessage) error
	Close() error
}

// Broadcaster fans a completed valuation out to live subscribers.
type Broadcaster interface {
	Broadcast(v *models.Valuation)
}

type Metrics interface {
	RecordValuation(result string)
	RecordClassification(band, grade string)
	RecordEstimate(makeName string, price float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
