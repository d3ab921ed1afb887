package service

import (
	"context"

	"AutoValue/internal/domain/models"
)

// Predictor scores tabular rows with a trained price pipeline and returns
// one estimate per row.
type Predictor interface {
	Predict(ctx context.Context, rows []*models.Record) ([]float64, error)
}

// ArtifactLoader locates the trained pipeline and its input schema.
// A nil Predictor means no artifact could be found; a nil Schema means
// rows are passed to the predictor without alignment.
type ArtifactLoader interface {
	Load(ctx context.Context) (Predictor, models.Schema)
}
