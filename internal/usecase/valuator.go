package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"AutoValue/internal/domain/models"
	domsvc "AutoValue/internal/domain/service"
	"AutoValue/internal/services/features"
	"AutoValue/internal/services/insights"
)

// ErrModelUnavailable is returned for every evaluation when no pipeline was loaded.
var ErrModelUnavailable = errors.New("valuation model unavailable")

// PredictionError wraps any failure raised while scoring a row.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string { return "prediction error: " + e.Err.Error() }

func (e *PredictionError) Unwrap() error { return e.Err }

// Valuator runs the feature, alignment, prediction and classification chain.
// It holds no mutable state after construction.
type Valuator struct {
	predictor domsvc.Predictor
	schema    models.Schema
	now       func() time.Time
	newID     func() string
}

type ValuatorOption func(*Valuator)

// WithClock overrides the time source used for the default year and timestamps.
func WithClock(now func() time.Time) ValuatorOption {
	return func(v *Valuator) { v.now = now }
}

// WithIDGenerator overrides valuation id generation.
func WithIDGenerator(gen func() string) ValuatorOption {
	return func(v *Valuator) { v.newID = gen }
}

// NewValuator binds the loaded predictor and schema. A nil predictor makes
// every evaluation fail with ErrModelUnavailable.
func NewValuator(p domsvc.Predictor, schema models.Schema, opts ...ValuatorOption) *Valuator {
	v := &Valuator{
		predictor: p,
		schema:    schema,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Valuator) Available() bool { return v.predictor != nil }

func (v *Valuator) Schema() models.Schema { return v.schema }

// EffectiveYear resolves a non-positive year to the clock's calendar year.
func (v *Valuator) EffectiveYear(currentYear int) int {
	if currentYear <= 0 {
		return v.now().Year()
	}
	return currentYear
}

// Evaluate estimates the price of one vehicle.
func (v *Valuator) Evaluate(ctx context.Context, in models.VehicleInput, currentYear int) (*models.Valuation, error) {
	if v.predictor == nil {
		return nil, ErrModelUnavailable
	}
	year := v.EffectiveYear(currentYear)

	rec := features.BuildRecord(in, year)
	price, err := v.predict(ctx, features.AlignToSchema(rec, v.schema))
	if err != nil {
		return nil, err
	}

	band, grade := insights.Classify(rec, in.Condition, in.Accident())
	age := rec.Int(features.ColVehicleAge)
	return &models.Valuation{
		ID:             v.newID(),
		EstimatedPrice: price,
		PricingBand:    band,
		HealthGrade:    grade,
		VehicleAge:     age,
		MileagePerYear: rec.Float(features.ColMileagePerYear),
		MileageTarget:  insights.MileageTarget(age),
		ImpactAlert:    insights.ImpactAlert(in.Accident()),
		Drivers:        insights.Drivers(in, band),
		CurrentYear:    year,
		Vehicle:        in,
		CreatedAt:      v.now().UTC(),
	}, nil
}

// Restamp gives a reused valuation a fresh id and creation time.
func (v *Valuator) Restamp(val *models.Valuation) {
	val.ID = v.newID()
	val.CreatedAt = v.now().UTC()
}

// predict converts every failure, including a panic in the predictor, into a PredictionError.
func (v *Valuator) predict(ctx context.Context, row *models.Record) (price float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PredictionError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	preds, err := v.predictor.Predict(ctx, []*models.Record{row})
	if err != nil {
		return 0, &PredictionError{Err: err}
	}
	if len(preds) == 0 {
		return 0, &PredictionError{Err: errors.New("empty prediction")}
	}
	return preds[0], nil
}
