package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AutoValue/internal/domain/models"
	"AutoValue/internal/services/insights"
)

// fakePredictor records what it was asked to score.
type fakePredictor struct {
	mu    sync.Mutex
	calls int
	rows  []*models.Record
	preds []float64
	err   error
	panic bool
}

func (f *fakePredictor) Predict(_ context.Context, rows []*models.Record) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.rows = append(f.rows, rows...)
	if f.panic {
		panic("pipeline exploded")
	}
	return f.preds, f.err
}

func (f *fakePredictor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fixedClock() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }

func camry() models.VehicleInput {
	return models.VehicleInput{
		Make:            "Toyota",
		Model:           "Camry",
		Year:            2019,
		Mileage:         45000,
		EngineHP:        180,
		Transmission:    "Automatic",
		FuelType:        "Gasoline",
		Drivetrain:      "FWD",
		Condition:       "Good",
		AccidentHistory: "None",
		SellerType:      "Dealer",
		Trim:            "SE",
		BodyType:        "Sedan",
		OwnerCount:      1,
		ExteriorColor:   "Black",
		InteriorColor:   "Black",
		BrandPopularity: 0.5,
	}
}

func TestEvaluateMainstream(t *testing.T) {
	p := &fakePredictor{preds: []float64{21450.0}}
	v := NewValuator(p, nil, WithClock(fixedClock), WithIDGenerator(func() string { return "val-1" }))

	out, err := v.Evaluate(context.Background(), camry(), 2025)
	require.NoError(t, err)
	assert.Equal(t, "val-1", out.ID)
	assert.Equal(t, 21450.0, out.EstimatedPrice)
	assert.Equal(t, 6, out.VehicleAge)
	assert.Equal(t, 7500.0, out.MileagePerYear)
	assert.Equal(t, insights.BandMainstream, out.PricingBand.Label)
	assert.Equal(t, "B", out.HealthGrade.Grade)
	assert.Equal(t, 84000, out.MileageTarget)
	assert.Empty(t, out.ImpactAlert)
	assert.Len(t, out.Drivers, 4)
	assert.Equal(t, 2025, out.CurrentYear)
	assert.Equal(t, 1, p.Calls())
}

func TestEvaluatePremiumWithSchema(t *testing.T) {
	p := &fakePredictor{preds: []float64{38900.0}}
	schema := models.Schema{"make", "year", "mileage", "vehicle_age", "mileage_per_year", "service_records"}
	v := NewValuator(p, schema, WithClock(fixedClock))

	in := camry()
	in.Make = "Lexus"
	in.Year = 2023
	in.Mileage = 18000
	in.Condition = "Excellent"

	out, err := v.Evaluate(context.Background(), in, 2025)
	require.NoError(t, err)
	assert.Equal(t, insights.BandPremium, out.PricingBand.Label)
	assert.Equal(t, "A+", out.HealthGrade.Grade)
	assert.Equal(t, 90, out.HealthGrade.Percent)

	require.Len(t, p.rows, 1)
	assert.Equal(t, []string(schema), p.rows[0].Columns())
	v0, _ := p.rows[0].Get("service_records")
	assert.Equal(t, 0, v0)
}

func TestEvaluateMajorAccident(t *testing.T) {
	v := NewValuator(&fakePredictor{preds: []float64{9100}}, nil, WithClock(fixedClock))
	in := camry()
	in.AccidentHistory = "Major"

	out, err := v.Evaluate(context.Background(), in, 2025)
	require.NoError(t, err)
	assert.Equal(t, insights.BandValue, out.PricingBand.Label)
	assert.Equal(t, "C", out.HealthGrade.Grade)
	assert.Contains(t, out.ImpactAlert, "Major")
}

func TestEvaluateDefaultsYearFromClock(t *testing.T) {
	v := NewValuator(&fakePredictor{preds: []float64{1}}, nil, WithClock(fixedClock))
	out, err := v.Evaluate(context.Background(), camry(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2025, out.CurrentYear)
	assert.Equal(t, 6, out.VehicleAge)
}

func TestEvaluateModelUnavailable(t *testing.T) {
	v := NewValuator(nil, nil)
	assert.False(t, v.Available())

	out, err := v.Evaluate(context.Background(), camry(), 2025)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestEvaluatePredictionErrors(t *testing.T) {
	cause := errors.New("connection refused")
	cases := map[string]*fakePredictor{
		"error":  {err: cause},
		"empty":  {preds: []float64{}},
		"panics": {panic: true},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			v := NewValuator(p, nil, WithClock(fixedClock))
			out, err := v.Evaluate(context.Background(), camry(), 2025)
			assert.Nil(t, out)

			var perr *PredictionError
			require.ErrorAs(t, err, &perr)
			assert.Contains(t, err.Error(), "prediction error: ")
			assert.Equal(t, 1, p.Calls(), "no retry")
		})
	}

	v := NewValuator(&fakePredictor{err: cause}, nil)
	_, err := v.Evaluate(context.Background(), camry(), 2025)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "prediction error: connection refused", err.Error())
}

func TestEvaluateRecoversAfterFailure(t *testing.T) {
	p := &fakePredictor{panic: true}
	v := NewValuator(p, nil, WithClock(fixedClock))
	_, err := v.Evaluate(context.Background(), camry(), 2025)
	require.Error(t, err)

	p.mu.Lock()
	p.panic = false
	p.preds = []float64{15000}
	p.mu.Unlock()

	out, err := v.Evaluate(context.Background(), camry(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 15000.0, out.EstimatedPrice)
}

func TestClassificationIgnoresEstimate(t *testing.T) {
	low := NewValuator(&fakePredictor{preds: []float64{100}}, nil, WithClock(fixedClock))
	high := NewValuator(&fakePredictor{preds: []float64{1e6}}, nil, WithClock(fixedClock))

	a, err := low.Evaluate(context.Background(), camry(), 2025)
	require.NoError(t, err)
	b, err := high.Evaluate(context.Background(), camry(), 2025)
	require.NoError(t, err)
	assert.Equal(t, a.PricingBand, b.PricingBand)
	assert.Equal(t, a.HealthGrade, b.HealthGrade)
}
