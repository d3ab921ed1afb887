package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AutoValue/internal/domain/models"
)

func sampleValuation() *models.Valuation {
	return &models.Valuation{
		ID:             "val-1",
		EstimatedPrice: 21450,
		PricingBand:    models.PricingBand{Label: "Mainstream fair value"},
		HealthGrade:    models.HealthGrade{Grade: "B", Percent: 70, Tone: "neutral"},
		VehicleAge:     6,
		MileagePerYear: 7500,
		CreatedAt:      time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		Vehicle: models.VehicleInput{
			Make: "Toyota", Model: "Camry", Year: 2019, Mileage: 45000, Condition: "Good",
		},
	}
}

func TestStoreInsertsSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	v := sampleValuation()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO autovalue.valuations (" + valuationColumns + ")")).
		WithArgs("val-1", v.CreatedAt, "Toyota", "Camry", 2019, 45000, "Good", "None", 6, 7500.0, 21450.0, "Mainstream fair value", "B").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewCHValuationStore(db, "autovalue").Store(context.Background(), v))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreWrapsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("readonly"))
	err = NewCHValuationStore(db, "autovalue").Store(context.Background(), sampleValuation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "val-1")
}

func TestRecentFiltersByMake(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "created_at", "make", "model", "year", "mileage", "condition", "accident_history", "vehicle_age", "mileage_per_year", "estimated_price", "pricing_band", "health_grade"}).
		AddRow("val-2", created, "BMW", "X5", 2021, 30000, "Excellent", "None", 4, 7500.0, 41000.0, "Mainstream fair value", "A+")
	mock.ExpectQuery(regexp.QuoteMeta("FROM autovalue.valuations WHERE make = ? ORDER BY created_at DESC LIMIT ?")).
		WithArgs("BMW", 5).
		WillReturnRows(rows)

	out, err := NewCHValuationStore(db, "autovalue").Recent(context.Background(), "BMW", 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "X5", out[0].Model)
	assert.Equal(t, 41000.0, out[0].EstimatedPrice)
	assert.Equal(t, created, out[0].CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentAllMakes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM autovalue.valuations ORDER BY created_at DESC LIMIT ?")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	out, err := NewCHValuationStore(db, "autovalue").Recent(context.Background(), "", 20)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestValuationSchema(t *testing.T) {
	stmts := ValuationSchema("autovalue")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "autovalue.valuations")
	assert.Contains(t, stmts[1], "MergeTree")
}

type recordingProducer struct {
	topics []string
	keys   []string
	values [][]byte
}

func (p *recordingProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, string(key))
	p.values = append(p.values, b)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func TestKafkaPublisherTopicsAndKeys(t *testing.T) {
	prod := &recordingProducer{}
	pub := NewKafkaPublisher(prod, "autovalue.valuations", "autovalue.valuation.results")

	require.NoError(t, pub.PublishValuation(context.Background(), sampleValuation()))
	require.NoError(t, pub.PublishResult(context.Background(), &models.ValuationResultMessage{RequestID: "req-1", Status: "ok"}))

	assert.Equal(t, []string{"autovalue.valuations", "autovalue.valuation.results"}, prod.topics)
	assert.Equal(t, []string{"Toyota", "req-1"}, prod.keys)

	var ev ValuationEvent
	require.NoError(t, json.Unmarshal(prod.values[0], &ev))
	assert.Equal(t, EventValuationCompleted, ev.Event)
	assert.Equal(t, "val-1", ev.Valuation.ID)
}
