package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"AutoValue/internal/domain/models"
	domrepo "AutoValue/internal/domain/repository"
)

const valuationColumns = "id, created_at, make, model, year, mileage, condition, accident_history, vehicle_age, mileage_per_year, estimated_price, pricing_band, health_grade"

// ValuationSchema returns the DDL for the valuations table in database.
func ValuationSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.valuations (
	id String,
	created_at DateTime64(3, 'UTC'),
	make LowCardinality(String),
	model String,
	year UInt16,
	mileage UInt32,
	condition LowCardinality(String),
	accident_history LowCardinality(String),
	vehicle_age Int16,
	mileage_per_year Float64,
	estimated_price Float64,
	pricing_band LowCardinality(String),
	health_grade LowCardinality(String)
) ENGINE = MergeTree
PARTITION BY toYYYYMM(created_at)
ORDER BY (make, created_at)
TTL toDateTime(created_at) + INTERVAL 180 DAY`, database),
	}
}

// CHValuationStore persists valuation summaries in ClickHouse.
type CHValuationStore struct {
	db    *sql.DB
	table string
}

func NewCHValuationStore(db *sql.DB, database string) *CHValuationStore {
	return &CHValuationStore{db: db, table: database + ".valuations"}
}

func (s *CHValuationStore) Store(ctx context.Context, v *models.Valuation) error {
	sum := v.Summary()
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, valuationColumns)
	_, err := s.db.ExecContext(ctx, q,
		sum.ID,
		sum.CreatedAt,
		sum.Make,
		sum.Model,
		sum.Year,
		sum.Mileage,
		sum.Condition,
		sum.AccidentHistory,
		sum.VehicleAge,
		sum.MileagePerYear,
		sum.EstimatedPrice,
		sum.PricingBand,
		sum.HealthGrade,
	)
	if err != nil {
		return fmt.Errorf("insert valuation %s: %w", sum.ID, err)
	}
	return nil
}

// Recent returns the newest valuations first. An empty makeName matches all makes.
func (s *CHValuationStore) Recent(ctx context.Context, makeName string, limit int) ([]models.ValuationSummary, error) {
	var (
		where []string
		args  []interface{}
	)
	if makeName != "" {
		where = append(where, "make = ?")
		args = append(args, makeName)
	}
	q := fmt.Sprintf("SELECT %s FROM %s", valuationColumns, s.table)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query valuations: %w", err)
	}
	defer rows.Close()

	out := make([]models.ValuationSummary, 0, limit)
	for rows.Next() {
		var v models.ValuationSummary
		if err := rows.Scan(
			&v.ID,
			&v.CreatedAt,
			&v.Make,
			&v.Model,
			&v.Year,
			&v.Mileage,
			&v.Condition,
			&v.AccidentHistory,
			&v.VehicleAge,
			&v.MileagePerYear,
			&v.EstimatedPrice,
			&v.PricingBand,
			&v.HealthGrade,
		); err != nil {
			return nil, fmt.Errorf("scan valuation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *CHValuationStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ domrepo.ValuationStore = (*CHValuationStore)(nil)
