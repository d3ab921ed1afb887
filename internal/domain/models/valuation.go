package models

import "time"

// PricingBand is the qualitative resale segment of a vehicle.
type PricingBand struct {
	Label string `json:"label"`
	Note  string `json:"note"`
}

// HealthGrade is the display grade with its bar percent and tone.
type HealthGrade struct {
	Grade   string `json:"grade"`
	Percent int    `json:"percent"`
	Tone    string `json:"tone"` // "positive", "neutral", "negative"
}

// Valuation is the outcome of one evaluation.
// Bands and grades are derived from the inputs, never from EstimatedPrice.
type Valuation struct {
	ID             string       `json:"id"`
	EstimatedPrice float64      `json:"estimated_price"`
	PricingBand    PricingBand  `json:"pricing_band"`
	HealthGrade    HealthGrade  `json:"health_grade"`
	VehicleAge     int          `json:"vehicle_age"`
	MileagePerYear float64      `json:"mileage_per_year"`
	MileageTarget  int          `json:"mileage_target"`
	ImpactAlert    string       `json:"impact_alert,omitempty"`
	Drivers        []string     `json:"drivers"`
	CurrentYear    int          `json:"current_year"`
	Vehicle        VehicleInput `json:"vehicle"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ValuationSummary is a persisted, flattened view of a valuation.
type ValuationSummary struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Make            string    `json:"make"`
	Model           string    `json:"model"`
	Year            int       `json:"year"`
	Mileage         int       `json:"mileage"`
	Condition       string    `json:"condition"`
	AccidentHistory string    `json:"accident_history"`
	VehicleAge      int       `json:"vehicle_age"`
	MileagePerYear  float64   `json:"mileage_per_year"`
	EstimatedPrice  float64   `json:"estimated_price"`
	PricingBand     string    `json:"pricing_band"`
	HealthGrade     string    `json:"health_grade"`
}

// Summary flattens the valuation for storage.
func (v *Valuation) Summary() ValuationSummary {
	return ValuationSummary{
		ID:              v.ID,
		CreatedAt:       v.CreatedAt,
		Make:            v.Vehicle.Make,
		Model:           v.Vehicle.Model,
		Year:            v.Vehicle.Year,
		Mileage:         v.Vehicle.Mileage,
		Condition:       v.Vehicle.Condition,
		AccidentHistory: v.Vehicle.Accident(),
		VehicleAge:      v.VehicleAge,
		MileagePerYear:  v.MileagePerYear,
		EstimatedPrice:  v.EstimatedPrice,
		PricingBand:     v.PricingBand.Label,
		HealthGrade:     v.HealthGrade.Grade,
	}
}

// ModelManifest describes a serialized pipeline and where it is served.
type ModelManifest struct {
	Name        string        `yaml:"name" json:"name"`
	Version     string        `yaml:"version" json:"version"`
	Engine      string        `yaml:"engine" json:"engine"`
	Endpoint    string        `yaml:"endpoint" json:"endpoint"`
	PredictPath string        `yaml:"predict_path" json:"predict_path"`
	Timeout     time.Duration `yaml:"timeout" json:"-"`
}
