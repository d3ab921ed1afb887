package models

// Requests for the valuation HTTP endpoints and the Kafka request stream.

type ValuationRequest struct {
	VehicleInput
	CurrentYear int `json:"current_year" validate:"omitempty,gte=1990,lte=2200"`
}

type HistoryRequest struct {
	Make  string `query:"make" json:"make" validate:"omitempty,oneof=Toyota Honda BMW Maruti Hyundai Volkswagen Lexus Ford Chevrolet Nissan"`
	Limit int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

// ValuationMessage is the payload consumed from the request topic.
type ValuationMessage struct {
	RequestID   string       `json:"request_id" validate:"required"`
	Vehicle     VehicleInput `json:"vehicle"`
	CurrentYear int          `json:"current_year" validate:"omitempty,gte=1990,lte=2200"`
}

// ValuationResultMessage is published to the result topic.
type ValuationResultMessage struct {
	RequestID string     `json:"request_id"`
	Status    string     `json:"status"` // "ok" or an error code
	Valuation *Valuation `json:"valuation,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// IntRange is a numeric input bound with its suggested default.
type IntRange struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
	Step    int `json:"step,omitempty"`
}

// ValuationOptions lists what a client needs to build a valuation form.
type ValuationOptions struct {
	Makes         []string `json:"makes"`
	Transmissions []string `json:"transmissions"`
	FuelTypes     []string `json:"fuel_types"`
	Drivetrains   []string `json:"drivetrains"`
	Conditions    []string `json:"conditions"`
	Accidents     []string `json:"accident_histories"`
	SellerTypes   []string `json:"seller_types"`
	BodyTypes     []string `json:"body_types"`

	Year       IntRange `json:"year"`
	Mileage    IntRange `json:"mileage"`
	EngineHP   IntRange `json:"engine_hp"`
	OwnerCount IntRange `json:"owner_count"`

	DefaultModel string `json:"default_model"`
	DefaultTrim  string `json:"default_trim"`
	CurrentYear  int    `json:"current_year"`
	ModelLoaded  bool   `json:"model_loaded"`
}

// FormOptions returns the form enumerations with year bounds ending at currentYear.
func FormOptions(currentYear int) ValuationOptions {
	return ValuationOptions{
		Makes:         Makes,
		Transmissions: Transmissions,
		FuelTypes:     FuelTypes,
		Drivetrains:   Drivetrains,
		Conditions:    Conditions,
		Accidents:     Accidents,
		SellerTypes:   SellerTypes,
		BodyTypes:     BodyTypes,
		Year:          IntRange{Min: MinModelYear, Max: currentYear, Default: currentYear - 6},
		Mileage:       IntRange{Min: 0, Max: 300000, Default: 45000, Step: 1000},
		EngineHP:      IntRange{Min: 50, Max: 1000, Default: 180},
		OwnerCount:    IntRange{Min: 1, Max: 6, Default: 1},
		DefaultModel:  "Camry",
		DefaultTrim:   "SE",
		CurrentYear:   currentYear,
	}
}
