package features

import "AutoValue/internal/domain/models"

// Column names shared with the training pipeline.
const (
	ColMake            = "make"
	ColModel           = "model"
	ColYear            = "year"
	ColMileage         = "mileage"
	ColEngineHP        = "engine_hp"
	ColTransmission    = "transmission"
	ColFuelType        = "fuel_type"
	ColDrivetrain      = "drivetrain"
	ColCondition       = "condition"
	ColAccidentHistory = "accident_history"
	ColSellerType      = "seller_type"
	ColTrim            = "trim"
	ColBodyType        = "body_type"
	ColExteriorColor   = "exterior_color"
	ColInteriorColor   = "interior_color"
	ColOwnerCount      = "owner_count"
	ColBrandPopularity = "brand_popularity"

	ColVehicleAge     = "vehicle_age"
	ColMileagePerYear = "mileage_per_year"
)

// rawColumns is the number of columns taken verbatim from the input.
const rawColumns = 17

// BuildRecord turns a raw vehicle input into the derived single-row record:
// the raw fields followed by vehicle_age and mileage_per_year.
// An empty accident history is normalized to "None".
func BuildRecord(in models.VehicleInput, currentYear int) *models.Record {
	rec := models.NewRecord(rawColumns + 2)
	rec.Set(ColMake, in.Make)
	rec.Set(ColModel, in.Model)
	rec.Set(ColYear, in.Year)
	rec.Set(ColMileage, in.Mileage)
	rec.Set(ColEngineHP, in.EngineHP)
	rec.Set(ColTransmission, in.Transmission)
	rec.Set(ColFuelType, in.FuelType)
	rec.Set(ColDrivetrain, in.Drivetrain)
	rec.Set(ColCondition, in.Condition)
	rec.Set(ColAccidentHistory, in.Accident())
	rec.Set(ColSellerType, in.SellerType)
	rec.Set(ColTrim, in.Trim)
	rec.Set(ColBodyType, in.BodyType)
	rec.Set(ColExteriorColor, in.ExteriorColor)
	rec.Set(ColInteriorColor, in.InteriorColor)
	rec.Set(ColOwnerCount, in.OwnerCount)
	rec.Set(ColBrandPopularity, in.BrandPopularity)

	age := VehicleAge(in.Year, currentYear)
	rec.Set(ColVehicleAge, age)
	rec.Set(ColMileagePerYear, MileagePerYear(in.Mileage, age))
	return rec
}

// VehicleAge returns currentYear - year. Future model years give a negative age.
func VehicleAge(year, currentYear int) int {
	return currentYear - year
}

// MileagePerYear divides mileage by the age, clamping the divisor to at least 1.
func MileagePerYear(mileage, age int) float64 {
	divisor := age
	if divisor < 1 {
		divisor = 1
	}
	return float64(mileage) / float64(divisor)
}

// AlignToSchema projects rec onto schema: output columns are exactly the
// schema's, in order, with missing ones set to 0. Columns outside the schema
// are dropped. A nil schema returns rec unchanged.
func AlignToSchema(rec *models.Record, schema models.Schema) *models.Record {
	if schema == nil {
		return rec
	}
	out := models.NewRecord(len(schema))
	for _, col := range schema {
		if v, ok := rec.Get(col); ok {
			out.Set(col, v)
			continue
		}
		out.Set(col, 0)
	}
	return out
}
