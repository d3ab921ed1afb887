package insights

import (
	"fmt"
	"strings"

	"AutoValue/internal/domain/models"
	"AutoValue/internal/services/features"
)

// Band labels.
const (
	BandPremium    = "Premium resale segment"
	BandMainstream = "Mainstream fair value"
	BandValue      = "Value / budget tier"
)

// Grade tones.
const (
	TonePositive = "positive"
	ToneNeutral  = "neutral"
	ToneNegative = "negative"
)

const (
	premiumMaxAge      = 3
	premiumMaxMileage  = 14000.0
	mainstreamMaxAge   = 7
	targetMilesPerYear = 12000
)

var (
	premiumBand    = models.PricingBand{Label: BandPremium, Note: "Strong residual value driven by low age & clean history."}
	mainstreamBand = models.PricingBand{Label: BandMainstream, Note: "Healthy balance between depreciation and usability."}
	valueBand      = models.PricingBand{Label: BandValue, Note: "Price is shaped more by age, mileage and risk factors."}

	gradeTop     = models.HealthGrade{Grade: "A+", Percent: 90, Tone: TonePositive}
	gradeDamaged = models.HealthGrade{Grade: "C", Percent: 40, Tone: ToneNegative}
	gradeAverage = models.HealthGrade{Grade: "B", Percent: 70, Tone: ToneNeutral}
)

// Classify derives the pricing band and health grade from the derived record
// and the categorical condition and accident history. Rules are evaluated
// top-down and the first match wins. The model estimate is never consulted.
func Classify(rec *models.Record, condition, accidentHistory string) (models.PricingBand, models.HealthGrade) {
	if accidentHistory == "" {
		accidentHistory = models.AccidentNone
	}
	age := rec.Int(features.ColVehicleAge)
	mpy := rec.Float(features.ColMileagePerYear)
	return band(age, mpy, accidentHistory), grade(condition, accidentHistory)
}

func band(age int, mpy float64, accident string) models.PricingBand {
	switch {
	case age <= premiumMaxAge && mpy < premiumMaxMileage && accident == models.AccidentNone:
		return premiumBand
	case age <= mainstreamMaxAge && (accident == models.AccidentNone || accident == models.AccidentMinor):
		return mainstreamBand
	default:
		return valueBand
	}
}

func grade(condition, accident string) models.HealthGrade {
	switch {
	case condition == models.ConditionExcellent && accident == models.AccidentNone:
		return gradeTop
	case accident != models.AccidentNone:
		return gradeDamaged
	default:
		return gradeAverage
	}
}

// Drivers explains the estimate in a few short lines.
func Drivers(in models.VehicleInput, b models.PricingBand) []string {
	return []string{
		fmt.Sprintf("Age and usage pattern suggest a %s profile.", strings.ToLower(b.Label)),
		fmt.Sprintf("Condition is reported as %s, with accident history marked as %s.", in.Condition, in.Accident()),
		fmt.Sprintf("Powertrain: %d HP %s, %s transmission and %s drivetrain.", in.EngineHP, in.FuelType, in.Transmission, in.Drivetrain),
		fmt.Sprintf("Ownership trail shows %d recorded owner(s), which also affects buyer confidence.", in.OwnerCount),
	}
}

// MileageTarget is the mileage ceiling that supports a higher closing price.
func MileageTarget(age int) int {
	return (age + 1) * targetMilesPerYear
}

// ImpactAlert returns the accident penalty notice, or "" for a clean history.
func ImpactAlert(accidentHistory string) string {
	if accidentHistory == "" || accidentHistory == models.AccidentNone {
		return ""
	}
	return fmt.Sprintf("Valuation includes a penalty for %s accident history. "+
		"Severe structural damage or poor repair quality can push real-world prices further down.", accidentHistory)
}
