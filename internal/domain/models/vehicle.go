package models

// Enumerations accepted for categorical vehicle attributes.
var (
	Makes         = []string{"Toyota", "Honda", "BMW", "Maruti", "Hyundai", "Volkswagen", "Lexus", "Ford", "Chevrolet", "Nissan"}
	Transmissions = []string{"Automatic", "Manual", "CVT"}
	FuelTypes     = []string{"Gasoline", "Diesel", "Electric", "Hybrid"}
	Drivetrains   = []string{"FWD", "RWD", "AWD", "4WD"}
	Conditions    = []string{"Excellent", "Good", "Fair"}
	Accidents     = []string{"None", "Minor", "Major"}
	SellerTypes   = []string{"Dealer", "Private"}
	BodyTypes     = []string{"Sedan", "SUV", "Hatchback", "Coupe", "Truck", "Van"}
)

const (
	ConditionExcellent = "Excellent"
	ConditionGood      = "Good"
	ConditionFair      = "Fair"

	AccidentNone  = "None"
	AccidentMinor = "Minor"
	AccidentMajor = "Major"
)

// MinModelYear is the oldest model year accepted by VehicleInput validation.
const MinModelYear = 1990

// VehicleInput holds the raw attributes collected for one evaluation.
// AccidentHistory may be empty; it is normalized before inference.
type VehicleInput struct {
	Make            string  `json:"make" validate:"required,oneof=Toyota Honda BMW Maruti Hyundai Volkswagen Lexus Ford Chevrolet Nissan"`
	Model           string  `json:"model" validate:"required,max=64"`
	Year            int     `json:"year" validate:"gte=1990,lte=2100"`
	Mileage         int     `json:"mileage" validate:"gte=0,lte=300000"`
	EngineHP        int     `json:"engine_hp" validate:"gte=50,lte=1000"`
	Transmission    string  `json:"transmission" validate:"required,oneof=Automatic Manual CVT"`
	FuelType        string  `json:"fuel_type" validate:"required,oneof=Gasoline Diesel Electric Hybrid"`
	Drivetrain      string  `json:"drivetrain" validate:"required,oneof=FWD RWD AWD 4WD"`
	Condition       string  `json:"condition" validate:"required,oneof=Excellent Good Fair"`
	AccidentHistory string  `json:"accident_history,omitempty" validate:"omitempty,oneof=None Minor Major"`
	SellerType      string  `json:"seller_type" validate:"required,oneof=Dealer Private"`
	Trim            string  `json:"trim" validate:"required,max=64"`
	BodyType        string  `json:"body_type" validate:"required,oneof=Sedan SUV Hatchback Coupe Truck Van"`
	OwnerCount      int     `json:"owner_count" validate:"gte=1,lte=6"`
	ExteriorColor   string  `json:"exterior_color" default:"Black"`
	InteriorColor   string  `json:"interior_color" default:"Black"`
	BrandPopularity float64 `json:"brand_popularity" default:"0.5" validate:"gte=0,lte=1"`
}

// Accident returns the accident history with the "None" default applied.
func (v VehicleInput) Accident() string {
	if v.AccidentHistory == "" {
		return AccidentNone
	}
	return v.AccidentHistory
}
