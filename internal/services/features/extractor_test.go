package features

import (
	"reflect"
	"testing"

	"AutoValue/internal/domain/models"
)

func sampleInput() models.VehicleInput {
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

func TestBuildRecordColumns(t *testing.T) {
	rec := BuildRecord(sampleInput(), 2025)
	want := []string{
		"make", "model", "year", "mileage", "engine_hp", "transmission", "fuel_type",
		"drivetrain", "condition", "accident_history", "seller_type", "trim", "body_type",
		"exterior_color", "interior_color", "owner_count", "brand_popularity",
		"vehicle_age", "mileage_per_year",
	}
	if got := rec.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns mismatch:\n got %v\nwant %v", got, want)
	}
	if rec.Int(ColVehicleAge) != 6 {
		t.Fatalf("expected age 6, got %d", rec.Int(ColVehicleAge))
	}
	if rec.Float(ColMileagePerYear) != 7500 {
		t.Fatalf("expected 7500 mi/yr, got %v", rec.Float(ColMileagePerYear))
	}
}

func TestBuildRecordZeroAgeKeepsMileage(t *testing.T) {
	for _, mileage := range []int{0, 1, 12345, 300000} {
		in := sampleInput()
		in.Year = 2025
		in.Mileage = mileage
		rec := BuildRecord(in, 2025)
		if rec.Int(ColVehicleAge) != 0 {
			t.Fatalf("expected age 0, got %d", rec.Int(ColVehicleAge))
		}
		if rec.Float(ColMileagePerYear) != float64(mileage) {
			t.Fatalf("mileage %d: expected mpy == mileage, got %v", mileage, rec.Float(ColMileagePerYear))
		}
	}
}

func TestBuildRecordFutureYear(t *testing.T) {
	in := sampleInput()
	in.Year = 2027
	in.Mileage = 900
	rec := BuildRecord(in, 2025)
	if rec.Int(ColVehicleAge) != -2 {
		t.Fatalf("expected negative age, got %d", rec.Int(ColVehicleAge))
	}
	if rec.Float(ColMileagePerYear) != 900 {
		t.Fatalf("expected divisor clamp to 1, got %v", rec.Float(ColMileagePerYear))
	}
}

func TestBuildRecordNormalizesAccident(t *testing.T) {
	in := sampleInput()
	in.AccidentHistory = ""
	rec := BuildRecord(in, 2025)
	if got := rec.String(ColAccidentHistory); got != "None" {
		t.Fatalf("expected None, got %q", got)
	}
}

func TestAlignToSchemaWider(t *testing.T) {
	rec := BuildRecord(sampleInput(), 2025)
	schema := models.Schema{"vehicle_age", "service_records", "make", "mileage_per_year", "region_code"}
	out := AlignToSchema(rec, schema)

	if got := out.Columns(); !reflect.DeepEqual(got, []string(schema)) {
		t.Fatalf("expected schema order %v, got %v", schema, got)
	}
	for _, col := range []string{"service_records", "region_code"} {
		v, ok := out.Get(col)
		if !ok || v != 0 {
			t.Fatalf("expected %s zero-filled, got %v (present=%v)", col, v, ok)
		}
	}
	if out.String("make") != "Toyota" {
		t.Fatalf("expected make carried over, got %q", out.String("make"))
	}
}

func TestAlignToSchemaNarrower(t *testing.T) {
	rec := BuildRecord(sampleInput(), 2025)
	out := AlignToSchema(rec, models.Schema{"mileage", "year"})
	if out.Len() != 2 {
		t.Fatalf("expected 2 columns, got %d", out.Len())
	}
	if out.Has("make") {
		t.Fatalf("expected make dropped")
	}
	if !reflect.DeepEqual(out.Values(), []any{45000, 2019}) {
		t.Fatalf("unexpected values %v", out.Values())
	}
}

func TestAlignToSchemaNilIsIdentity(t *testing.T) {
	rec := BuildRecord(sampleInput(), 2025)
	out := AlignToSchema(rec, nil)
	if out != rec {
		t.Fatalf("expected the same record back")
	}
	if !reflect.DeepEqual(out.Columns(), rec.Columns()) {
		t.Fatalf("column set changed")
	}
}

func TestMileagePerYear(t *testing.T) {
	cases := []struct {
		mileage, age int
		want         float64
	}{
		{60000, 4, 15000},
		{10000, 0, 10000},
		{10000, 1, 10000},
		{10000, -3, 10000},
		{0, 5, 0},
	}
	for _, c := range cases {
		if got := MileagePerYear(c.mileage, c.age); got != c.want {
			t.Fatalf("MileagePerYear(%d, %d) = %v, want %v", c.mileage, c.age, got, c.want)
		}
	}
}
