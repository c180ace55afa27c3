package main

import (
	"math"
	"testing"
	"time"
)

/* ─── RMR formula tests ──────────────────────────────────────────────── */

// TestRestingMetabolicRate_MaleMifflin verifies the male Mifflin-St Jeor
// formula with exact inputs.
//
// Inputs: 80kg, 180cm, age 30, male.
// Expected: 10*80 + 6.25*180 - 5*30 + 5 = 800 + 1125 - 150 + 5 = 1780.
func TestRestingMetabolicRate_MaleMifflin(t *testing.T) {
	rmr, err := restingMetabolicRate(80, nil, "male", 30, 180)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(rmr-1780) > 0.001 {
		t.Errorf("male RMR = %f, want 1780", rmr)
	}
}

// TestRestingMetabolicRate_FemaleMifflin verifies the female variant.
//
// Inputs: 65kg, 165cm, age 28, female.
// Expected: 10*65 + 6.25*165 - 5*28 - 161 = 650 + 1031.25 - 140 - 161 = 1380.25.
func TestRestingMetabolicRate_FemaleMifflin(t *testing.T) {
	rmr, err := restingMetabolicRate(65, nil, "female", 28, 165)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(rmr-1380.25) > 0.001 {
		t.Errorf("female RMR = %f, want 1380.25", rmr)
	}
}

// TestRestingMetabolicRate_KatchMcArdle verifies that a known lean mass
// switches to the composition formula: 370 + 21.6*60 = 1666.
func TestRestingMetabolicRate_KatchMcArdle(t *testing.T) {
	lean := 60.0
	rmr, err := restingMetabolicRate(80, &lean, "male", 30, 180)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(rmr-1666) > 0.001 {
		t.Errorf("Katch-McArdle RMR = %f, want 1666", rmr)
	}
}

// TestRestingMetabolicRate_InvalidInputs verifies that every implausible
// input combination returns ErrInsufficientProfile rather than a number.
func TestRestingMetabolicRate_InvalidInputs(t *testing.T) {
	negLean := -5.0
	tooMuchLean := 90.0
	cases := []struct {
		name     string
		weightKg float64
		leanKg   *float64
		sex      string
		age      float64
		heightCM float64
	}{
		{"zero weight", 0, nil, "male", 30, 180},
		{"negative age", 80, nil, "male", -1, 180},
		{"age over 130", 80, nil, "male", 131, 180},
		{"zero height", 80, nil, "male", 30, 0},
		{"unknown sex", 80, nil, "other", 30, 180},
		{"negative lean mass", 80, &negLean, "male", 30, 180},
		{"lean mass above body weight", 80, &tooMuchLean, "male", 30, 180},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := restingMetabolicRate(tc.weightKg, tc.leanKg, tc.sex, tc.age, tc.heightCM)
			if err == nil {
				t.Error("expected ErrInsufficientProfile, got nil")
			}
		})
	}
}

// TestAgeYearsAt verifies fractional-year age computation against a known span.
func TestAgeYearsAt(t *testing.T) {
	dob := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	on := time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)
	age := ageYearsAt(dob, on)
	if math.Abs(age-30) > 0.05 {
		t.Errorf("age = %f, want ~30", age)
	}
}

/* ─── Adaptation factor tests ────────────────────────────────────────── */

// TestAdaptationFactor_NoImbalance verifies that a zero cumulative imbalance
// yields exactly 1.0 for every adaptation kind regardless of elapsed days.
func TestAdaptationFactor_NoImbalance(t *testing.T) {
	cfg := defaultSimConfig()
	for _, kind := range []adaptationKind{adaptNEAT, adaptTEF, adaptEfficiency} {
		for _, days := range []int{0, 1, 30, 365} {
			if f := cfg.adaptationFactor(kind, 0, days); f != 1.0 {
				t.Errorf("kind %d, days %d: factor = %f, want exactly 1.0", kind, days, f)
			}
		}
	}
}

// TestAdaptationFactor_MonotoneInImbalance verifies the factor never
// increases as the cumulative deficit deepens.
func TestAdaptationFactor_MonotoneInImbalance(t *testing.T) {
	cfg := defaultSimConfig()
	prev := 1.0
	for _, cum := range []float64{-1000, -5000, -20000, -50000, -100000, -500000} {
		f := cfg.adaptationFactor(adaptNEAT, cum, 30)
		if f > prev {
			t.Errorf("factor rose from %f to %f as deficit deepened to %f", prev, f, cum)
		}
		prev = f
	}
}

// TestAdaptationFactor_MonotoneInDays verifies the factor never increases as
// more days elapse at a fixed imbalance.
func TestAdaptationFactor_MonotoneInDays(t *testing.T) {
	cfg := defaultSimConfig()
	prev := 1.0
	for _, days := range []int{1, 7, 14, 30, 90, 365} {
		f := cfg.adaptationFactor(adaptTEF, -50000, days)
		if f > prev {
			t.Errorf("factor rose from %f to %f at day %d", prev, f, days)
		}
		prev = f
	}
}

// TestAdaptationFactor_NeverCrossesFloor verifies the factor stays strictly
// above its configured floor even under an extreme sustained deficit.
func TestAdaptationFactor_NeverCrossesFloor(t *testing.T) {
	cfg := defaultSimConfig()
	cases := []struct {
		kind  adaptationKind
		floor float64
	}{
		{adaptNEAT, cfg.NEATFloorDeficit},
		{adaptTEF, cfg.TEFFloorDeficit},
		{adaptEfficiency, cfg.EfficiencyFloorDeficit},
	}
	for _, tc := range cases {
		f := cfg.adaptationFactor(tc.kind, -10_000_000, 730)
		if f < tc.floor {
			t.Errorf("kind %d: factor %f crossed floor %f", tc.kind, f, tc.floor)
		}
		if f > 1.0 {
			t.Errorf("kind %d: factor %f above 1.0", tc.kind, f)
		}
	}
}

// TestAdaptationFactor_SurplusUsesSurplusFloor verifies the surplus side of
// the curve bounds at the surplus floor, which sits above the deficit floor.
func TestAdaptationFactor_SurplusUsesSurplusFloor(t *testing.T) {
	cfg := defaultSimConfig()
	f := cfg.adaptationFactor(adaptNEAT, 10_000_000, 730)
	if f < cfg.NEATFloorSurplus {
		t.Errorf("surplus factor %f crossed surplus floor %f", f, cfg.NEATFloorSurplus)
	}
	deficitF := cfg.adaptationFactor(adaptNEAT, -10_000_000, 730)
	if deficitF >= f {
		t.Errorf("deficit factor %f should bottom out below surplus factor %f", deficitF, f)
	}
}

/* ─── Expenditure and mass conversion tests ──────────────────────────── */

// TestTotalExpenditure_Baseline verifies the TDEE composition at factors of
// 1.0: rmr + active + 10% of intake.
func TestTotalExpenditure_Baseline(t *testing.T) {
	cfg := defaultSimConfig()
	tdee := cfg.totalExpenditure(1700, 300, 2000, 1.0, 1.0, 1.0)
	want := 1700 + 300 + 200.0
	if math.Abs(tdee-want) > 0.001 {
		t.Errorf("TDEE = %f, want %f", tdee, want)
	}
}

// TestTotalExpenditure_AdaptedFactorsReduce verifies every adaptation factor
// below 1.0 lowers expenditure.
func TestTotalExpenditure_AdaptedFactorsReduce(t *testing.T) {
	cfg := defaultSimConfig()
	base := cfg.totalExpenditure(1700, 300, 2000, 1.0, 1.0, 1.0)
	adapted := cfg.totalExpenditure(1700, 300, 2000, 0.85, 0.92, 0.88)
	if adapted >= base {
		t.Errorf("adapted TDEE %f not below baseline %f", adapted, base)
	}
}

// TestWeightDeltaKg verifies the kcal-to-kg conversion in both directions.
func TestWeightDeltaKg(t *testing.T) {
	cfg := defaultSimConfig()
	if d := cfg.weightDeltaKg(-7700); math.Abs(d-(-1.0)) > 1e-9 {
		t.Errorf("deficit of 7700 kcal = %f kg, want -1.0", d)
	}
	if d := cfg.weightDeltaKg(3850); math.Abs(d-0.5) > 1e-9 {
		t.Errorf("surplus of 3850 kcal = %f kg, want 0.5", d)
	}
}
