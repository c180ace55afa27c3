package main

import (
	"os"
	"strconv"
)

// SimConfig holds the tunable parameters of the physiological simulation.
// All values are explicit so a forecast run is reproducible from the config
// alone — nothing reads ambient globals.
type SimConfig struct {
	EnergyDensityKcalPerKg float64 // kcal per kg of body mass (~7700)
	MinViableWeightKg      float64 // simulation halts below this weight
	MaxHorizonDays         int     // hard bound on forecast length
	TEFBaseFraction        float64 // fraction of intake burned by digestion at baseline

	// Adaptation floors. Deficit floors bound how far each factor can fall
	// under sustained caloric deficit; surplus floors bound the (tighter)
	// gain-efficiency suppression under sustained surplus.
	NEATFloorDeficit       float64
	NEATFloorSurplus       float64
	TEFFloorDeficit        float64
	TEFFloorSurplus        float64
	EfficiencyFloorDeficit float64
	EfficiencyFloorSurplus float64

	// Decay shape: AdaptKcalScale is the cumulative imbalance (kcal) at which
	// adaptation reaches ~63% of its full range; AdaptRampDays is the time
	// constant for the effect ramping in.
	AdaptKcalScale float64
	AdaptRampDays  float64
}

// SafetyConfig holds the watchdog and goal-evaluation thresholds.
// Units are documented per field; defaults mirror the published safety
// guidance the rule set encodes.
type SafetyConfig struct {
	SafeMinCaloriesKcal     float64 // kcal/day intake floor
	MaxWeeklyLossKg         float64 // kg/week, positive magnitude
	MaxWeeklyGainKg         float64 // kg/week, positive magnitude
	MinPlausibleRMRKcal     float64 // kcal/day physiological RMR floor
	AdaptationCeilingPct    float64 // fraction (0.08 = 8% RMR drop) before flagging
	StalenessWindowDays     int     // days without data before predictions are stale
	GoalToleranceDays       int     // acceptable early/late window around the goal date
	OnPaceToleranceKg       float64 // |gap| within which the goal counts as met
	SafeWeeklyLossPctBW     float64 // max loss rate as fraction of body weight per week
	MismatchDeficitKcal     float64 // sustained daily deficit that should show on the scale
	MaxActivityIncreaseKcal float64 // kcal/day of extra activity we will ever recommend
}

func defaultSimConfig() SimConfig {
	return SimConfig{
		EnergyDensityKcalPerKg: 7700,
		MinViableWeightKg:      30,
		MaxHorizonDays:         730,
		TEFBaseFraction:        0.10,
		NEATFloorDeficit:       0.80,
		NEATFloorSurplus:       0.90,
		TEFFloorDeficit:        0.90,
		TEFFloorSurplus:        0.95,
		EfficiencyFloorDeficit: 0.85,
		EfficiencyFloorSurplus: 0.92,
		AdaptKcalScale:         40000,
		AdaptRampDays:          14,
	}
}

func defaultSafetyConfig() SafetyConfig {
	return SafetyConfig{
		SafeMinCaloriesKcal:     1200,
		MaxWeeklyLossKg:         2.0,
		MaxWeeklyGainKg:         2.0,
		MinPlausibleRMRKcal:     1000,
		AdaptationCeilingPct:    0.08,
		StalenessWindowDays:     7,
		GoalToleranceDays:       14,
		OnPaceToleranceKg:       0.5,
		SafeWeeklyLossPctBW:     0.01,
		MismatchDeficitKcal:     500,
		MaxActivityIncreaseKcal: 500,
	}
}

// envFloat returns the env var parsed as float64, or fallback when unset or
// unparseable. Bad values are ignored rather than fatal — defaults are safe.
func envFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return fallback
}

// loadSimConfig builds a SimConfig from env overrides on top of defaults.
func loadSimConfig() SimConfig {
	c := defaultSimConfig()
	c.EnergyDensityKcalPerKg = envFloat("ENERGY_DENSITY_KCAL_PER_KG", c.EnergyDensityKcalPerKg)
	c.MinViableWeightKg = envFloat("MIN_VIABLE_WEIGHT_KG", c.MinViableWeightKg)
	c.MaxHorizonDays = envInt("MAX_HORIZON_DAYS", c.MaxHorizonDays)
	return c
}

// loadSafetyConfig builds a SafetyConfig from env overrides on top of defaults.
func loadSafetyConfig() SafetyConfig {
	c := defaultSafetyConfig()
	c.SafeMinCaloriesKcal = envFloat("SAFE_MIN_CALORIES", c.SafeMinCaloriesKcal)
	c.MaxWeeklyLossKg = envFloat("SAFE_MAX_WEEKLY_LOSS_KG", c.MaxWeeklyLossKg)
	c.MaxWeeklyGainKg = envFloat("SAFE_MAX_WEEKLY_GAIN_KG", c.MaxWeeklyGainKg)
	c.MinPlausibleRMRKcal = envFloat("RMR_FLOOR_KCAL", c.MinPlausibleRMRKcal)
	c.AdaptationCeilingPct = envFloat("ADAPTATION_CEILING_PCT", c.AdaptationCeilingPct)
	c.StalenessWindowDays = envInt("STALENESS_WINDOW_DAYS", c.StalenessWindowDays)
	c.GoalToleranceDays = envInt("GOAL_TOLERANCE_DAYS", c.GoalToleranceDays)
	return c
}
