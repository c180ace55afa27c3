package main

import (
	"errors"
	"math"
	"time"
)

// ErrInsufficientProfile is returned when the anthropometric inputs needed
// for an RMR computation are missing or implausible. It is fatal to a
// forecast — there is no sensible fallback weight trajectory without it.
var ErrInsufficientProfile = errors.New("insufficient profile data for RMR computation")

// adaptationKind selects which metabolic-adaptation curve applies.
type adaptationKind int

const (
	adaptNEAT       adaptationKind = iota // non-exercise activity thermogenesis
	adaptTEF                              // thermic effect of food
	adaptEfficiency                       // exercise efficiency (calories per unit of activity)
)

// ageYearsAt returns age in fractional years at the given date, accurate to
// the day. Fractional age keeps day-by-day RMR continuous instead of stepping
// once a year on the birthday.
func ageYearsAt(dob, on time.Time) float64 {
	return on.Sub(dob).Hours() / 24 / 365.25
}

// restingMetabolicRate computes RMR in kcal/day.
//
// When lean mass is known, Katch-McArdle (370 + 21.6·leanKg) is used — it
// tracks body-composition changes, which matters over a long simulation where
// fat and lean mass diverge. Otherwise Mifflin-St Jeor
// (10·kg + 6.25·cm − 5·age ± sex constant).
//
// Returns ErrInsufficientProfile when sex is unrecognised, any required input
// is non-positive, or age is implausible. The result is clamped at zero from
// below.
func restingMetabolicRate(weightKg float64, leanMassKg *float64, sex string, ageYears, heightCM float64) (float64, error) {
	if weightKg <= 0 || ageYears < 0 || ageYears > 130 {
		return 0, ErrInsufficientProfile
	}

	if leanMassKg != nil {
		if *leanMassKg <= 0 || *leanMassKg > weightKg {
			return 0, ErrInsufficientProfile
		}
		return math.Max(370+21.6**leanMassKg, 0), nil
	}

	if heightCM <= 0 {
		return 0, ErrInsufficientProfile
	}
	rmr := 10*weightKg + 6.25*heightCM - 5*ageYears
	switch sex {
	case "male":
		rmr += 5
	case "female":
		rmr -= 161
	default:
		return 0, ErrInsufficientProfile
	}
	return math.Max(rmr, 0), nil
}

// adaptationFloor returns the configured floor for a kind given the sign of
// the cumulative imbalance (negative = deficit).
func (c SimConfig) adaptationFloor(kind adaptationKind, cumulativeKcal float64) float64 {
	deficit := cumulativeKcal < 0
	switch kind {
	case adaptNEAT:
		if deficit {
			return c.NEATFloorDeficit
		}
		return c.NEATFloorSurplus
	case adaptTEF:
		if deficit {
			return c.TEFFloorDeficit
		}
		return c.TEFFloorSurplus
	default:
		if deficit {
			return c.EfficiencyFloorDeficit
		}
		return c.EfficiencyFloorSurplus
	}
}

// adaptationFactor returns the multiplier in (floor, 1.0] for the given kind
// after cumulativeKcal of net imbalance over daysElapsed days.
//
// The curve is floor + (1−floor)·exp(−effective/scale) where
// effective = |cumulative| · (1 − exp(−days/ramp)): the time term ramps the
// effect in so a single extreme day does not produce instant full adaptation,
// and a zero imbalance always yields exactly 1.0. Continuous and
// non-increasing in |cumulativeKcal| and in daysElapsed; asymptotically
// approaches the floor without crossing it.
func (c SimConfig) adaptationFactor(kind adaptationKind, cumulativeKcal float64, daysElapsed int) float64 {
	floor := c.adaptationFloor(kind, cumulativeKcal)
	if cumulativeKcal == 0 || daysElapsed <= 0 {
		return 1.0
	}
	ramp := 1 - math.Exp(-float64(daysElapsed)/c.AdaptRampDays)
	effective := math.Abs(cumulativeKcal) * ramp
	return floor + (1-floor)*math.Exp(-effective/c.AdaptKcalScale)
}

// totalExpenditure computes TDEE in kcal/day: adaptation-scaled RMR, plus
// measured active energy discounted by exercise efficiency, plus the thermic
// cost of digesting today's intake scaled by the TEF factor. NEAT is modeled
// as part of the RMR multiplier rather than a separate channel because the
// input data cannot distinguish it from resting burn.
func (c SimConfig) totalExpenditure(rmrKcal, activeKcal, intakeKcal float64, neat, tef, efficiency float64) float64 {
	return rmrKcal*neat + activeKcal*efficiency + intakeKcal*c.TEFBaseFraction*tef
}

// weightDeltaKg converts a net caloric balance (kcal, positive = surplus)
// into an expected mass change using the configured energy density. Callers
// apply this per simulated day — long-horizon linear extrapolation from a
// single day's balance is exactly what the adaptive loop exists to avoid.
func (c SimConfig) weightDeltaKg(netKcal float64) float64 {
	return netKcal / c.EnergyDensityKcalPerKg
}
