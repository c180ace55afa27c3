package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"
)

// ErrInvalidHorizon rejects non-positive or excessive forecast horizons
// before any simulation work happens.
var ErrInvalidHorizon = errors.New("invalid forecast horizon")

// simProfile is the anthropometric input the simulator needs per run.
// BodyFatPct, when known, switches RMR to the composition-tracking formula
// and enables fat/lean mass estimates on each forecast point.
type simProfile struct {
	Sex         string
	DateOfBirth time.Time
	HeightCM    float64
	BodyFatPct  *float64 // fraction, e.g. 0.25
}

// Plan is the assumed daily intake and activity going forward. The simulator
// holds it constant; what changes day to day is the body's response to it.
type Plan struct {
	IntakeKcal float64 `json:"intake_kcal"`
	ActiveKcal float64 `json:"active_kcal"`
}

// MetabolicState is the evolving per-run simulation state. Each forecast
// invocation owns its state exclusively; nothing is shared across runs.
type MetabolicState struct {
	WeightKg         float64 `json:"weight_kg"`
	RMRKcal          float64 `json:"rmr_kcal"`
	NEATFactor       float64 `json:"neat_factor"`
	TEFFactor        float64 `json:"tef_factor"`
	EfficiencyFactor float64 `json:"efficiency_factor"`
	CumulativeKcal   float64 `json:"cumulative_kcal"` // net imbalance since baseline, negative = deficit
	DaysElapsed      int     `json:"days_elapsed"`
}

// newMetabolicState returns the baseline state for a forecast starting at the
// given weight: all adaptation factors at 1.0, no accumulated imbalance.
func newMetabolicState(weightKg float64) MetabolicState {
	return MetabolicState{
		WeightKg:         weightKg,
		NEATFactor:       1.0,
		TEFFactor:        1.0,
		EfficiencyFactor: 1.0,
	}
}

// ForecastPoint is one simulated day's output. Points are append-only and
// immutable once emitted. Model fields are populated only when a point
// predictor was available for that day.
type ForecastPoint struct {
	Day           int      `json:"day"` // offset from forecast start, 1-based
	WeightKg      float64  `json:"weight_kg"`
	RMRKcal       float64  `json:"rmr_kcal"`
	FatMassKg     *float64 `json:"fat_mass_kg,omitempty"`
	LeanMassKg    *float64 `json:"lean_mass_kg,omitempty"`
	Confidence    float64  `json:"confidence"`
	ModelWeightKg *float64 `json:"model_weight_kg,omitempty"`
	ModelFitScore *float64 `json:"model_fit_score,omitempty"`
}

/* ─── Horizon ────────────────────────────────────────────────────────── */

// Horizon selects which simulated days appear in the output. A day-count
// horizon retains every day in [1, N]; an offset horizon retains only the
// listed days. Both run the identical per-day loop — the horizon only
// filters what is kept.
type Horizon struct {
	days    int
	offsets []int // sorted ascending when non-nil
}

// HorizonDays builds a dense horizon: one point per day for days 1..n.
func HorizonDays(n int) Horizon {
	return Horizon{days: n}
}

// HorizonOffsets builds a sparse horizon retaining only the given day
// offsets, e.g. 7, 14, 30, 90. Duplicates are collapsed.
func HorizonOffsets(offsets ...int) Horizon {
	out := make([]int, 0, len(offsets))
	seen := map[int]bool{}
	for _, d := range offsets {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return Horizon{offsets: out}
}

// lastDay returns the furthest day the loop must simulate to.
func (h Horizon) lastDay() int {
	if h.offsets != nil {
		if len(h.offsets) == 0 {
			return 0
		}
		return h.offsets[len(h.offsets)-1]
	}
	return h.days
}

// retain reports whether the given day's point belongs in the output.
func (h Horizon) retain(day int) bool {
	if h.offsets == nil {
		return true
	}
	i := sort.SearchInts(h.offsets, day)
	return i < len(h.offsets) && h.offsets[i] == day
}

func (h Horizon) validate(maxDays int) error {
	last := h.lastDay()
	if last < 1 {
		return fmt.Errorf("%w: horizon must include at least day 1", ErrInvalidHorizon)
	}
	if last > maxDays {
		return fmt.Errorf("%w: %d days exceeds maximum of %d", ErrInvalidHorizon, last, maxDays)
	}
	if h.offsets != nil && h.offsets[0] < 1 {
		return fmt.Errorf("%w: day offsets must be >= 1", ErrInvalidHorizon)
	}
	return nil
}

/* ─── Simulator ──────────────────────────────────────────────────────── */

// SimResult bundles the emitted points with the run's outcome. FloorReached
// is the non-fatal truncation signal: the sequence stops at the last
// physiologically valid day instead of projecting into an invalid regime.
type SimResult struct {
	Points       []ForecastPoint `json:"points"`
	FloorReached bool            `json:"floor_reached"`
	Final        MetabolicState  `json:"final_state"`
}

// Simulator drives the day-by-day adaptive projection. The zero predictor is
// valid: the simulation is fully defined without any trained model present.
type Simulator struct {
	cfg       SimConfig
	profile   simProfile
	predictor PointPredictor // optional; nil means pure physiological simulation
}

func newSimulator(cfg SimConfig, profile simProfile, predictor PointPredictor) *Simulator {
	return &Simulator{cfg: cfg, profile: profile, predictor: predictor}
}

// Simulate advances the state one day at a time from startDate and returns
// the points the horizon retains.
//
// The loop is strictly causal: day n's adaptation factors are computed from
// the cumulative imbalance accumulated through day n−1, before that day's
// balance is applied. Truncating the horizon therefore never changes earlier
// points, and sparse horizons yield exactly the dense values at the same
// offsets.
func (s *Simulator) Simulate(ctx context.Context, start MetabolicState, startDate time.Time, plan Plan, horizon Horizon) (SimResult, error) {
	if err := horizon.validate(s.cfg.MaxHorizonDays); err != nil {
		return SimResult{}, err
	}

	st := start
	res := SimResult{Points: make([]ForecastPoint, 0, horizon.lastDay())}
	predictorDown := s.predictor == nil

	for day := 1; day <= horizon.lastDay(); day++ {
		// (1) Today's adaptation factors from the running imbalance so far.
		st.NEATFactor = s.cfg.adaptationFactor(adaptNEAT, st.CumulativeKcal, st.DaysElapsed)
		st.TEFFactor = s.cfg.adaptationFactor(adaptTEF, st.CumulativeKcal, st.DaysElapsed)
		st.EfficiencyFactor = s.cfg.adaptationFactor(adaptEfficiency, st.CumulativeKcal, st.DaysElapsed)

		// (2) Today's RMR, TDEE and net balance.
		age := ageYearsAt(s.profile.DateOfBirth, startDate.AddDate(0, 0, day))
		rmr, err := restingMetabolicRate(st.WeightKg, s.leanMass(st.WeightKg), s.profile.Sex, age, s.profile.HeightCM)
		if err != nil {
			return SimResult{}, err
		}
		st.RMRKcal = rmr
		tdee := s.cfg.totalExpenditure(rmr, plan.ActiveKcal, plan.IntakeKcal, st.NEATFactor, st.TEFFactor, st.EfficiencyFactor)
		net := plan.IntakeKcal - tdee

		// (3)(4) Update weight and cumulative imbalance.
		st.WeightKg += s.cfg.weightDeltaKg(net)
		st.CumulativeKcal += net
		st.DaysElapsed = day

		if st.WeightKg < s.cfg.MinViableWeightKg {
			res.FloorReached = true
			break
		}

		// (5) Emit the point if this day is retained.
		if horizon.retain(day) {
			p := ForecastPoint{
				Day:        day,
				WeightKg:   st.WeightKg,
				RMRKcal:    st.RMRKcal,
				Confidence: 1.0,
			}
			if bf := s.profile.BodyFatPct; bf != nil {
				fat := st.WeightKg * *bf
				lean := st.WeightKg * (1 - *bf)
				p.FatMassKg = &fat
				p.LeanMassKg = &lean
			}
			// Blend in the statistical predictor as a side channel. It never
			// feeds back into the state, so its presence or failure cannot
			// change the physiological trajectory.
			if !predictorDown {
				pred, err := s.predictor.Predict(ctx, "weight", []float64{
					float64(day), start.WeightKg, plan.IntakeKcal, plan.ActiveKcal,
				})
				if err != nil {
					log.Printf("[simulate] predictor unavailable, continuing without model estimates: %v", err)
					predictorDown = true
				} else {
					v, fit := pred.Value, pred.FitScore
					p.ModelWeightKg = &v
					p.ModelFitScore = &fit
				}
			}
			res.Points = append(res.Points, p)
		}

		// (6) The updated state is day+1's starting point.
	}

	res.Final = st
	return res, nil
}

// leanMass derives lean mass from the profile's body-fat fraction, or nil
// when composition is unknown.
func (s *Simulator) leanMass(weightKg float64) *float64 {
	if s.profile.BodyFatPct == nil {
		return nil
	}
	lean := weightKg * (1 - *s.profile.BodyFatPct)
	return &lean
}

// planFromRecords derives the forward plan from the most recent window of
// daily records: mean intake and mean active energy over up to windowDays
// trailing days. Records are assumed sorted ascending by date.
func planFromRecords(records []dailyRecord, windowDays int) Plan {
	if len(records) == 0 {
		return Plan{}
	}
	start := len(records) - windowDays
	if start < 0 {
		start = 0
	}
	window := records[start:]
	var intake, active float64
	for _, r := range window {
		intake += r.CaloriesIn
		active += r.ActiveKcal
	}
	n := float64(len(window))
	return Plan{IntakeKcal: intake / n, ActiveKcal: active / n}
}

// latestWeight walks the records backwards for the most recent scale reading.
// Returns false when the series has no weight at all.
func latestWeight(records []dailyRecord) (float64, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].WeightKg != nil {
			return *records[i].WeightKg, true
		}
	}
	return 0, false
}
