package main

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedGoal rejects goals that cannot be evaluated at all: a target
// date not after the forecast start, or a non-positive target weight. No
// partial computation is attempted.
var ErrMalformedGoal = errors.New("malformed goal")

// Goal is the user's declared target. Supplied once per evaluation and never
// mutated by the engine.
type Goal struct {
	TargetWeightKg float64  `json:"target_weight_kg"`
	TargetDate     DateOnly `json:"target_date"`
	TargetRateKgWk *float64 `json:"target_rate_kg_wk,omitempty"`
}

// GoalEvaluation is the feasibility verdict for one forecast against one goal.
// GapKg preserves sign: positive means the forecast lands above the target.
// DaysToGoal is nil when the trajectory never crosses the target weight.
type GoalEvaluation struct {
	GapKg                  float64 `json:"gap_kg"`
	PredictedWeightAtGoal  float64 `json:"predicted_weight_at_goal_kg"`
	DaysToGoal             *int    `json:"days_to_goal"`
	TimingDriftDays        *int    `json:"timing_drift_days"` // positive = late
	OnPace                 bool    `json:"on_pace"`
	RequiredRateKgWk       float64 `json:"required_rate_kg_wk"` // positive = loss needed
	RateExceedsSafe        bool    `json:"rate_exceeds_safe"`
	RecommendedCalorieAdj  float64 `json:"recommended_calorie_adjustment_kcal"`  // kcal/day, negative = eat less
	RecommendedActivityAdj float64 `json:"recommended_activity_adjustment_kcal"` // kcal/day of extra activity
	Infeasible             bool    `json:"infeasible"`
	LowConfidence          bool    `json:"low_confidence"`
}

// GoalEvaluator maps a forecast trajectory and a Goal onto a feasibility
// result. It carries the same config and profile as the simulator so that
// past-horizon extrapolation reuses the energy model with the run's terminal
// adaptation factors instead of drawing a fresh straight line.
type GoalEvaluator struct {
	cfg     SimConfig
	safety  SafetyConfig
	profile simProfile
}

func newGoalEvaluator(cfg SimConfig, safety SafetyConfig, profile simProfile) *GoalEvaluator {
	return &GoalEvaluator{cfg: cfg, safety: safety, profile: profile}
}

// Evaluate compares the forecast in res against the goal.
//
// startDate and startWeightKg describe the forecast's day-zero baseline; plan
// is the same daily plan the simulation ran with, needed for the backward
// calorie solve. res should come from a dense horizon — with sparse points
// the crossing day is resolved only to the retained offsets.
func (e *GoalEvaluator) Evaluate(res SimResult, startDate time.Time, startWeightKg float64, plan Plan, goal Goal) (GoalEvaluation, error) {
	goalDay := daysBetween(startDate, goal.TargetDate.Time)
	if goalDay < 1 {
		return GoalEvaluation{}, fmt.Errorf("%w: target date must be after the forecast start", ErrMalformedGoal)
	}
	if goal.TargetWeightKg <= 0 {
		return GoalEvaluation{}, fmt.Errorf("%w: target weight must be positive", ErrMalformedGoal)
	}
	if goalDay > e.cfg.MaxHorizonDays {
		return GoalEvaluation{}, fmt.Errorf("%w: target date is %d days out, beyond the %d-day maximum", ErrInvalidHorizon, goalDay, e.cfg.MaxHorizonDays)
	}
	if len(res.Points) == 0 {
		return GoalEvaluation{}, fmt.Errorf("%w: forecast contains no points", ErrMalformedGoal)
	}

	ev := GoalEvaluation{}
	aimingDown := goal.TargetWeightKg < startWeightKg

	// Crossing day within the simulated points.
	for _, p := range res.Points {
		if crossed(aimingDown, p.WeightKg, goal.TargetWeightKg) {
			d := p.Day
			ev.DaysToGoal = &d
			break
		}
	}

	lastPoint := res.Points[len(res.Points)-1]
	predicted := lastPoint.WeightKg
	switch {
	case goalDay <= lastPoint.Day:
		predicted = weightAtDay(res.Points, goalDay)
	case res.FloorReached:
		// Simulation already truncated below the viable floor; projecting
		// further would be meaningless. Keep the last valid weight.
		ev.LowConfidence = true
	default:
		// Goal date beyond the simulated horizon: continue the energy-balance
		// iteration with the terminal adaptation factors held constant.
		w, crossDay, err := e.extrapolate(res.Final, startDate, plan, lastPoint.Day, goalDay, goal.TargetWeightKg, aimingDown)
		if err != nil {
			return GoalEvaluation{}, err
		}
		predicted = w
		if ev.DaysToGoal == nil && crossDay > 0 {
			ev.DaysToGoal = &crossDay
		}
		ev.LowConfidence = true
	}

	ev.PredictedWeightAtGoal = round2(predicted)
	ev.GapKg = round2(predicted - goal.TargetWeightKg)
	ev.OnPace = math.Abs(ev.GapKg) <= e.safety.OnPaceToleranceKg
	if ev.DaysToGoal != nil {
		drift := *ev.DaysToGoal - goalDay
		ev.TimingDriftDays = &drift
	}

	// Required pace for the remaining horizon, checked against the safe-rate
	// ceiling. The ceiling is a fraction of current body weight per week so
	// the same config is sane across body sizes.
	ev.RequiredRateKgWk = (startWeightKg - goal.TargetWeightKg) / (float64(goalDay) / 7)
	safeRate := e.safety.SafeWeeklyLossPctBW * startWeightKg
	if ev.RequiredRateKgWk > safeRate {
		ev.RateExceedsSafe = true
	}
	if goal.TargetRateKgWk != nil && *goal.TargetRateKgWk > safeRate {
		ev.RateExceedsSafe = true
	}

	e.recommendAdjustments(&ev, plan, goalDay)
	return ev, nil
}

// recommendAdjustments solves the net-balance equation backward for the daily
// caloric delta needed to close GapKg over the remaining days, then bounds it:
// intake never drops below the safe floor, and the activity top-up is capped.
// When the bounded levers cannot close the gap, the evaluation reports
// infeasibility instead of an unsafe number.
func (e *GoalEvaluator) recommendAdjustments(ev *GoalEvaluation, plan Plan, goalDay int) {
	if ev.OnPace {
		return
	}
	neededDailyKcal := ev.GapKg * e.cfg.EnergyDensityKcalPerKg / float64(goalDay)

	if ev.GapKg < 0 {
		// Below goal: close the gap by eating more. No safety floor applies
		// on the surplus side.
		ev.RecommendedCalorieAdj = math.Round(-neededDailyKcal)
		return
	}

	// Above goal: first cut intake down to (not past) the safe floor, then
	// add activity up to the configured cap.
	maxCut := plan.IntakeKcal - e.safety.SafeMinCaloriesKcal
	if maxCut < 0 {
		maxCut = 0
	}
	cut := math.Min(neededDailyKcal, maxCut)
	remaining := neededDailyKcal - cut
	activity := math.Min(remaining, e.safety.MaxActivityIncreaseKcal)
	if remaining-activity > 1 { // >1 kcal/day shortfall after both levers
		ev.Infeasible = true
		return
	}
	ev.RecommendedCalorieAdj = -math.Round(cut)
	ev.RecommendedActivityAdj = math.Round(activity)
}

// extrapolate continues the daily energy-balance iteration from the terminal
// state with adaptation factors frozen, from day fromDay+1 through goalDay.
// Returns the weight at goalDay and the crossing day (0 if never crossed).
func (e *GoalEvaluator) extrapolate(final MetabolicState, startDate time.Time, plan Plan, fromDay, goalDay int, targetKg float64, aimingDown bool) (float64, int, error) {
	st := final
	crossDay := 0
	for day := fromDay + 1; day <= goalDay; day++ {
		age := ageYearsAt(e.profile.DateOfBirth, startDate.AddDate(0, 0, day))
		var lean *float64
		if e.profile.BodyFatPct != nil {
			l := st.WeightKg * (1 - *e.profile.BodyFatPct)
			lean = &l
		}
		rmr, err := restingMetabolicRate(st.WeightKg, lean, e.profile.Sex, age, e.profile.HeightCM)
		if err != nil {
			return 0, 0, err
		}
		tdee := e.cfg.totalExpenditure(rmr, plan.ActiveKcal, plan.IntakeKcal, st.NEATFactor, st.TEFFactor, st.EfficiencyFactor)
		st.WeightKg += e.cfg.weightDeltaKg(plan.IntakeKcal - tdee)
		if st.WeightKg < e.cfg.MinViableWeightKg {
			break
		}
		if crossDay == 0 && crossed(aimingDown, st.WeightKg, targetKg) {
			crossDay = day
		}
	}
	return st.WeightKg, crossDay, nil
}

// weightAtDay reads the forecast weight at the given day, interpolating
// linearly between retained points when the horizon was sparse.
func weightAtDay(points []ForecastPoint, day int) float64 {
	prev := points[0]
	for _, p := range points {
		if p.Day == day {
			return p.WeightKg
		}
		if p.Day > day {
			span := float64(p.Day - prev.Day)
			if span == 0 {
				return p.WeightKg
			}
			frac := float64(day-prev.Day) / span
			return prev.WeightKg + (p.WeightKg-prev.WeightKg)*frac
		}
		prev = p
	}
	return points[len(points)-1].WeightKg
}

func crossed(aimingDown bool, weightKg, targetKg float64) bool {
	if aimingDown {
		return weightKg <= targetKg
	}
	return weightKg >= targetKg
}

// daysBetween truncates both times to dates and returns b − a in whole days.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
