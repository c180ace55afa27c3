package main

import (
	"time"
)

// FactSet is the typed name→value input to the watchdog. Facts are rebuilt
// fresh for every evaluation because they depend on a sliding recent-history
// window; nothing here is cached across calls. A rule whose facts are absent
// simply does not fire.
type FactSet map[string]float64

// Canonical fact names. Values are in the unit the name states.
const (
	factMinDailyKcal      = "min_daily_kcal"         // lowest single-day intake, last 7 records
	factMeanDailyKcal     = "mean_daily_kcal"        // mean intake, last 7 records
	factMeanNetKcal       = "mean_net_kcal"          // mean intake minus estimated expenditure, last 7 records
	factWeeklyWeightDelta = "weekly_weight_delta_kg" // last observed weight minus weight 7 records earlier
	factRMRKcal           = "rmr_kcal"               // RMR at the latest observed weight
	factAdaptationPct     = "adaptation_pct"         // relative RMR drop vs window peak, 0..1
	factDataAgeDays       = "data_age_days"          // days since the newest record
	factGoalGapKg         = "goal_gap_kg"            // forecast minus target at goal date
	factGoalReached       = "goal_reached"           // 1 if the trajectory crosses the target
	factGoalDriftDays     = "goal_drift_days"        // crossing day minus goal day, positive = late
	factRequiredRateKgWk  = "required_rate_kg_wk"    // pace needed to hit the goal on time
	factSafeRateKgWk      = "safe_rate_kg_wk"        // safe-rate ceiling for this body weight
)

// factWindow is how many trailing records feed the weekly-style facts,
// mirroring the one-week aggregation the rules reason over.
const factWindow = 7

// factHistoryWindow bounds the RMR-trajectory scan to the most recent twelve
// weeks. A peak from the distant past would overstate adaptation.
const factHistoryWindow = 84

// buildFacts derives the watchdog's fact set from the recent record window,
// the profile, and (when a goal was evaluated) the goal evaluation. Records
// must be sorted ascending by date. Facts that cannot be derived from the
// available data are left out of the set entirely.
func buildFacts(records []dailyRecord, profile simProfile, eval *GoalEvaluation, safeRateKgWk float64, now time.Time) FactSet {
	facts := FactSet{}
	if len(records) == 0 {
		return facts
	}

	facts[factDataAgeDays] = float64(daysBetween(records[len(records)-1].Date.Time, now))

	// Intake over the trailing window.
	start := len(records) - factWindow
	if start < 0 {
		start = 0
	}
	window := records[start:]
	minIn := window[0].CaloriesIn
	var sumIn float64
	for _, r := range window {
		if r.CaloriesIn < minIn {
			minIn = r.CaloriesIn
		}
		sumIn += r.CaloriesIn
	}
	facts[factMinDailyKcal] = minIn
	facts[factMeanDailyKcal] = sumIn / float64(len(window))

	// RMR trajectory over the recent-history window: latest value plus the
	// relative drop against the window peak, which is the adaptation signal.
	histStart := len(records) - factHistoryWindow
	if histStart < 0 {
		histStart = 0
	}
	var rmrPeak, rmrNow float64
	var netSum float64
	var netDays int
	for _, r := range records[histStart:] {
		if r.WeightKg == nil {
			continue
		}
		age := ageYearsAt(profile.DateOfBirth, r.Date.Time)
		rmr, err := restingMetabolicRate(*r.WeightKg, r.LeanMassKg, profile.Sex, age, profile.HeightCM)
		if err != nil {
			continue
		}
		rmrNow = rmr
		if rmr > rmrPeak {
			rmrPeak = rmr
		}
	}
	if rmrNow > 0 {
		facts[factRMRKcal] = rmrNow
		if rmrPeak > 0 {
			facts[factAdaptationPct] = 1 - rmrNow/rmrPeak
		}
		// Net balance over the trailing window, using the current RMR as the
		// resting-burn estimate for each day.
		for _, r := range window {
			netSum += r.CaloriesIn - rmrNow - r.ActiveKcal
			netDays++
		}
		if netDays > 0 {
			facts[factMeanNetKcal] = netSum / float64(netDays)
		}
	}

	// Weekly weight delta: last observed weight minus the first observed
	// weight within the trailing window. Needs two readings.
	var first, last *float64
	for _, r := range window {
		if r.WeightKg == nil {
			continue
		}
		if first == nil {
			first = r.WeightKg
		}
		last = r.WeightKg
	}
	if first != nil && last != nil && first != last {
		facts[factWeeklyWeightDelta] = *last - *first
	}

	if eval != nil {
		facts[factGoalGapKg] = eval.GapKg
		if eval.DaysToGoal != nil {
			facts[factGoalReached] = 1
		} else {
			facts[factGoalReached] = 0
		}
		if eval.TimingDriftDays != nil {
			facts[factGoalDriftDays] = float64(*eval.TimingDriftDays)
		}
		facts[factRequiredRateKgWk] = eval.RequiredRateKgWk
		facts[factSafeRateKgWk] = safeRateKgWk
	}

	return facts
}

// get reports a fact's value and whether it is present. Rules use the second
// return to stay silent when their inputs are missing.
func (f FactSet) get(name string) (float64, bool) {
	v, ok := f[name]
	return v, ok
}
