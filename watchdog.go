package main

import (
	"fmt"
	"math"
	"strings"
)

// Compliance classifies the user's weekly trajectory relative to their goal
// and the safety thresholds.
type Compliance string

const (
	ComplianceOnTrack  Compliance = "on_track"
	ComplianceAtRisk   Compliance = "at_risk"
	ComplianceOffTrack Compliance = "off_track"
)

// Severity splits rules into those that force an off-track verdict and those
// that only warn.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityAdvisory Severity = "advisory"
)

// Flag codes emitted by the rule set.
const (
	FlagUnsafeIntake    = "UnsafeIntake"
	FlagRapidWeightLoss = "RapidWeightLoss"
	FlagRapidWeightGain = "RapidWeightGain"
	FlagLowRMR          = "LowRMR"
	FlagMetabolicAdapt  = "MetabolicAdapt"
	FlagGoalNotReached  = "GoalNotReached"
	FlagGoalTimingDrift = "GoalTimingDrift"
	FlagMismatchDeficit = "MismatchDeficit"
	FlagStaleData       = "StaleData"
)

// Rule is one Horn clause: when the antecedent holds over the fact set, the
// flag code and severity are asserted. Rules are independent — no rule's
// consequent feeds another's antecedent, so a single forward pass suffices.
type Rule struct {
	Code     string
	Severity Severity
	// When returns whether the rule fires plus a human-readable reason.
	// Absent facts must return false, never panic.
	When func(f FactSet) (bool, string)
}

// Verdict is the watchdog's authoritative output for one evaluation.
// Immutable once produced; evaluating the same facts twice yields the same
// verdict because the engine holds no state between calls.
type Verdict struct {
	Compliance Compliance `json:"compliance"`
	Triggered  []string   `json:"triggered"`
	Rationale  string     `json:"rationale"`
}

// RuleSet is the process-wide rule configuration: built once from a
// SafetyConfig, read-only afterwards, safe for concurrent evaluations.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet builds the canonical rule list with the thresholds baked in as
// closures. Order is evaluation order; output is the union of everything
// that fires, never a first-match short circuit.
func NewRuleSet(cfg SafetyConfig) *RuleSet {
	return &RuleSet{rules: []Rule{
		{
			Code: FlagUnsafeIntake, Severity: SeverityCritical,
			When: func(f FactSet) (bool, string) {
				v, ok := f.get(factMinDailyKcal)
				if !ok || v >= cfg.SafeMinCaloriesKcal {
					return false, ""
				}
				return true, fmt.Sprintf("daily intake %.0f kcal below safety floor %.0f kcal", v, cfg.SafeMinCaloriesKcal)
			},
		},
		{
			Code: FlagRapidWeightLoss, Severity: SeverityCritical,
			When: func(f FactSet) (bool, string) {
				v, ok := f.get(factWeeklyWeightDelta)
				if !ok || v >= -cfg.MaxWeeklyLossKg {
					return false, ""
				}
				return true, fmt.Sprintf("losing %.2f kg/week, beyond the %.1f kg/week limit", -v, cfg.MaxWeeklyLossKg)
			},
		},
		{
			Code: FlagRapidWeightGain, Severity: SeverityCritical,
			When: func(f FactSet) (bool, string) {
				v, ok := f.get(factWeeklyWeightDelta)
				if !ok || v <= cfg.MaxWeeklyGainKg {
					return false, ""
				}
				return true, fmt.Sprintf("gaining %.2f kg/week, beyond the %.1f kg/week limit", v, cfg.MaxWeeklyGainKg)
			},
		},
		{
			Code: FlagLowRMR, Severity: SeverityCritical,
			When: func(f FactSet) (bool, string) {
				v, ok := f.get(factRMRKcal)
				if !ok || v >= cfg.MinPlausibleRMRKcal {
					return false, ""
				}
				return true, fmt.Sprintf("estimated RMR %.0f kcal/day below the plausible floor %.0f", v, cfg.MinPlausibleRMRKcal)
			},
		},
		{
			Code: FlagMetabolicAdapt, Severity: SeverityAdvisory,
			When: func(f FactSet) (bool, string) {
				v, ok := f.get(factAdaptationPct)
				if !ok || v <= cfg.AdaptationCeilingPct {
					return false, ""
				}
				return true, fmt.Sprintf("metabolic adaptation at %.1f%% — expect a plateau", v*100)
			},
		},
		{
			Code: FlagGoalNotReached, Severity: SeverityAdvisory,
			When: func(f FactSet) (bool, string) {
				reached, ok := f.get(factGoalReached)
				if !ok || reached != 0 {
					return false, ""
				}
				gap, _ := f.get(factGoalGapKg)
				return true, fmt.Sprintf("forecast never reaches the target weight (gap %.1f kg at goal date)", gap)
			},
		},
		{
			Code: FlagGoalTimingDrift, Severity: SeverityAdvisory,
			When: func(f FactSet) (bool, string) {
				if drift, ok := f.get(factGoalDriftDays); ok && math.Abs(drift) > float64(cfg.GoalToleranceDays) {
					when := "late"
					if drift < 0 {
						when = "early"
					}
					return true, fmt.Sprintf("goal reached %.0f days %s", math.Abs(drift), when)
				}
				req, ok1 := f.get(factRequiredRateKgWk)
				safe, ok2 := f.get(factSafeRateKgWk)
				if ok1 && ok2 && req > safe {
					return true, fmt.Sprintf("required pace %.2f kg/week exceeds the safe ceiling %.2f kg/week", req, safe)
				}
				return false, ""
			},
		},
		{
			Code: FlagMismatchDeficit, Severity: SeverityAdvisory,
			When: func(f FactSet) (bool, string) {
				net, ok1 := f.get(factMeanNetKcal)
				delta, ok2 := f.get(factWeeklyWeightDelta)
				if !ok1 || !ok2 || net >= -cfg.MismatchDeficitKcal || delta <= 0 {
					return false, ""
				}
				return true, fmt.Sprintf("sustained deficit of %.0f kcal/day but weight rose %.2f kg — possible logging error or water retention", -net, delta)
			},
		},
		{
			Code: FlagStaleData, Severity: SeverityAdvisory,
			When: func(f FactSet) (bool, string) {
				v, ok := f.get(factDataAgeDays)
				if !ok || v <= float64(cfg.StalenessWindowDays) {
					return false, ""
				}
				return true, fmt.Sprintf("no new records for %.0f days — predictions may be stale", v)
			},
		},
	}}
}

// Evaluate runs a single forward pass over every rule and aggregates:
// any critical trigger forces OFF_TRACK regardless of the baseline; advisory
// triggers yield AT_RISK unless the baseline already says OFF_TRACK (a
// verdict is never downgraded); no triggers defers entirely to the baseline
// statistical/goal-based classification. Non-matching rules are a normal
// outcome, never an error.
func (rs *RuleSet) Evaluate(facts FactSet, baseline Compliance) Verdict {
	var triggered []string
	var reasons []string
	critical := false
	for _, r := range rs.rules {
		fired, reason := r.When(facts)
		if !fired {
			continue
		}
		triggered = append(triggered, r.Code)
		reasons = append(reasons, fmt.Sprintf("%s: %s", r.Code, reason))
		if r.Severity == SeverityCritical {
			critical = true
		}
	}

	v := Verdict{Triggered: triggered}
	switch {
	case critical:
		v.Compliance = ComplianceOffTrack
	case len(triggered) > 0:
		v.Compliance = ComplianceAtRisk
		if baseline == ComplianceOffTrack {
			v.Compliance = ComplianceOffTrack
		}
	default:
		v.Compliance = baseline
	}

	if len(reasons) > 0 {
		v.Rationale = strings.Join(reasons, "; ")
	} else {
		v.Rationale = "no safety rules triggered; deferring to the goal-based classification"
	}
	return v
}

// severityOf reports the configured severity of a flag code, for callers
// presenting triggered rules.
func (rs *RuleSet) severityOf(code string) (Severity, bool) {
	for _, r := range rs.rules {
		if r.Code == code {
			return r.Severity, true
		}
	}
	return "", false
}
