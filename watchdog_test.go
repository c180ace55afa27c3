package main

import (
	"strings"
	"testing"
)

func testRuleSet() *RuleSet {
	return NewRuleSet(defaultSafetyConfig())
}

// hasFlag reports whether a verdict triggered the given code.
func hasFlag(v Verdict, code string) bool {
	for _, c := range v.Triggered {
		if c == code {
			return true
		}
	}
	return false
}

/* ─── Critical rule tests ────────────────────────────────────────────── */

// TestWatchdog_UnsafeIntakeOverridesBaseline verifies that an intake below
// the safety floor forces off_track no matter what the statistical baseline
// says.
func TestWatchdog_UnsafeIntakeOverridesBaseline(t *testing.T) {
	rs := testRuleSet()
	facts := FactSet{factMinDailyKcal: 900}

	for _, baseline := range []Compliance{ComplianceOnTrack, ComplianceAtRisk, ComplianceOffTrack} {
		v := rs.Evaluate(facts, baseline)
		if v.Compliance != ComplianceOffTrack {
			t.Errorf("baseline %s: compliance = %s, want off_track", baseline, v.Compliance)
		}
		if !hasFlag(v, FlagUnsafeIntake) {
			t.Errorf("baseline %s: UnsafeIntake not in triggered list %v", baseline, v.Triggered)
		}
	}
}

// TestWatchdog_RapidLossAndGain verifies the weekly-delta thresholds fire
// only beyond the limit, in the matching direction.
func TestWatchdog_RapidLossAndGain(t *testing.T) {
	rs := testRuleSet()
	cases := []struct {
		name     string
		deltaKg  float64
		wantFlag string
	}{
		{"loss beyond limit", -2.5, FlagRapidWeightLoss},
		{"gain beyond limit", 2.5, FlagRapidWeightGain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := rs.Evaluate(FactSet{factWeeklyWeightDelta: tc.deltaKg}, ComplianceOnTrack)
			if !hasFlag(v, tc.wantFlag) {
				t.Errorf("expected %s for delta %.1f, triggered %v", tc.wantFlag, tc.deltaKg, v.Triggered)
			}
			if v.Compliance != ComplianceOffTrack {
				t.Errorf("compliance = %s, want off_track", v.Compliance)
			}
		})
	}
}

// TestWatchdog_WithinLimitsDefersToBaseline verifies that a loss inside the
// limit fires nothing and the baseline classification passes through.
func TestWatchdog_WithinLimitsDefersToBaseline(t *testing.T) {
	rs := testRuleSet()
	facts := FactSet{
		factWeeklyWeightDelta: -1.0,
		factMinDailyKcal:      1500,
		factRMRKcal:           1650,
		factDataAgeDays:       1,
	}
	v := rs.Evaluate(facts, ComplianceOnTrack)
	if len(v.Triggered) != 0 {
		t.Fatalf("expected no triggers, got %v", v.Triggered)
	}
	if v.Compliance != ComplianceOnTrack {
		t.Errorf("compliance = %s, want the on_track baseline", v.Compliance)
	}
	if !strings.Contains(v.Rationale, "deferring") {
		t.Errorf("rationale should explain the deferral, got %q", v.Rationale)
	}
}

// TestWatchdog_LowRMR verifies the implausible-RMR threshold.
func TestWatchdog_LowRMR(t *testing.T) {
	rs := testRuleSet()
	v := rs.Evaluate(FactSet{factRMRKcal: 950}, ComplianceOnTrack)
	if !hasFlag(v, FlagLowRMR) || v.Compliance != ComplianceOffTrack {
		t.Errorf("RMR 950 should be critical, got %s with %v", v.Compliance, v.Triggered)
	}
}

/* ─── Advisory rule tests ────────────────────────────────────────────── */

// TestWatchdog_AdvisoryYieldsAtRisk verifies a lone advisory trigger raises
// an on_track baseline to at_risk.
func TestWatchdog_AdvisoryYieldsAtRisk(t *testing.T) {
	rs := testRuleSet()
	v := rs.Evaluate(FactSet{factDataAgeDays: 10}, ComplianceOnTrack)
	if !hasFlag(v, FlagStaleData) {
		t.Fatalf("expected StaleData, triggered %v", v.Triggered)
	}
	if v.Compliance != ComplianceAtRisk {
		t.Errorf("compliance = %s, want at_risk", v.Compliance)
	}
}

// TestWatchdog_AdvisoryNeverDowngrades verifies that an advisory trigger on
// an off_track baseline leaves the verdict off_track.
func TestWatchdog_AdvisoryNeverDowngrades(t *testing.T) {
	rs := testRuleSet()
	v := rs.Evaluate(FactSet{factDataAgeDays: 10}, ComplianceOffTrack)
	if v.Compliance != ComplianceOffTrack {
		t.Errorf("compliance = %s, advisory must not downgrade off_track", v.Compliance)
	}
}

// TestWatchdog_MetabolicAdapt fires above the ceiling only.
func TestWatchdog_MetabolicAdapt(t *testing.T) {
	rs := testRuleSet()
	if v := rs.Evaluate(FactSet{factAdaptationPct: 0.10}, ComplianceOnTrack); !hasFlag(v, FlagMetabolicAdapt) {
		t.Errorf("10%% adaptation should fire, triggered %v", v.Triggered)
	}
	if v := rs.Evaluate(FactSet{factAdaptationPct: 0.05}, ComplianceOnTrack); hasFlag(v, FlagMetabolicAdapt) {
		t.Error("5% adaptation should not fire")
	}
}

// TestWatchdog_GoalRules verifies the goal-derived advisories.
func TestWatchdog_GoalRules(t *testing.T) {
	rs := testRuleSet()

	t.Run("goal never reached", func(t *testing.T) {
		v := rs.Evaluate(FactSet{factGoalReached: 0, factGoalGapKg: 3.2}, ComplianceOnTrack)
		if !hasFlag(v, FlagGoalNotReached) {
			t.Errorf("triggered %v", v.Triggered)
		}
	})
	t.Run("drift beyond tolerance", func(t *testing.T) {
		v := rs.Evaluate(FactSet{factGoalDriftDays: 20}, ComplianceOnTrack)
		if !hasFlag(v, FlagGoalTimingDrift) {
			t.Errorf("triggered %v", v.Triggered)
		}
	})
	t.Run("drift within tolerance", func(t *testing.T) {
		v := rs.Evaluate(FactSet{factGoalDriftDays: 5}, ComplianceOnTrack)
		if hasFlag(v, FlagGoalTimingDrift) {
			t.Error("5-day drift is within the 14-day tolerance")
		}
	})
	t.Run("required pace above safe ceiling", func(t *testing.T) {
		v := rs.Evaluate(FactSet{factRequiredRateKgWk: 1.5, factSafeRateKgWk: 0.8}, ComplianceOnTrack)
		if !hasFlag(v, FlagGoalTimingDrift) {
			t.Errorf("triggered %v", v.Triggered)
		}
	})
}

// TestWatchdog_MismatchDeficit fires only when a deep deficit coexists with
// weight gain.
func TestWatchdog_MismatchDeficit(t *testing.T) {
	rs := testRuleSet()
	if v := rs.Evaluate(FactSet{factMeanNetKcal: -700, factWeeklyWeightDelta: 0.4}, ComplianceOnTrack); !hasFlag(v, FlagMismatchDeficit) {
		t.Errorf("deficit with gain should fire, triggered %v", v.Triggered)
	}
	if v := rs.Evaluate(FactSet{factMeanNetKcal: -700, factWeeklyWeightDelta: -0.4}, ComplianceOnTrack); hasFlag(v, FlagMismatchDeficit) {
		t.Error("deficit with loss is consistent, should not fire")
	}
	if v := rs.Evaluate(FactSet{factMeanNetKcal: -200, factWeeklyWeightDelta: 0.4}, ComplianceOnTrack); hasFlag(v, FlagMismatchDeficit) {
		t.Error("shallow deficit should not fire")
	}
}

/* ─── Aggregation semantics tests ────────────────────────────────────── */

// TestWatchdog_UnionOfTriggers verifies every firing rule shows up, not just
// the first match, and the rationale names each one.
func TestWatchdog_UnionOfTriggers(t *testing.T) {
	rs := testRuleSet()
	facts := FactSet{
		factMinDailyKcal:      800,  // UnsafeIntake (critical)
		factWeeklyWeightDelta: -2.6, // RapidWeightLoss (critical)
		factDataAgeDays:       12,   // StaleData (advisory)
	}
	v := rs.Evaluate(facts, ComplianceOnTrack)
	for _, want := range []string{FlagUnsafeIntake, FlagRapidWeightLoss, FlagStaleData} {
		if !hasFlag(v, want) {
			t.Errorf("missing %s in triggered %v", want, v.Triggered)
		}
		if !strings.Contains(v.Rationale, want) {
			t.Errorf("rationale missing %s: %q", want, v.Rationale)
		}
	}
	if v.Compliance != ComplianceOffTrack {
		t.Errorf("compliance = %s, want off_track", v.Compliance)
	}
}

// TestWatchdog_MissingFactsSilent verifies rules stay silent on an empty fact
// set instead of panicking or firing spuriously.
func TestWatchdog_MissingFactsSilent(t *testing.T) {
	rs := testRuleSet()
	v := rs.Evaluate(FactSet{}, ComplianceAtRisk)
	if len(v.Triggered) != 0 {
		t.Fatalf("expected no triggers on empty facts, got %v", v.Triggered)
	}
	if v.Compliance != ComplianceAtRisk {
		t.Errorf("compliance = %s, want the at_risk baseline", v.Compliance)
	}
}

// TestWatchdog_Idempotent verifies evaluating the same facts twice yields the
// same verdict.
func TestWatchdog_Idempotent(t *testing.T) {
	rs := testRuleSet()
	facts := FactSet{factMinDailyKcal: 1000, factDataAgeDays: 9}
	a := rs.Evaluate(facts, ComplianceOnTrack)
	b := rs.Evaluate(facts, ComplianceOnTrack)
	if a.Compliance != b.Compliance || a.Rationale != b.Rationale || len(a.Triggered) != len(b.Triggered) {
		t.Errorf("verdicts differ across identical evaluations: %+v vs %+v", a, b)
	}
}

// TestWatchdog_SeverityOf verifies flag severity lookup.
func TestWatchdog_SeverityOf(t *testing.T) {
	rs := testRuleSet()
	if s, ok := rs.severityOf(FlagUnsafeIntake); !ok || s != SeverityCritical {
		t.Errorf("UnsafeIntake severity = %s, %v", s, ok)
	}
	if s, ok := rs.severityOf(FlagStaleData); !ok || s != SeverityAdvisory {
		t.Errorf("StaleData severity = %s, %v", s, ok)
	}
	if _, ok := rs.severityOf("NoSuchFlag"); ok {
		t.Error("unknown flag should report ok=false")
	}
}
