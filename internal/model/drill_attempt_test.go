package model

import (
	"testing"
	"time"
)

func TestAttemptStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from AttemptStatus
		to   AttemptStatus
		want bool
	}{
		{StatusNotStarted, StatusInProgress, true},
		{StatusNotStarted, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusAbandoned, true},
		{StatusInProgress, StatusEvaluated, false},
		{StatusCompleted, StatusEvaluated, true},
		{StatusCompleted, StatusAbandoned, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusEvaluated, StatusCompleted, false},
		{StatusEvaluated, StatusEvaluated, false},
		{StatusAbandoned, StatusInProgress, false},
	}

	for _, tc := range tests {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestAttemptStatus_Terminal(t *testing.T) {
	if !StatusEvaluated.Terminal() || !StatusAbandoned.Terminal() {
		t.Error("EVALUATED and ABANDONED must be terminal")
	}
	if StatusInProgress.Terminal() || StatusCompleted.Terminal() {
		t.Error("IN_PROGRESS and COMPLETED must not be terminal")
	}
}

func TestDrillAttempt_TimeSpentSeconds(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	done := start.Add(95 * time.Second)

	completed := &DrillAttempt{StartedAt: start, CompletedAt: &done}
	if got := completed.TimeSpentSeconds(start.Add(time.Hour)); got != 95 {
		t.Errorf("completed attempt time spent = %d, want 95", got)
	}

	running := &DrillAttempt{StartedAt: start}
	if got := running.TimeSpentSeconds(start.Add(40 * time.Second)); got != 40 {
		t.Errorf("running attempt time spent = %d, want 40", got)
	}

	// Clock skew never yields a negative duration.
	if got := running.TimeSpentSeconds(start.Add(-time.Minute)); got != 0 {
		t.Errorf("skewed clock time spent = %d, want 0", got)
	}
}

func TestWeightsSumToOne(t *testing.T) {
	ok := []EvaluationCriterion{{Weight: 0.4}, {Weight: 0.35}, {Weight: 0.25}}
	if !WeightsSumToOne(ok) {
		t.Error("weights summing to 1.0 rejected")
	}

	withinEpsilon := []EvaluationCriterion{{Weight: 0.3333333}, {Weight: 0.3333333}, {Weight: 0.3333334}}
	if !WeightsSumToOne(withinEpsilon) {
		t.Error("weights within epsilon of 1.0 rejected")
	}

	bad := []EvaluationCriterion{{Weight: 0.5}, {Weight: 0.4}}
	if WeightsSumToOne(bad) {
		t.Error("weights summing to 0.9 accepted")
	}
}

func TestDrillCategory_Numeric(t *testing.T) {
	numeric := []DrillCategory{CategoryCalculations, CategoryCaseMath, CategoryMarketSizing}
	for _, c := range numeric {
		if !c.Numeric() {
			t.Errorf("%s should be numeric", c)
		}
	}
	freeText := []DrillCategory{CategoryCasePrompt, CategoryBrainstorming, CategorySynthesizing}
	for _, c := range freeText {
		if c.Numeric() {
			t.Errorf("%s should not be numeric", c)
		}
	}
}
