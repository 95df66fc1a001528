package checkin

import (
	"testing"
	"time"

	"github.com/exhale-app/exhale/internal/model"
	"github.com/exhale-app/exhale/internal/schedule"
)

func TestPlanMilestones(t *testing.T) {
	completed := time.Date(2026, 1, 9, 14, 30, 0, 0, time.UTC)
	plan := PlanMilestones(42, "UTC", completed)

	if len(plan) != 7 {
		t.Fatalf("plan has %d milestones, want 7", len(plan))
	}

	wantDays := []int{3, 7, 14, 30, 90, 180, 365}
	for i, m := range plan {
		if m.UserID != 42 {
			t.Errorf("milestone %d user = %d", i, m.UserID)
		}
		want := time.Date(2026, 1, 9+wantDays[i], 9, 0, 0, 0, time.UTC)
		if !m.ScheduledFor.Equal(want) {
			t.Errorf("%s scheduled %v, want %v", m.MilestoneType, m.ScheduledFor, want)
		}
	}
	if plan[0].MilestoneType != model.MilestoneDay3 || plan[6].MilestoneType != model.MilestoneDay365 {
		t.Error("milestones out of order")
	}
}

func TestPlanMilestonesAnchorsToLocalDay(t *testing.T) {
	// 02:00 UTC on Jan 10 is still the evening of Jan 9 in Los
	// Angeles, so day 3 counts from Jan 9.
	completed := time.Date(2026, 1, 10, 2, 0, 0, 0, time.UTC)
	plan := PlanMilestones(1, "America/Los_Angeles", completed)

	loc := schedule.Location("America/Los_Angeles")
	want := time.Date(2026, 1, 12, 9, 0, 0, 0, loc)
	if !plan[0].ScheduledFor.Equal(want) {
		t.Errorf("day_3 scheduled %v, want %v", plan[0].ScheduledFor, want)
	}
}

func TestMilestoneLabel(t *testing.T) {
	cases := map[model.MilestoneType]string{
		model.MilestoneDay3:   "3 days smoke-free",
		model.MilestoneDay30:  "1 month smoke-free",
		model.MilestoneDay365: "1 year smoke-free",
	}
	for typ, want := range cases {
		if got := MilestoneLabel(typ); got != want {
			t.Errorf("label(%s) = %q, want %q", typ, got, want)
		}
	}
}

func TestPromptForRotation(t *testing.T) {
	day1 := time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	if PromptFor(model.CheckInMorning, "", day1) == PromptFor(model.CheckInMorning, "", day2) {
		t.Error("morning prompt did not rotate across days")
	}
	if PromptFor(model.CheckInMorning, "", day1) != PromptFor(model.CheckInMorning, "", day1) {
		t.Error("prompt selection is not deterministic")
	}
	if PromptFor(model.CheckInPostSession, "no-such-topic", day1) != defaultPostSessionPrompt {
		t.Error("unknown topic did not fall back to default prompt")
	}
}
