package store

import (
	"testing"
	"time"

	"github.com/exhale-app/exhale/internal/model"
)

func testMilestones(userID int64, start time.Time) []model.FollowUpMilestone {
	var out []model.FollowUpMilestone
	for _, off := range model.MilestoneOffsets {
		out = append(out, model.FollowUpMilestone{
			UserID:        userID,
			MilestoneType: off.Type,
			ScheduledFor:  start.AddDate(0, 0, off.Days),
			Timezone:      "UTC",
		})
	}
	return out
}

func TestCreateMilestones(t *testing.T) {
	db, uid := setupTestDB(t)
	fs := NewFollowUpStore(db)

	start := time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC)
	created, err := fs.CreateMilestones(testMilestones(uid, start))
	if err != nil {
		t.Fatalf("create milestones: %v", err)
	}
	if len(created) != len(model.MilestoneOffsets) {
		t.Fatalf("created %d milestones, want %d", len(created), len(model.MilestoneOffsets))
	}

	for _, m := range created {
		if m.ID == "" || len(m.MagicLinkToken) != 64 {
			t.Errorf("milestone %s missing id or token", m.MilestoneType)
		}
		if m.Status != model.CheckInScheduled {
			t.Errorf("milestone %s status = %q, want scheduled", m.MilestoneType, m.Status)
		}
	}
}

func TestCreateMilestonesIdempotent(t *testing.T) {
	db, uid := setupTestDB(t)
	fs := NewFollowUpStore(db)

	start := time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC)
	if _, err := fs.CreateMilestones(testMilestones(uid, start)); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// A second ceremony completion must not add or replace rows.
	again, err := fs.CreateMilestones(testMilestones(uid, start.AddDate(0, 0, 5)))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second create inserted %d rows, want 0", len(again))
	}

	all, _ := fs.ListByUser(uid)
	if len(all) != len(model.MilestoneOffsets) {
		t.Fatalf("user has %d milestones, want %d", len(all), len(model.MilestoneOffsets))
	}
	if !all[0].ScheduledFor.Equal(start.AddDate(0, 0, 3)) {
		t.Error("original schedule was overwritten by second ceremony")
	}
}

func TestListByUserOrdered(t *testing.T) {
	db, uid := setupTestDB(t)
	fs := NewFollowUpStore(db)

	start := time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC)
	fs.CreateMilestones(testMilestones(uid, start))

	all, err := fs.ListByUser(uid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(all); i++ {
		if all[i].ScheduledFor.Before(all[i-1].ScheduledFor) {
			t.Fatal("milestones not ordered by scheduled_for")
		}
	}
	if all[0].MilestoneType != model.MilestoneDay3 {
		t.Errorf("first milestone = %q, want day_3", all[0].MilestoneType)
	}
}

func TestMilestoneCompleteAndSkip(t *testing.T) {
	db, uid := setupTestDB(t)
	fs := NewFollowUpStore(db)

	start := time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC)
	created, _ := fs.CreateMilestones(testMilestones(uid, start))
	first, second := created[0], created[1]

	done := start.AddDate(0, 0, 3)
	ok, err := fs.Complete(first.ID, uid, "sess-1", done)
	if err != nil || !ok {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}
	ok, _ = fs.Complete(first.ID, uid, "sess-2", done)
	if ok {
		t.Error("completed milestone accepted a second completion")
	}

	ok, err = fs.Skip(second.ID, uid)
	if err != nil || !ok {
		t.Fatalf("skip: ok=%v err=%v", ok, err)
	}
	ok, _ = fs.Skip(second.ID, uid+1)
	if ok {
		t.Error("foreign user skipped someone else's milestone")
	}
}

func TestMilestoneListDueAndMarkSent(t *testing.T) {
	db, uid := setupTestDB(t)
	fs := NewFollowUpStore(db)

	start := time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC)
	created, _ := fs.CreateMilestones(testMilestones(uid, start))

	now := start.AddDate(0, 0, 3)
	due, err := fs.ListDue(now.Add(-24*time.Hour), now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].MilestoneType != model.MilestoneDay3 {
		t.Fatalf("due = %+v, want only day_3", due)
	}

	if err := fs.MarkSent(due[0].ID, now); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	after, _ := fs.ListDue(now.Add(-24*time.Hour), now.Add(24*time.Hour))
	if len(after) != 0 {
		t.Error("sent milestone still listed as due")
	}

	got, _ := fs.GetByToken(created[0].MagicLinkToken)
	if got == nil || got.Status != model.CheckInSent || got.EmailSentAt == nil {
		t.Errorf("milestone after send = %+v, want sent with timestamp", got)
	}
}
