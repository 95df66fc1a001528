package checkin

import (
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/exhale-app/exhale/internal/database"
	"github.com/exhale-app/exhale/internal/model"
	"github.com/exhale-app/exhale/internal/store"
)

func setupTestDB(t *testing.T) (*sql.DB, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	result, err := db.Exec(
		"INSERT INTO users (email, timezone) VALUES ('test@example.com', 'UTC')",
	)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	userID, _ := result.LastInsertId()
	return db, userID
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestScheduleProgramStart(t *testing.T) {
	db, uid := setupTestDB(t)
	s := NewScheduler(store.NewCheckInStore(db), testLogger())

	// 06:00 UTC: all three mornings and all three evenings lie ahead.
	now := time.Date(2026, 1, 9, 6, 0, 0, 0, time.UTC)
	created, err := s.Schedule(uid, "UTC", TriggerProgramStart{}, now)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(created) != 6 {
		t.Fatalf("created %d check-ins, want 6", len(created))
	}

	var mornings, evenings int
	for _, ci := range created {
		if !ci.ScheduledFor.After(now) {
			t.Errorf("check-in at %v is not after now", ci.ScheduledFor)
		}
		if ci.Prompt == "" {
			t.Error("check-in created without a prompt")
		}
		switch ci.Type {
		case model.CheckInMorning:
			mornings++
		case model.CheckInEvening:
			evenings++
		}
	}
	if mornings != 3 || evenings != 3 {
		t.Errorf("mornings=%d evenings=%d, want 3 and 3", mornings, evenings)
	}
}

func TestScheduleDailyRefreshIsIdempotent(t *testing.T) {
	db, uid := setupTestDB(t)
	cs := store.NewCheckInStore(db)
	s := NewScheduler(cs, testLogger())

	now := time.Date(2026, 1, 9, 6, 0, 0, 0, time.UTC)
	if _, err := s.Schedule(uid, "UTC", TriggerProgramStart{}, now); err != nil {
		t.Fatalf("program start: %v", err)
	}

	// Re-running at the same instant finds every slot occupied.
	again, err := s.Schedule(uid, "UTC", TriggerDailyRefresh{}, now)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("refresh created %d duplicates, want 0", len(again))
	}

	// A day later the window has rolled forward by one day.
	later, err := s.Schedule(uid, "UTC", TriggerDailyRefresh{}, now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("refresh next day: %v", err)
	}
	if len(later) != 2 {
		t.Errorf("next-day refresh created %d check-ins, want 2", len(later))
	}

	pending, _ := cs.ListPending(uid)
	if len(pending) != 8 {
		t.Errorf("pending = %d, want 8", len(pending))
	}
}

func TestScheduleNeverCancelsExisting(t *testing.T) {
	db, uid := setupTestDB(t)
	cs := store.NewCheckInStore(db)
	s := NewScheduler(cs, testLogger())

	now := time.Date(2026, 1, 9, 6, 0, 0, 0, time.UTC)
	first, _ := s.Schedule(uid, "UTC", TriggerProgramStart{}, now)
	s.Schedule(uid, "UTC", TriggerDailyRefresh{}, now.Add(2*time.Hour))

	for _, ci := range first {
		got, err := cs.GetByID(ci.ID, uid)
		if err != nil || got == nil {
			t.Fatalf("original check-in %s gone after refresh", ci.ID)
		}
		if !got.ScheduledFor.Equal(ci.ScheduledFor) {
			t.Errorf("check-in %s moved from %v to %v", ci.ID, ci.ScheduledFor, got.ScheduledFor)
		}
	}
}

func TestSchedulePostSession(t *testing.T) {
	db, uid := setupTestDB(t)
	s := NewScheduler(store.NewCheckInStore(db), testLogger())

	ended := time.Date(2026, 1, 9, 15, 0, 0, 0, time.UTC)
	created, err := s.Schedule(uid, "UTC", TriggerSessionComplete{
		SessionID:      "sess-9",
		TopicKey:       "cravings",
		SessionEndedAt: ended,
	}, ended)
	if err != nil {
		t.Fatalf("schedule post-session: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created %d check-ins, want 1", len(created))
	}

	ci := created[0]
	if ci.Type != model.CheckInPostSession {
		t.Errorf("type = %q, want post_session", ci.Type)
	}
	if !ci.ScheduledFor.Equal(ended.Add(2 * time.Hour)) {
		t.Errorf("scheduled_for = %v, want session end + 2h", ci.ScheduledFor)
	}
	if ci.SessionID != "sess-9" || ci.TopicKey != "cravings" {
		t.Errorf("session linkage lost: %+v", ci)
	}
	if ci.Prompt != postSessionPrompts["cravings"] {
		t.Errorf("prompt = %q, want topic prompt", ci.Prompt)
	}
}

func TestSchedulePostSessionTooLate(t *testing.T) {
	db, uid := setupTestDB(t)
	s := NewScheduler(store.NewCheckInStore(db), testLogger())

	// Session ends 19:30 local; the follow-up would land at 21:30.
	ended := time.Date(2026, 1, 9, 19, 30, 0, 0, time.UTC)
	created, err := s.Schedule(uid, "UTC", TriggerSessionComplete{
		SessionID:      "sess-late",
		SessionEndedAt: ended,
	}, ended)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("created %d check-ins for a late session, want 0", len(created))
	}
}

func TestScheduleConflictRadius(t *testing.T) {
	db, uid := setupTestDB(t)
	cs := store.NewCheckInStore(db)
	s := NewScheduler(cs, testLogger())

	// Two sessions ending 30 minutes apart produce follow-ups 30
	// minutes apart, inside the conflict radius.
	first := time.Date(2026, 1, 9, 14, 0, 0, 0, time.UTC)
	s.Schedule(uid, "UTC", TriggerSessionComplete{SessionID: "a", SessionEndedAt: first}, first)

	second := first.Add(30 * time.Minute)
	created, err := s.Schedule(uid, "UTC", TriggerSessionComplete{SessionID: "b", SessionEndedAt: second}, second)
	if err != nil {
		t.Fatalf("schedule second: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("conflicting post-session check-in created")
	}

	// A session two hours later is outside the radius.
	third := first.Add(2 * time.Hour)
	created, err = s.Schedule(uid, "UTC", TriggerSessionComplete{SessionID: "c", SessionEndedAt: third}, third)
	if err != nil {
		t.Fatalf("schedule third: %v", err)
	}
	if len(created) != 1 {
		t.Errorf("non-conflicting post-session check-in skipped")
	}
}

func TestScheduleConflictIgnoresExpiredAndTerminal(t *testing.T) {
	db, uid := setupTestDB(t)
	cs := store.NewCheckInStore(db)
	s := NewScheduler(cs, testLogger())

	ended := time.Date(2026, 1, 9, 14, 0, 0, 0, time.UTC)
	first, _ := s.Schedule(uid, "UTC", TriggerSessionComplete{SessionID: "a", SessionEndedAt: ended}, ended)

	// Once the first follow-up is completed it no longer blocks.
	cs.Complete(first[0].ID, uid, "", ended.Add(3*time.Hour))

	created, err := s.Schedule(uid, "UTC", TriggerSessionComplete{SessionID: "b", SessionEndedAt: ended.Add(10 * time.Minute)}, ended.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("schedule after complete: %v", err)
	}
	if len(created) != 1 {
		t.Errorf("terminal check-in still counted as a conflict")
	}
}
