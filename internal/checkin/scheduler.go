// Package checkin holds the check-in lifecycle: scheduling slots for a
// user, sending reminder emails with magic links, and laying out the
// long-horizon follow-up milestones.
package checkin

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/exhale-app/exhale/internal/model"
	"github.com/exhale-app/exhale/internal/schedule"
	"github.com/exhale-app/exhale/internal/store"
)

// ConflictRadius is how close two active check-ins of the same type may
// sit before the new one is dropped. The check is read-then-insert, so
// concurrent schedulers can still race past it; a duplicate reminder is
// acceptable, a missed one is not.
const ConflictRadius = 60 * time.Minute

// Trigger describes why check-ins are being scheduled.
type Trigger interface {
	trigger()
}

// TriggerProgramStart fires once when the user begins the program.
type TriggerProgramStart struct{}

// TriggerDailyRefresh fires from the cron sweep to keep the rolling
// window of morning and evening slots topped up.
type TriggerDailyRefresh struct{}

// TriggerSessionComplete fires when a coaching session ends and may
// produce a single post-session check-in.
type TriggerSessionComplete struct {
	SessionID      string
	TopicKey       string
	Context        string
	SessionEndedAt time.Time
}

func (TriggerProgramStart) trigger()    {}
func (TriggerDailyRefresh) trigger()    {}
func (TriggerSessionComplete) trigger() {}

type Scheduler struct {
	checkins *store.CheckInStore
	logger   *slog.Logger
}

func NewScheduler(checkins *store.CheckInStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		checkins: checkins,
		logger:   logger.With("component", "checkin_scheduler"),
	}
}

// Schedule creates the check-ins implied by the trigger and returns the
// rows that were actually created. Scheduling is append-only: existing
// rows are never moved or cancelled, and a slot that conflicts with an
// active check-in of the same type is silently skipped. A failed slot
// does not block the remaining ones.
func (s *Scheduler) Schedule(userID int64, tz string, trig Trigger, now time.Time) ([]model.CheckIn, error) {
	var slots []schedule.Slot
	var sessionID, topicKey, context string

	switch t := trig.(type) {
	case TriggerProgramStart, TriggerDailyRefresh:
		slots = schedule.CheckInSlots(now, tz)
	case TriggerSessionComplete:
		if !schedule.ShouldSchedulePostSession(t.SessionEndedAt, tz) {
			return nil, nil
		}
		slots = []schedule.Slot{{Type: model.CheckInPostSession, At: schedule.PostSessionAt(t.SessionEndedAt)}}
		sessionID, topicKey, context = t.SessionID, t.TopicKey, t.Context
	default:
		return nil, fmt.Errorf("unknown trigger %T", trig)
	}

	var created []model.CheckIn
	var firstErr error
	for _, slot := range slots {
		conflict, err := s.hasConflict(userID, slot, now)
		if err != nil {
			s.logger.Error("conflict check failed", "user_id", userID, "type", slot.Type, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if conflict {
			continue
		}

		ci, err := s.checkins.Create(&model.CheckIn{
			UserID:       userID,
			ScheduledFor: slot.At,
			Timezone:     tz,
			Type:         slot.Type,
			SessionID:    sessionID,
			TopicKey:     topicKey,
			Context:      context,
			Prompt:       PromptFor(slot.Type, topicKey, slot.At.In(schedule.Location(tz))),
		})
		if err != nil {
			s.logger.Error("create check-in failed", "user_id", userID, "type", slot.Type, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created = append(created, *ci)
	}
	return created, firstErr
}

// hasConflict reports whether an active, unexpired check-in of the same
// type already sits within ConflictRadius of the candidate slot.
func (s *Scheduler) hasConflict(userID int64, slot schedule.Slot, now time.Time) (bool, error) {
	active, err := s.checkins.ListActiveByType(userID, slot.Type)
	if err != nil {
		return false, err
	}
	for _, existing := range active {
		if schedule.CheckInExpired(existing.ScheduledFor, existing.Timezone, now) {
			continue
		}
		gap := existing.ScheduledFor.Sub(slot.At)
		if gap < 0 {
			gap = -gap
		}
		if gap < ConflictRadius {
			return true, nil
		}
	}
	return false, nil
}
