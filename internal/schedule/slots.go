package schedule

import (
	"time"

	"github.com/exhale-app/exhale/internal/model"
)

const (
	// slotWindowDays is the span of the rolling candidate window:
	// today plus the next two days.
	slotWindowDays = 3

	// PostSessionDelay is how long after a coaching session ends the
	// follow-up check-in lands.
	PostSessionDelay = 2 * time.Hour

	// PostSessionCutoffHour is the local hour at or after which no
	// same-day post-session check-in is offered.
	PostSessionCutoffHour = 21
)

// Slot is a candidate send time produced by the rolling window.
type Slot struct {
	Type model.CheckInType
	At   time.Time
}

// CheckInSlots computes the rolling window of candidate send times: a
// 09:00 and a 19:00 local slot for today and the next two days, keeping
// only slots strictly after now. The window is recomputed on every
// call; nothing persists a calendar.
func CheckInSlots(now time.Time, tz string) []Slot {
	loc := Location(tz)
	local := now.In(loc)

	var slots []Slot
	for d := 0; d < slotWindowDays; d++ {
		day := local.AddDate(0, 0, d)
		morning := time.Date(day.Year(), day.Month(), day.Day(), MorningHour, 0, 0, 0, loc)
		evening := time.Date(day.Year(), day.Month(), day.Day(), EveningHour, 0, 0, 0, loc)

		if morning.After(now) {
			slots = append(slots, Slot{Type: model.CheckInMorning, At: morning})
		}
		if evening.After(now) {
			slots = append(slots, Slot{Type: model.CheckInEvening, At: evening})
		}
	}
	return slots
}

// PostSessionAt returns the send time for a post-session check-in.
func PostSessionAt(sessionEnd time.Time) time.Time {
	return sessionEnd.Add(PostSessionDelay)
}

// ShouldSchedulePostSession reports whether a session ending at the
// given time gets a same-day post-session check-in: only when the send
// time's local hour is still before 21:00. A session ending at exactly
// 19:00 local lands on the cutoff and is not schedulable.
func ShouldSchedulePostSession(sessionEnd time.Time, tz string) bool {
	loc := Location(tz)
	return PostSessionAt(sessionEnd).In(loc).Hour() < PostSessionCutoffHour
}
