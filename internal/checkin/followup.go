package checkin

import (
	"time"

	"github.com/exhale-app/exhale/internal/model"
	"github.com/exhale-app/exhale/internal/schedule"
)

// PlanMilestones lays out the seven follow-up rows for a user whose
// quit ceremony completed at the given time. Each milestone lands at
// 09:00 local on the offset day, counted in the user's calendar so a
// late-night ceremony still anchors to the day it happened.
func PlanMilestones(userID int64, tz string, completedAt time.Time) []model.FollowUpMilestone {
	loc := schedule.Location(tz)
	local := completedAt.In(loc)

	out := make([]model.FollowUpMilestone, 0, len(model.MilestoneOffsets))
	for _, off := range model.MilestoneOffsets {
		at := time.Date(local.Year(), local.Month(), local.Day()+off.Days, schedule.MorningHour, 0, 0, 0, loc)
		out = append(out, model.FollowUpMilestone{
			UserID:        userID,
			MilestoneType: off.Type,
			ScheduledFor:  at,
			Timezone:      tz,
		})
	}
	return out
}
