package model

import "time"

// MilestoneType identifies one of the seven fixed post-ceremony offsets.
type MilestoneType string

const (
	MilestoneDay3   MilestoneType = "day_3"
	MilestoneDay7   MilestoneType = "day_7"
	MilestoneDay14  MilestoneType = "day_14"
	MilestoneDay30  MilestoneType = "day_30"
	MilestoneDay90  MilestoneType = "day_90"
	MilestoneDay180 MilestoneType = "day_180"
	MilestoneDay365 MilestoneType = "day_365"
)

// MilestoneOffsets maps each milestone type to its day offset from the
// ceremony completion, in schedule order.
var MilestoneOffsets = []struct {
	Type MilestoneType
	Days int
}{
	{MilestoneDay3, 3},
	{MilestoneDay7, 7},
	{MilestoneDay14, 14},
	{MilestoneDay30, 30},
	{MilestoneDay90, 90},
	{MilestoneDay180, 180},
	{MilestoneDay365, 365},
}

// FollowUpMilestone is a long-horizon reminder created when the user
// completes the ceremony. Exactly one row exists per (user, type).
type FollowUpMilestone struct {
	ID                string        `json:"id"`
	UserID            int64         `json:"user_id"`
	MilestoneType     MilestoneType `json:"milestone_type"`
	ScheduledFor      time.Time     `json:"scheduled_for"`
	Timezone          string        `json:"timezone"`
	Status            CheckInStatus `json:"status"`
	MagicLinkToken    string        `json:"-"`
	EmailSentAt       *time.Time    `json:"email_sent_at,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	ResponseSessionID string        `json:"response_session_id,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}
