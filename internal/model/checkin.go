package model

import "time"

// CheckInType distinguishes the three reminder slots.
type CheckInType string

const (
	CheckInMorning     CheckInType = "morning"
	CheckInEvening     CheckInType = "evening"
	CheckInPostSession CheckInType = "post_session"
)

// CheckInStatus is the persisted lifecycle state. Transitions are
// monotonic: scheduled → sent → completed, with skipped as an alternate
// exit. Expiration is derived from the schedule window, never stored.
type CheckInStatus string

const (
	CheckInScheduled CheckInStatus = "scheduled"
	CheckInSent      CheckInStatus = "sent"
	CheckInCompleted CheckInStatus = "completed"
	CheckInSkipped   CheckInStatus = "skipped"
)

// CheckIn is a scheduled reflection reminder for one user, delivered by
// magic-link email.
type CheckIn struct {
	ID                string        `json:"id"`
	UserID            int64         `json:"user_id"`
	ScheduledFor      time.Time     `json:"scheduled_for"`
	Timezone          string        `json:"timezone"`
	Type              CheckInType   `json:"type"`
	SessionID         string        `json:"session_id,omitempty"`
	TopicKey          string        `json:"topic_key,omitempty"`
	Prompt            string        `json:"prompt"`
	Context           string        `json:"context,omitempty"`
	Status            CheckInStatus `json:"status"`
	MagicLinkToken    string        `json:"-"`
	EmailSentAt       *time.Time    `json:"email_sent_at,omitempty"`
	OpenedAt          *time.Time    `json:"opened_at,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	ResponseSessionID string        `json:"response_session_id,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
