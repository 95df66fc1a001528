package websocket

// Check-in lifecycle events. The reminder methods double as a
// best-effort notifier for the sender sweep; the rest are emitted by
// the HTTP handlers so other open clients stay in sync.

func (h *Hub) CheckInReminder(userID int64, checkInID string) {
	h.BroadcastToUser(userID, NewMessage("check_in", "sent", checkInID, nil))
}

func (h *Hub) MilestoneReminder(userID int64, milestoneID string) {
	h.BroadcastToUser(userID, NewMessage("milestone", "sent", milestoneID, nil))
}

func (h *Hub) CheckInScheduled(userID int64, checkInID string) {
	h.BroadcastToUser(userID, NewMessage("check_in", "scheduled", checkInID, nil))
}

func (h *Hub) CheckInOpened(userID int64, checkInID string) {
	h.BroadcastToUser(userID, NewMessage("check_in", "opened", checkInID, nil))
}

func (h *Hub) CheckInCompleted(userID int64, checkInID string) {
	h.BroadcastToUser(userID, NewMessage("check_in", "completed", checkInID, nil))
}

func (h *Hub) CheckInSkipped(userID int64, checkInID string) {
	h.BroadcastToUser(userID, NewMessage("check_in", "skipped", checkInID, nil))
}

func (h *Hub) MilestonesCreated(userID int64, count int) {
	h.BroadcastToUser(userID, NewMessage("milestone", "created", "", map[string]any{"count": count}))
}
