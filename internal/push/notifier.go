package push

import (
	"errors"
	"log/slog"

	"github.com/exhale-app/exhale/internal/store"
)

// Notifier fans a reminder out to every push subscription a user has.
// The email carrying the magic link is the primary channel; this is a
// best-effort nudge, so failures are logged and swallowed. Expired
// subscriptions are pruned as they surface.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		service: service,
		subs:    subs,
		logger:  logger.With("component", "push_notifier"),
	}
}

func (n *Notifier) CheckInReminder(userID int64, checkInID string) {
	n.broadcast(userID, Payload{
		Title: "Time to check in",
		Body:  "Your check-in is ready. The link is in your email.",
		Tag:   "checkin-" + checkInID,
	})
}

func (n *Notifier) MilestoneReminder(userID int64, milestoneID string) {
	n.broadcast(userID, Payload{
		Title: "Milestone check-in",
		Body:  "You've hit a milestone. Take a moment to reflect.",
		Tag:   "milestone-" + milestoneID,
	})
}

func (n *Notifier) broadcast(userID int64, payload Payload) {
	if !n.service.Configured() {
		return
	}

	subs, err := n.subs.ListByUser(userID)
	if err != nil {
		n.logger.Error("list subscriptions", "user_id", userID, "error", err)
		return
	}

	for i := range subs {
		err := n.service.Send(&subs[i], payload)
		if errors.Is(err, ErrExpired) {
			if err := n.subs.DeleteByEndpoint(subs[i].Endpoint); err != nil {
				n.logger.Error("prune expired subscription", "error", err)
			}
			continue
		}
		if err != nil {
			n.logger.Error("send push", "user_id", userID, "error", err)
		}
	}
}
