package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/exhale-app/exhale/internal/email"
	"github.com/exhale-app/exhale/internal/schedule"
	"github.com/exhale-app/exhale/internal/store"
)

// DueWindow is how far either side of now the sender looks for
// scheduled rows. Rows older than a day are policy-expired anyway;
// rows further out than a day are tomorrow's problem.
const DueWindow = 24 * time.Hour

// Notifier delivers best-effort secondary nudges after the reminder
// email has gone out. Implementations must not block and must swallow
// their own errors.
type Notifier interface {
	CheckInReminder(userID int64, checkInID string)
	MilestoneReminder(userID int64, milestoneID string)
}

// Summary reports one sweep of the sender.
type Summary struct {
	Processed int      `json:"processed"`
	Sent      int      `json:"sent"`
	Errors    []string `json:"errors,omitempty"`
}

// Sender emails magic links for due check-ins and follow-up milestones.
// It is driven both by the external cron endpoint and by an internal
// ticker, so every step has to be idempotent.
type Sender struct {
	mu        sync.RWMutex
	checkins  *store.CheckInStore
	followups *store.FollowUpStore
	users     *store.UserStore
	email     *email.Client
	notify    Notifier
	logger    *slog.Logger
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewSender(checkins *store.CheckInStore, followups *store.FollowUpStore, users *store.UserStore, emailClient *email.Client, notify Notifier, logger *slog.Logger) *Sender {
	return &Sender{
		checkins:  checkins,
		followups: followups,
		users:     users,
		email:     emailClient,
		notify:    notify,
		logger:    logger.With("component", "checkin_sender"),
		interval:  5 * time.Minute,
	}
}

// ProcessScheduledCheckIns sweeps the due window once. Each row is
// handled independently: a failure is recorded in the summary and the
// sweep moves on. Rows whose check-in window already lapsed count as
// processed but are neither sent nor reported as errors.
func (s *Sender) ProcessScheduledCheckIns(ctx context.Context, now time.Time) Summary {
	var sum Summary

	due, err := s.checkins.ListDue(now.Add(-DueWindow), now.Add(DueWindow))
	if err != nil {
		sum.Errors = append(sum.Errors, fmt.Sprintf("list due check-ins: %v", err))
	}
	for _, ci := range due {
		if ctx.Err() != nil {
			sum.Errors = append(sum.Errors, "sweep interrupted")
			return sum
		}
		sum.Processed++

		if schedule.CheckInExpired(ci.ScheduledFor, ci.Timezone, now) {
			continue
		}

		addr, err := s.users.ResolveEmail(ci.UserID)
		if err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("check-in %s: %v", ci.ID, err))
			continue
		}
		if err := s.email.SendCheckInReminder(addr, string(ci.Type), ci.MagicLinkToken); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("check-in %s: %v", ci.ID, err))
			continue
		}
		if err := s.checkins.MarkSent(ci.ID, now); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("check-in %s: %v", ci.ID, err))
			continue
		}
		sum.Sent++
		if s.notify != nil {
			s.notify.CheckInReminder(ci.UserID, ci.ID)
		}
	}

	milestones, err := s.followups.ListDue(now.Add(-DueWindow), now.Add(DueWindow))
	if err != nil {
		sum.Errors = append(sum.Errors, fmt.Sprintf("list due milestones: %v", err))
	}
	for _, m := range milestones {
		if ctx.Err() != nil {
			sum.Errors = append(sum.Errors, "sweep interrupted")
			return sum
		}
		sum.Processed++

		addr, err := s.users.ResolveEmail(m.UserID)
		if err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("milestone %s: %v", m.ID, err))
			continue
		}
		if err := s.email.SendMilestoneReminder(addr, MilestoneLabel(m.MilestoneType), m.MagicLinkToken); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("milestone %s: %v", m.ID, err))
			continue
		}
		if err := s.followups.MarkSent(m.ID, now); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("milestone %s: %v", m.ID, err))
			continue
		}
		sum.Sent++
		if s.notify != nil {
			s.notify.MilestoneReminder(m.UserID, m.ID)
		}
	}

	return sum
}

// Start begins the internal sweep loop.
func (s *Sender) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sum := s.ProcessScheduledCheckIns(ctx, time.Now().UTC())
				if sum.Sent > 0 || len(sum.Errors) > 0 {
					s.logger.Info("reminder sweep",
						"processed", sum.Processed,
						"sent", sum.Sent,
						"errors", len(sum.Errors))
				}
				for _, e := range sum.Errors {
					s.logger.Error("reminder sweep error", "error", e)
				}
			}
		}
	}()
}

// Stop gracefully stops the sweep loop.
func (s *Sender) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
