package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/exhale-app/exhale/internal/auth"
	"github.com/exhale-app/exhale/internal/checkin"
	"github.com/exhale-app/exhale/internal/model"
	"github.com/exhale-app/exhale/internal/schedule"
	"github.com/exhale-app/exhale/internal/store"
	"github.com/exhale-app/exhale/internal/websocket"
)

type CheckInHandler struct {
	checkins  *store.CheckInStore
	followups *store.FollowUpStore
	users     *store.UserStore
	scheduler *checkin.Scheduler
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewCheckInHandler(cs *store.CheckInStore, fs *store.FollowUpStore, us *store.UserStore, scheduler *checkin.Scheduler, hub *websocket.Hub, logger *slog.Logger) *CheckInHandler {
	return &CheckInHandler{
		checkins:  cs,
		followups: fs,
		users:     us,
		scheduler: scheduler,
		hub:       hub,
		logger:    logger,
	}
}

// checkInResponse is a check-in with its derived expiry attached. The
// expiry is never stored; it is computed from the schedule every time.
type checkInResponse struct {
	model.CheckIn
	ExpiresAt time.Time `json:"expires_at"`
}

func toResponse(ci model.CheckIn) checkInResponse {
	return checkInResponse{
		CheckIn:   ci,
		ExpiresAt: schedule.CheckInExpiration(ci.ScheduledFor, ci.Timezone),
	}
}

type scheduleRequest struct {
	Trigger        string `json:"trigger"`
	SessionID      string `json:"session_id"`
	TopicKey       string `json:"topic_key"`
	Context        string `json:"context"`
	SessionEndedAt string `json:"session_ended_at"`
}

// Schedule handles POST /api/check-ins/schedule
func (h *CheckInHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	var trig checkin.Trigger
	switch req.Trigger {
	case "program_start":
		trig = checkin.TriggerProgramStart{}
	case "daily_refresh":
		trig = checkin.TriggerDailyRefresh{}
	case "session_complete":
		endedAt, err := time.Parse(time.RFC3339, req.SessionEndedAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_ended_at must be RFC3339"})
			return
		}
		trig = checkin.TriggerSessionComplete{
			SessionID:      req.SessionID,
			TopicKey:       req.TopicKey,
			Context:        req.Context,
			SessionEndedAt: endedAt,
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown trigger"})
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		h.logger.Error("load user for scheduling", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to schedule"})
		return
	}

	created, err := h.scheduler.Schedule(userID, user.Timezone, trig, time.Now().UTC())
	if err != nil && len(created) == 0 {
		h.logger.Error("schedule check-ins", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to schedule"})
		return
	}

	scheduled := make([]checkInResponse, 0, len(created))
	for _, ci := range created {
		scheduled = append(scheduled, toResponse(ci))
		h.hub.CheckInScheduled(userID, ci.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"scheduled": scheduled})
}

// Pending handles GET /api/check-ins/pending
func (h *CheckInHandler) Pending(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	now := time.Now().UTC()

	pending, err := h.checkins.ListPending(userID)
	if err != nil {
		h.logger.Error("list pending check-ins", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list check-ins"})
		return
	}

	items := make([]checkInResponse, 0, len(pending))
	var next *time.Time
	for _, ci := range pending {
		if schedule.CheckInExpired(ci.ScheduledFor, ci.Timezone, now) {
			continue
		}
		items = append(items, toResponse(ci))
		// Earliest by scheduled time, past or future: a row whose time
		// has passed but whose window is still open is the next one to
		// act on.
		if next == nil || ci.ScheduledFor.Before(*next) {
			t := ci.ScheduledFor
			next = &t
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"check_ins": items, "next_check_in": next})
}

// Interstitial handles GET /api/check-ins/interstitial. It returns the
// check-in the app should surface right now: scheduled time has passed
// and the window has not.
func (h *CheckInHandler) Interstitial(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	now := time.Now().UTC()

	pending, err := h.checkins.ListPending(userID)
	if err != nil {
		h.logger.Error("list pending check-ins", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list check-ins"})
		return
	}

	for _, ci := range pending {
		if ci.ScheduledFor.After(now) {
			break
		}
		if schedule.CheckInExpired(ci.ScheduledFor, ci.Timezone, now) {
			continue
		}
		resp := toResponse(ci)
		writeJSON(w, http.StatusOK, map[string]any{"has_pending": true, "check_in": resp})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"has_pending": false})
}

// Open handles GET /api/check-ins/open/{token}, the magic-link entry
// point. It is the only unauthenticated check-in route; the token is
// the credential.
func (h *CheckInHandler) Open(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	now := time.Now().UTC()

	ci, err := h.checkins.GetByToken(token)
	if err != nil {
		h.logger.Error("open by token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to open check-in"})
		return
	}
	if ci != nil {
		h.openCheckIn(w, ci, now)
		return
	}

	m, err := h.followups.GetByToken(token)
	if err != nil {
		h.logger.Error("open milestone by token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to open check-in"})
		return
	}
	if m != nil {
		h.openMilestone(w, m, now)
		return
	}

	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func (h *CheckInHandler) openCheckIn(w http.ResponseWriter, ci *model.CheckIn, now time.Time) {
	terminal := ci.Status == model.CheckInCompleted || ci.Status == model.CheckInSkipped
	lapsed := schedule.CheckInExpired(ci.ScheduledFor, ci.Timezone, now) ||
		schedule.MagicLinkExpired(ci.EmailSentAt, now)

	if terminal || lapsed {
		h.writeExpired(w, ci.UserID, now)
		return
	}

	if err := h.checkins.MarkOpened(ci.ID, now); err != nil {
		h.logger.Error("mark opened", "check_in_id", ci.ID, "error", err)
	}
	if ci.OpenedAt == nil {
		ci.OpenedAt = &now
	}
	h.hub.CheckInOpened(ci.UserID, ci.ID)

	writeJSON(w, http.StatusOK, map[string]any{"expired": false, "check_in": toResponse(*ci)})
}

func (h *CheckInHandler) openMilestone(w http.ResponseWriter, m *model.FollowUpMilestone, now time.Time) {
	terminal := m.Status == model.CheckInCompleted || m.Status == model.CheckInSkipped
	if terminal || schedule.MagicLinkExpired(m.EmailSentAt, now) {
		h.writeExpired(w, m.UserID, now)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"expired":   false,
		"milestone": m,
		"label":     checkin.MilestoneLabel(m.MilestoneType),
	})
}

// writeExpired answers a dead magic link: point at the next upcoming
// check-in when there is one, otherwise 410.
func (h *CheckInHandler) writeExpired(w http.ResponseWriter, userID int64, now time.Time) {
	next := h.nextCheckIn(userID, now)
	if next == nil {
		writeJSON(w, http.StatusGone, map[string]any{"expired": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expired": true, "next_check_in": next})
}

// nextCheckIn returns the earliest pending check-in whose window is
// still open. Rows whose scheduled time has passed still count; only
// window expiry rules one out.
func (h *CheckInHandler) nextCheckIn(userID int64, now time.Time) *time.Time {
	pending, err := h.checkins.ListPending(userID)
	if err != nil {
		h.logger.Error("list pending for fallback", "user_id", userID, "error", err)
		return nil
	}
	for _, ci := range pending {
		if schedule.CheckInExpired(ci.ScheduledFor, ci.Timezone, now) {
			continue
		}
		t := ci.ScheduledFor
		return &t
	}
	return nil
}

type completeRequest struct {
	ResponseSessionID string `json:"response_session_id"`
}

// Complete handles POST /api/check-ins/{id}/complete
func (h *CheckInHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	var req completeRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	ok, err := h.checkins.Complete(id, userID, req.ResponseSessionID, time.Now().UTC())
	if err != nil {
		h.logger.Error("complete check-in", "check_in_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete check-in"})
		return
	}
	if !ok {
		// Missing, someone else's, or already terminal: all 404
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	h.hub.CheckInCompleted(userID, id)
	ci, err := h.checkins.GetByID(id, userID)
	if err != nil || ci == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
		return
	}
	writeJSON(w, http.StatusOK, toResponse(*ci))
}

// Skip handles POST /api/check-ins/{id}/skip
func (h *CheckInHandler) Skip(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	ok, err := h.checkins.Skip(id, userID)
	if err != nil {
		h.logger.Error("skip check-in", "check_in_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to skip check-in"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	h.hub.CheckInSkipped(userID, id)
	ci, err := h.checkins.GetByID(id, userID)
	if err != nil || ci == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}
	writeJSON(w, http.StatusOK, toResponse(*ci))
}

type ceremonyRequest struct {
	CompletedAt string `json:"completed_at"`
}

// CeremonyComplete handles POST /api/ceremony/complete. The quit
// ceremony happens once; repeated calls return the existing milestones
// without touching them.
func (h *CheckInHandler) CeremonyComplete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	now := time.Now().UTC()

	var req ceremonyRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	completedAt := now
	if req.CompletedAt != "" {
		t, err := time.Parse(time.RFC3339, req.CompletedAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "completed_at must be RFC3339"})
			return
		}
		completedAt = t
	}

	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		h.logger.Error("load user for ceremony", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete ceremony"})
		return
	}

	created, err := h.followups.CreateMilestones(checkin.PlanMilestones(userID, user.Timezone, completedAt))
	if err != nil {
		h.logger.Error("create milestones", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete ceremony"})
		return
	}
	if len(created) > 0 {
		h.hub.MilestonesCreated(userID, len(created))
	}

	all, err := h.followups.ListByUser(userID)
	if err != nil {
		h.logger.Error("list milestones", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete ceremony"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"created": len(created), "milestones": all})
}

// ListFollowUps handles GET /api/follow-ups
func (h *CheckInHandler) ListFollowUps(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	milestones, err := h.followups.ListByUser(userID)
	if err != nil {
		h.logger.Error("list milestones", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list follow-ups"})
		return
	}
	if milestones == nil {
		milestones = []model.FollowUpMilestone{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"follow_ups": milestones})
}

// CompleteFollowUp handles POST /api/follow-ups/{id}/complete
func (h *CheckInHandler) CompleteFollowUp(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	var req completeRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	ok, err := h.followups.Complete(id, userID, req.ResponseSessionID, time.Now().UTC())
	if err != nil {
		h.logger.Error("complete milestone", "milestone_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete follow-up"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// SkipFollowUp handles POST /api/follow-ups/{id}/skip
func (h *CheckInHandler) SkipFollowUp(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	ok, err := h.followups.Skip(id, userID)
	if err != nil {
		h.logger.Error("skip milestone", "milestone_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to skip follow-up"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
}
