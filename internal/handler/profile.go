package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/exhale-app/exhale/internal/auth"
	"github.com/exhale-app/exhale/internal/store"
)

// ProfileHandler serves the caller's own user record. The timezone is
// the one profile field the app edits directly, since every check-in
// window is computed in it.
type ProfileHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewProfileHandler(us *store.UserStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: us, logger: logger}
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	user, err := h.users.GetByID(userID)
	if err != nil {
		h.logger.Error("load profile", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type timezoneRequest struct {
	Timezone string `json:"timezone"`
}

// UpdateTimezone handles PUT /api/profile/timezone
func (h *ProfileHandler) UpdateTimezone(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req timezoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil || req.Timezone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown timezone"})
		return
	}

	if err := h.users.UpdateTimezone(userID, req.Timezone); err != nil {
		h.logger.Error("update timezone", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update timezone"})
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusOK, map[string]string{"timezone": req.Timezone})
		return
	}
	writeJSON(w, http.StatusOK, user)
}
