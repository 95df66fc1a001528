package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/exhale-app/exhale/internal/store"
)

func setupProfileHandler(t *testing.T) (*ProfileHandler, *fixture) {
	t.Helper()
	f := setupHandler(t)
	return NewProfileHandler(store.NewUserStore(f.db), slog.New(slog.DiscardHandler)), f
}

func TestProfileGet(t *testing.T) {
	h, f := setupProfileHandler(t)

	rec := httptest.NewRecorder()
	h.Get(rec, authedRequest(f, "GET", "/api/profile", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["email"] != "test@example.com" || got["timezone"] != "UTC" {
		t.Errorf("profile = %v", got)
	}
}

func TestProfileUpdateTimezone(t *testing.T) {
	h, f := setupProfileHandler(t)

	rec := httptest.NewRecorder()
	h.UpdateTimezone(rec, authedRequest(f, "PUT", "/api/profile/timezone", `{"timezone":"America/Los_Angeles"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec); got["timezone"] != "America/Los_Angeles" {
		t.Errorf("timezone = %v, want America/Los_Angeles", got["timezone"])
	}

	stored, _ := store.NewUserStore(f.db).GetByID(f.userID)
	if stored.Timezone != "America/Los_Angeles" {
		t.Errorf("stored timezone = %q", stored.Timezone)
	}
}

func TestProfileUpdateTimezoneRejectsUnknown(t *testing.T) {
	h, f := setupProfileHandler(t)

	for _, body := range []string{`{"timezone":"Mars/Olympus"}`, `{"timezone":""}`, `not json`} {
		rec := httptest.NewRecorder()
		h.UpdateTimezone(rec, authedRequest(f, "PUT", "/api/profile/timezone", body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}
