package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/exhale-app/exhale/internal/backup"
	"github.com/exhale-app/exhale/internal/database"
	"github.com/exhale-app/exhale/internal/store"
)

func setupBackupHandler(t *testing.T, cfg backup.Config) (*BackupHandler, *store.BackupStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	bs := store.NewBackupStore(db)
	mgr := backup.NewManager(cfg, db, bs, logger)
	return NewBackupHandler(mgr, bs, logger), bs
}

func TestBackupStatusEndpoint(t *testing.T) {
	h, bs := setupBackupHandler(t, backup.Config{})

	bs.Create("backup-1.db.enc", "backups/backup-1.db.enc")

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest("GET", "/cron/backups", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["status"].(map[string]any)["state"] != string(backup.StateDisabled) {
		t.Errorf("state = %v, want disabled", got["status"])
	}
	if len(got["history"].([]any)) != 1 {
		t.Errorf("history = %v, want one row", got["history"])
	}
}

func TestBackupDownloadNotFound(t *testing.T) {
	cfg := backup.Config{
		S3:         backup.S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"},
		Passphrase: "pass",
	}
	h, _ := setupBackupHandler(t, cfg)

	req := httptest.NewRequest("GET", "/cron/backups/42/download", nil)
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.Download(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestBackupDownloadDisabled(t *testing.T) {
	h, _ := setupBackupHandler(t, backup.Config{})

	req := httptest.NewRequest("GET", "/cron/backups/1/download", nil)
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	h.Download(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestBackupDownloadBadID(t *testing.T) {
	h, _ := setupBackupHandler(t, backup.Config{})

	req := httptest.NewRequest("GET", "/cron/backups/abc/download", nil)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	h.Download(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
