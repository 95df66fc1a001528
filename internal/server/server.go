package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/exhale-app/exhale/internal/backup"
	"github.com/exhale-app/exhale/internal/checkin"
	"github.com/exhale-app/exhale/internal/email"
	"github.com/exhale-app/exhale/internal/handler"
	"github.com/exhale-app/exhale/internal/middleware"
	"github.com/exhale-app/exhale/internal/push"
	"github.com/exhale-app/exhale/internal/store"
	ws "github.com/exhale-app/exhale/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	checkInH       *handler.CheckInHandler
	cronH          *handler.CronHandler
	backupH        *handler.BackupHandler
	profileH       *handler.ProfileHandler
	pushH          *handler.PushHandler
	sessionStore   *store.SessionStore
	rateLimitStore *store.RateLimitStore
	pushStore      *store.PushStore
	sender         *checkin.Sender
	backupManager  *backup.Manager
	pushService    *push.Service
	cronSecret     string
	logger         *slog.Logger
}

// fanoutNotifier delivers check-in reminders over every secondary
// channel. Email is the primary channel and is handled by the sender
// itself.
type fanoutNotifier struct {
	targets []checkin.Notifier
}

func (f *fanoutNotifier) CheckInReminder(userID int64, checkInID string) {
	for _, t := range f.targets {
		t.CheckInReminder(userID, checkInID)
	}
}

func (f *fanoutNotifier) MilestoneReminder(userID int64, milestoneID string) {
	for _, t := range f.targets {
		t.MilestoneReminder(userID, milestoneID)
	}
}

func New(db *sql.DB, emailClient *email.Client, cronSecret string, backupCfg backup.Config, pushCfg push.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	checkInStore := store.NewCheckInStore(db)
	followUpStore := store.NewFollowUpStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	rateLimitStore := store.NewRateLimitStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	backupMgr := backup.NewManager(backupCfg, db, backupStore, logger)

	// Web push is optional; without VAPID keys the notifier quietly
	// skips its sends but the hub still broadcasts.
	pushSvc := push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
	pushNotifier := push.NewNotifier(pushSvc, pushStore, logger)

	notify := &fanoutNotifier{targets: []checkin.Notifier{pushNotifier, hub}}
	sender := checkin.NewSender(checkInStore, followUpStore, userStore, emailClient, notify, logger)
	scheduler := checkin.NewScheduler(checkInStore, logger)

	return &Server{
		db:             db,
		hub:            hub,
		checkInH:       handler.NewCheckInHandler(checkInStore, followUpStore, userStore, scheduler, hub, logger.With("component", "checkin_handler")),
		cronH:          handler.NewCronHandler(sender, logger.With("component", "cron")),
		backupH:        handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		profileH:       handler.NewProfileHandler(userStore, logger.With("component", "profile")),
		pushH:          handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		sessionStore:   sessionStore,
		rateLimitStore: rateLimitStore,
		pushStore:      pushStore,
		sender:         sender,
		backupManager:  backupMgr,
		pushService:    pushSvc,
		cronSecret:     cronSecret,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimitStore returns the rate limit store for cleanup tasks.
func (s *Server) RateLimitStore() *store.RateLimitStore {
	return s.rateLimitStore
}

// Sender returns the check-in sender for background sweeps.
func (s *Server) Sender() *checkin.Sender {
	return s.sender
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /api/check-ins/open/{token}", s.rateLimitedByIP(s.checkInH.Open))

	// Cron sweep, guarded by a shared secret
	cronGuard := middleware.RequireCronSecret(s.cronSecret)
	outerMux.Handle("GET /cron/check-ins", cronGuard(http.HandlerFunc(s.cronH.RunCheckIns)))
	outerMux.Handle("POST /cron/check-ins", cronGuard(http.HandlerFunc(s.cronH.RunCheckIns)))
	outerMux.Handle("GET /cron/backups", cronGuard(http.HandlerFunc(s.backupH.Status)))
	outerMux.Handle("GET /cron/backups/{id}/download", cronGuard(http.HandlerFunc(s.backupH.Download)))

	// Protected routes behind bearer session auth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireUser(s.sessionStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))
	outerMux.Handle("GET /ws", authMiddleware(ws.HandleWebSocket(s.hub)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedByIP(h http.HandlerFunc) http.Handler {
	rl := middleware.RateLimit(s.rateLimitStore, s.logger, middleware.RealIP, 10, time.Minute)
	return rl(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Check-in API routes
	mux.Handle("POST /api/check-ins/schedule", s.rateLimitedByIP(s.checkInH.Schedule))
	mux.HandleFunc("GET /api/check-ins/pending", s.checkInH.Pending)
	mux.HandleFunc("GET /api/check-ins/interstitial", s.checkInH.Interstitial)
	mux.HandleFunc("POST /api/check-ins/{id}/complete", s.checkInH.Complete)
	mux.HandleFunc("POST /api/check-ins/{id}/skip", s.checkInH.Skip)

	// Ceremony and follow-up milestones
	mux.HandleFunc("POST /api/ceremony/complete", s.checkInH.CeremonyComplete)
	mux.HandleFunc("GET /api/follow-ups", s.checkInH.ListFollowUps)
	mux.HandleFunc("POST /api/follow-ups/{id}/complete", s.checkInH.CompleteFollowUp)
	mux.HandleFunc("POST /api/follow-ups/{id}/skip", s.checkInH.SkipFollowUp)

	// Profile
	mux.HandleFunc("GET /api/profile", s.profileH.Get)
	mux.HandleFunc("PUT /api/profile/timezone", s.profileH.UpdateTimezone)

	// Push notification API routes
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
}
