package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/exhale-app/exhale/internal/backup"
	"github.com/exhale-app/exhale/internal/database"
	"github.com/exhale-app/exhale/internal/email"
	"github.com/exhale-app/exhale/internal/logging"
	"github.com/exhale-app/exhale/internal/push"
	"github.com/exhale-app/exhale/internal/server"
)

func main() {
	// A missing .env is fine; real deployments set env directly.
	godotenv.Load()

	logger := logging.Setup(os.Getenv("EXHALE_LOG_LEVEL"))

	port := os.Getenv("EXHALE_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("EXHALE_DB_PATH")
	if dbPath == "" {
		dbPath = "exhale.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	baseURL := os.Getenv("EXHALE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}
	emailClient := email.NewClient(
		os.Getenv("EXHALE_RESEND_API_KEY"),
		os.Getenv("EXHALE_EMAIL_FROM"),
		baseURL,
	)
	if !emailClient.Configured() {
		logger.Warn("email not configured, check-in reminders will fail to send")
	}

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("EXHALE_S3_ENDPOINT"),
			Bucket:    os.Getenv("EXHALE_S3_BUCKET"),
			Region:    os.Getenv("EXHALE_S3_REGION"),
			AccessKey: os.Getenv("EXHALE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("EXHALE_S3_SECRET_KEY"),
		},
		DBPath:        dbPath,
		Passphrase:    os.Getenv("EXHALE_BACKUP_PASSPHRASE"),
		ScheduleHour:  envInt("EXHALE_BACKUP_HOUR", 3),
		RetentionDays: envInt("EXHALE_BACKUP_RETENTION_DAYS", 30),
	}

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("EXHALE_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("EXHALE_VAPID_PRIVATE_KEY"),
	}

	cronSecret := os.Getenv("EXHALE_CRON_SECRET")
	if cronSecret == "" {
		logger.Warn("EXHALE_CRON_SECRET not set, /cron endpoints disabled")
	}

	srv := server.New(db, emailClient, cronSecret, backupCfg, pushCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.Sender().Start(ctx)
	defer srv.Sender().Stop()

	if srv.BackupManager().Enabled() {
		srv.BackupManager().Start(ctx)
		defer srv.BackupManager().Stop()
	}

	// Hourly janitor for expired sessions and stale rate limit rows.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup failed", "error", err)
				}
				if _, err := srv.RateLimitStore().Cleanup(time.Now().Add(-24 * time.Hour)); err != nil {
					logger.Error("rate limit cleanup failed", "error", err)
				}
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("exhale listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
