package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/exhale-app/exhale/internal/checkin"
)

type CronHandler struct {
	sender *checkin.Sender
	logger *slog.Logger
}

func NewCronHandler(sender *checkin.Sender, logger *slog.Logger) *CronHandler {
	return &CronHandler{sender: sender, logger: logger}
}

// RunCheckIns handles GET|POST /cron/check-ins. External schedulers hit
// this; the same sweep also runs on the internal ticker, so overlap is
// harmless.
func (h *CronHandler) RunCheckIns(w http.ResponseWriter, r *http.Request) {
	sum := h.sender.ProcessScheduledCheckIns(r.Context(), time.Now().UTC())
	h.logger.Info("cron sweep", "processed", sum.Processed, "sent", sum.Sent, "errors", len(sum.Errors))
	writeJSON(w, http.StatusOK, sum)
}
