// Package admin exposes operations endpoints: demo-data seeding and a
// manual snapshot trigger. The router only mounts these when the seed
// flag is enabled.
package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authhandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/handler"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/cron"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/httputil"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/seed"
)

type Handler struct {
	seeder    *seed.Seeder
	scheduler *cron.Scheduler
	logger    *slog.Logger
}

func NewHandler(seeder *seed.Seeder, scheduler *cron.Scheduler, logger *slog.Logger) *Handler {
	return &Handler{seeder: seeder, scheduler: scheduler, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/seed", h.Seed)
	r.Post("/snapshot", h.Snapshot)
	return r
}

// Seed populates the authenticated account with demo subscriptions,
// payments and usage history.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	userID, ok := authhandler.UserIDFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	months := httputil.QueryInt(r, "months", 12, 1, 36)

	result, err := h.seeder.SeedUser(r.Context(), userID, months)
	if err != nil {
		h.logger.Error("demo seed failed",
			slog.String("user_id", userID.String()),
			slog.Any("error", err),
		)
		httputil.Error(w, http.StatusInternalServerError, "failed to seed demo data")
		return
	}

	httputil.JSON(w, http.StatusCreated, result)
}

// Snapshot kicks off the nightly maintenance run immediately.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "scheduler is not running")
		return
	}

	h.scheduler.RunSnapshotNow()
	httputil.JSON(w, http.StatusAccepted, map[string]string{"status": "snapshot scheduled"})
}
