// Package handler implements the analytics HTTP handlers.
package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/analytics"
	authhandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/handler"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/httputil"
)

// maxWindowMonths caps the months query knob on windowed endpoints.
const maxWindowMonths = 120

// AnalyticsHandler serves the spending analytics endpoints.
type AnalyticsHandler struct {
	svc    *analytics.Service
	logger *slog.Logger
}

// NewAnalyticsHandler constructs a new handler.
func NewAnalyticsHandler(svc *analytics.Service, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, logger: logger}
}

// Routes returns the analytics route tree, mounted by the router under
// /v1/analytics.
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/trend", h.Trend)
	r.Get("/seasonal", h.Seasonal)
	r.Get("/prediction", h.Prediction)
	r.Get("/unusual-charges", h.UnusualCharges)
	r.Get("/value-scores", h.ValueScores)
	r.Get("/monthly-totals", h.MonthlyTotals)
	r.Get("/summary", h.Summary)
	r.Get("/export", h.Export)
	r.Get("/snapshot", h.LatestSnapshot)
	r.Post("/snapshot", h.TakeSnapshot)
	return r
}

// Trend returns the spending trend over the requested window of months.
func (h *AnalyticsHandler) Trend(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid as_of date")
		return
	}
	months := httputil.QueryInt(r, "months", 0, 0, maxWindowMonths)

	trend, err := h.svc.Trend(r.Context(), userID, months, asOf)
	if err != nil {
		h.logger.Error("failed to compute trend", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to compute trend")
		return
	}
	httputil.JSON(w, http.StatusOK, trend)
}

// Seasonal returns per-calendar-month spending averages with peak and low
// months flagged.
func (h *AnalyticsHandler) Seasonal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	patterns, err := h.svc.Seasonal(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to compute seasonal patterns", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to compute seasonal patterns")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"patterns": patterns})
}

// Prediction returns the projected spend for the next month, quarter and
// year together with recommendations.
func (h *AnalyticsHandler) Prediction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid as_of date")
		return
	}

	prediction, err := h.svc.Prediction(r.Context(), userID, asOf)
	if err != nil {
		h.logger.Error("failed to compute prediction", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to compute prediction")
		return
	}
	httputil.JSON(w, http.StatusOK, prediction)
}

// UnusualCharges returns payments deviating from their subscription's
// history plus recently added subscriptions. The threshold query knob sets
// the z-score cutoff.
func (h *AnalyticsHandler) UnusualCharges(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid as_of date")
		return
	}
	threshold := httputil.QueryFloat(r, "threshold", 0)

	charges, err := h.svc.UnusualCharges(r.Context(), userID, threshold, asOf)
	if err != nil {
		h.logger.Error("failed to detect unusual charges", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to detect unusual charges")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"charges": charges})
}

// ValueScores rates each active subscription on price, usage and billing
// cycle.
func (h *AnalyticsHandler) ValueScores(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid as_of date")
		return
	}

	scores, err := h.svc.ValueScores(r.Context(), userID, asOf)
	if err != nil {
		h.logger.Error("failed to compute value scores", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to compute value scores")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"scores": scores})
}

// MonthlyTotals returns the per-month payment totals for the requested
// window.
func (h *AnalyticsHandler) MonthlyTotals(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid as_of date")
		return
	}
	months := httputil.QueryInt(r, "months", 0, 0, maxWindowMonths)

	report, err := h.svc.MonthlyReport(r.Context(), userID, months, asOf)
	if err != nil {
		h.logger.Error("failed to build monthly report", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to build monthly report")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"months": report})
}

// Summary returns the combined analytics view backing the insights screen.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid as_of date")
		return
	}

	summary, err := h.svc.GetSummary(r.Context(), userID, asOf)
	if err != nil {
		h.logger.Error("failed to build summary", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	httputil.JSON(w, http.StatusOK, summary)
}

// LatestSnapshot returns the most recent stored analytics snapshot.
func (h *AnalyticsHandler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	snap, err := h.svc.LatestSnapshot(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.Error(w, http.StatusNotFound, "no snapshot available")
			return
		}
		h.logger.Error("failed to load snapshot", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	httputil.JSON(w, http.StatusOK, snap)
}

// TakeSnapshot computes and stores a snapshot of the user's analytics.
func (h *AnalyticsHandler) TakeSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid as_of date")
		return
	}

	snap, err := h.svc.TakeSnapshot(r.Context(), userID, asOf)
	if err != nil {
		h.logger.Error("failed to take snapshot", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to take snapshot")
		return
	}
	httputil.JSON(w, http.StatusCreated, snap)
}

func (h *AnalyticsHandler) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := authhandler.UserIDFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return userID, ok
}

// asOfParam reads the optional as_of query parameter, defaulting to the
// current time.
func asOfParam(r *http.Request) (time.Time, error) {
	asOf, err := httputil.QueryTime(r, "as_of")
	if err != nil {
		return time.Time{}, err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return asOf, nil
}
