// Package handler implements the subscriptions HTTP handlers.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	authhandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/handler"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/repository"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/service"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/httputil"
)

const maxSearchResults = 50

// SubscriptionsHandler implements the subscription HTTP endpoints
type SubscriptionsHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewSubscriptionsHandler constructs a new handler
func NewSubscriptionsHandler(svc *service.Service, logger *slog.Logger) *SubscriptionsHandler {
	return &SubscriptionsHandler{svc: svc, logger: logger}
}

// Routes returns the subscription route tree
func (h *SubscriptionsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/search", h.Search)
	r.Get("/review", h.Review)
	r.Get("/duplicates", h.Duplicates)
	r.Get("/usage", h.UsageCounts)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/usage", h.RecordUsage)
	return r
}

// subscriptionRequest is the JSON body for create and update
type subscriptionRequest struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	CycleUnit     string  `json:"cycle_unit"`
	CycleInterval int     `json:"cycle_interval"`
	Status        string  `json:"status"`
	StartDate     string  `json:"start_date"`
}

// List returns the user's subscriptions with the active monthly total
func (h *SubscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var statusFilter *repository.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := repository.Status(raw)
		if !status.Valid() {
			httputil.Error(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", raw))
			return
		}
		statusFilter = &status
	}

	subs, err := h.svc.ListSubscriptions(r.Context(), userID, statusFilter)
	if err != nil {
		h.logger.Error("failed to list subscriptions", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}

	totalMonthly, activeCount, err := h.svc.TotalMonthlyCost(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to compute monthly cost", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}

	if subs == nil {
		subs = []*repository.Subscription{}
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"subscriptions":      subs,
		"total_monthly_cost": totalMonthly,
		"active_count":       activeCount,
	})
}

// Create adds a new subscription
func (h *SubscriptionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	sub, ok := h.decodeSubscription(w, r, userID)
	if !ok {
		return
	}

	created, err := h.svc.CreateSubscription(r.Context(), sub)
	if err != nil {
		h.writeServiceError(w, err, "failed to create subscription")
		return
	}
	httputil.JSON(w, http.StatusCreated, created)
}

// Get returns one subscription
func (h *SubscriptionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	sub, err := h.svc.GetSubscription(r.Context(), userID, id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get subscription")
		return
	}
	httputil.JSON(w, http.StatusOK, sub)
}

// Update replaces a subscription's editable fields
func (h *SubscriptionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	existing, err := h.svc.GetSubscription(r.Context(), userID, id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get subscription")
		return
	}

	sub, ok := h.decodeSubscription(w, r, userID)
	if !ok {
		return
	}
	sub.ID = id
	if sub.CycleUnit == "" {
		sub.CycleUnit = existing.CycleUnit
	}
	if sub.CycleInterval == 0 {
		sub.CycleInterval = existing.CycleInterval
	}
	if sub.Status == "" {
		sub.Status = existing.Status
	}
	if sub.StartDate.IsZero() {
		sub.StartDate = existing.StartDate
	}

	updated, err := h.svc.UpdateSubscription(r.Context(), sub)
	if err != nil {
		h.writeServiceError(w, err, "failed to update subscription")
		return
	}
	httputil.JSON(w, http.StatusOK, updated)
}

// Delete removes a subscription
func (h *SubscriptionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteSubscription(r.Context(), userID, id); err != nil {
		h.writeServiceError(w, err, "failed to delete subscription")
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

// UpdateStatus changes only a subscription's status
func (h *SubscriptionsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.svc.UpdateStatus(r.Context(), userID, id, repository.Status(req.Status))
	if err != nil {
		h.writeServiceError(w, err, "failed to update status")
		return
	}
	httputil.JSON(w, http.StatusOK, sub)
}

// RecordUsage records one use of a subscription
func (h *SubscriptionsHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var occurredAt time.Time
	if r.ContentLength != 0 {
		var req struct {
			OccurredAt string `json:"occurred_at"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.OccurredAt != "" {
			parsed, err := parseDate(req.OccurredAt)
			if err != nil {
				httputil.Error(w, http.StatusBadRequest, "invalid occurred_at date")
				return
			}
			occurredAt = parsed
		}
	}

	event, err := h.svc.RecordUsage(r.Context(), userID, id, occurredAt)
	if err != nil {
		h.writeServiceError(w, err, "failed to record usage")
		return
	}
	httputil.JSON(w, http.StatusCreated, event)
}

// UsageCounts returns per-subscription usage counts over a trailing window
func (h *SubscriptionsHandler) UsageCounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	days := httputil.QueryInt(r, "days", 30, 1, 365)
	counts, err := h.svc.UsageCounts(r.Context(), userID, days)
	if err != nil {
		h.logger.Error("failed to load usage counts", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to load usage counts")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"counts":      counts,
		"window_days": days,
	})
}

// Review returns the review checklist for the user's subscriptions
func (h *SubscriptionsHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	checklist, err := h.svc.GetReviewChecklist(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to build review checklist", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to build review checklist")
		return
	}
	httputil.JSON(w, http.StatusOK, checklist)
}

// Duplicates returns groups of subscriptions with near-identical names
func (h *SubscriptionsHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	groups, err := h.svc.FindDuplicates(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to find duplicates", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to find duplicates")
		return
	}
	if groups == nil {
		groups = []*service.DuplicateGroup{}
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// Search runs a fuzzy name search over the user's subscriptions
func (h *SubscriptionsHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.Error(w, http.StatusBadRequest, "missing search query")
		return
	}
	limit := httputil.QueryInt(r, "limit", 10, 1, maxSearchResults)

	hits, err := h.svc.SearchSubscriptions(r.Context(), userID, query, limit)
	if err != nil {
		h.logger.Error("failed to search subscriptions", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to search subscriptions")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"hits": hits})
}

func (h *SubscriptionsHandler) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := authhandler.UserIDFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *SubscriptionsHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid subscription id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *SubscriptionsHandler) decodeSubscription(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*repository.Subscription, bool) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	var startDate time.Time
	if req.StartDate != "" {
		parsed, err := parseDate(req.StartDate)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid start_date")
			return nil, false
		}
		startDate = parsed
	}

	return &repository.Subscription{
		UserID:        userID,
		Name:          req.Name,
		Price:         req.Price,
		CycleUnit:     repository.CycleUnit(req.CycleUnit),
		CycleInterval: req.CycleInterval,
		Status:        repository.Status(req.Status),
		StartDate:     startDate,
	}, true
}

func (h *SubscriptionsHandler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidSubscription):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case service.IsNotFound(err):
		httputil.Error(w, http.StatusNotFound, "subscription not found")
	default:
		h.logger.Error(msg, slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, msg)
	}
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
