package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authhandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/handler"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/handler"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/repository"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/service"
)

type stubRepo struct {
	subs   []*repository.Subscription
	events []*repository.UsageEvent
}

func (s *stubRepo) Create(_ context.Context, sub *repository.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = sub.CreatedAt
	s.subs = append(s.subs, sub)
	return nil
}

func (s *stubRepo) GetByID(_ context.Context, userID, id uuid.UUID) (*repository.Subscription, error) {
	for _, sub := range s.subs {
		if sub.ID == id && sub.UserID == userID {
			return sub, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubRepo) Update(_ context.Context, sub *repository.Subscription) error {
	for i, existing := range s.subs {
		if existing.ID == sub.ID && existing.UserID == sub.UserID {
			sub.CreatedAt = existing.CreatedAt
			sub.UpdatedAt = time.Now()
			s.subs[i] = sub
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	for i, sub := range s.subs {
		if sub.ID == id && sub.UserID == userID {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubRepo) ListByUserID(_ context.Context, userID uuid.UUID, statusFilter *repository.Status) ([]*repository.Subscription, error) {
	var out []*repository.Subscription
	for _, sub := range s.subs {
		if sub.UserID != userID {
			continue
		}
		if statusFilter != nil && sub.Status != *statusFilter {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, userID, id uuid.UUID, status repository.Status) error {
	for _, sub := range s.subs {
		if sub.ID == id && sub.UserID == userID {
			sub.Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubRepo) RecordUsage(_ context.Context, event *repository.UsageEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	s.events = append(s.events, event)
	return nil
}

func (s *stubRepo) UsageCounts(_ context.Context, userID uuid.UUID, since time.Time) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	for _, event := range s.events {
		if event.UserID == userID && !event.OccurredAt.Before(since) {
			counts[event.SubscriptionID]++
		}
	}
	return counts, nil
}

func newHandler(t *testing.T, repo *stubRepo) http.Handler {
	t.Helper()
	search, err := service.NewSearchIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = search.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewService(repo, search, logger)
	return handler.NewSubscriptionsHandler(svc, logger).Routes()
}

func doRequest(h http.Handler, method, target string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != uuid.Nil {
		req = req.WithContext(authhandler.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seedSub(repo *stubRepo, userID uuid.UUID, name string, price float64, status repository.Status, createdAgo time.Duration) *repository.Subscription {
	now := time.Now()
	sub := &repository.Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          name,
		Price:         price,
		CycleUnit:     repository.CycleMonthly,
		CycleInterval: 1,
		Status:        status,
		StartDate:     now.Add(-createdAgo),
		CreatedAt:     now.Add(-createdAgo),
		UpdatedAt:     now.Add(-createdAgo),
	}
	repo.subs = append(repo.subs, sub)
	return sub
}

func TestCreateAndGetSubscription(t *testing.T) {
	repo := &stubRepo{}
	h := newHandler(t, repo)
	userID := uuid.New()

	rec := doRequest(h, http.MethodPost, "/", userID, map[string]any{
		"name":       "Netflix",
		"price":      15.99,
		"cycle_unit": "monthly",
		"start_date": "2024-02-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created repository.Subscription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Netflix", created.Name)
	assert.Equal(t, repository.StatusActive, created.Status)
	assert.NotEqual(t, uuid.Nil, created.ID)

	rec = doRequest(h, http.MethodGet, "/"+created.ID.String(), userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched repository.Subscription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.InDelta(t, 15.99, fetched.Price, 1e-9)
}

func TestGetSubscription_Errors(t *testing.T) {
	repo := &stubRepo{}
	h := newHandler(t, repo)
	userID := uuid.New()

	rec := doRequest(h, http.MethodGet, "/not-a-uuid", userID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodGet, "/"+uuid.NewString(), userID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "subscription not found")

	rec = doRequest(h, http.MethodGet, "/"+uuid.NewString(), uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSubscription_Invalid(t *testing.T) {
	repo := &stubRepo{}
	h := newHandler(t, repo)

	rec := doRequest(h, http.MethodPost, "/", uuid.New(), map[string]any{
		"name":  "Netflix",
		"price": -5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "price")
}

func TestListSubscriptions(t *testing.T) {
	repo := &stubRepo{}
	userID := uuid.New()
	seedSub(repo, userID, "Netflix", 15, repository.StatusActive, 90*24*time.Hour)
	seedSub(repo, userID, "Box Service", 99, repository.StatusPaused, 90*24*time.Hour)
	seedSub(repo, uuid.New(), "Other User Sub", 5, repository.StatusActive, 90*24*time.Hour)
	h := newHandler(t, repo)

	rec := doRequest(h, http.MethodGet, "/", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Subscriptions    []repository.Subscription `json:"subscriptions"`
		TotalMonthlyCost float64                   `json:"total_monthly_cost"`
		ActiveCount      int                       `json:"active_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Subscriptions, 2)
	assert.InDelta(t, 15.0, resp.TotalMonthlyCost, 1e-9)
	assert.Equal(t, 1, resp.ActiveCount)

	rec = doRequest(h, http.MethodGet, "/?status=paused", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Subscriptions, 1)
	assert.Equal(t, "Box Service", resp.Subscriptions[0].Name)

	rec = doRequest(h, http.MethodGet, "/?status=bogus", userID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSubscription(t *testing.T) {
	repo := &stubRepo{}
	userID := uuid.New()
	sub := seedSub(repo, userID, "Netflix", 15, repository.StatusActive, 90*24*time.Hour)
	h := newHandler(t, repo)

	rec := doRequest(h, http.MethodPut, "/"+sub.ID.String(), userID, map[string]any{
		"name":  "Netflix 4K",
		"price": 22.99,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated repository.Subscription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Netflix 4K", updated.Name)
	assert.InDelta(t, 22.99, updated.Price, 1e-9)
	// Omitted fields keep their previous values
	assert.Equal(t, repository.CycleMonthly, updated.CycleUnit)
	assert.Equal(t, repository.StatusActive, updated.Status)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	repo := &stubRepo{}
	userID := uuid.New()
	sub := seedSub(repo, userID, "Netflix", 15, repository.StatusActive, 90*24*time.Hour)
	h := newHandler(t, repo)

	rec := doRequest(h, http.MethodPatch, "/"+sub.ID.String()+"/status", userID, map[string]any{
		"status": "paused",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated repository.Subscription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, repository.StatusPaused, updated.Status)

	rec = doRequest(h, http.MethodPatch, "/"+sub.ID.String()+"/status", userID, map[string]any{
		"status": "zombie",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSubscription(t *testing.T) {
	repo := &stubRepo{}
	userID := uuid.New()
	sub := seedSub(repo, userID, "Netflix", 15, repository.StatusActive, 90*24*time.Hour)
	h := newHandler(t, repo)

	rec := doRequest(h, http.MethodDelete, "/"+sub.ID.String(), userID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(h, http.MethodGet, "/"+sub.ID.String(), userID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsageEndpoints(t *testing.T) {
	repo := &stubRepo{}
	userID := uuid.New()
	sub := seedSub(repo, userID, "Gym", 30, repository.StatusActive, 90*24*time.Hour)
	h := newHandler(t, repo)

	rec := doRequest(h, http.MethodPost, "/"+sub.ID.String()+"/usage", userID, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(h, http.MethodPost, "/"+sub.ID.String()+"/usage", userID, map[string]any{
		"occurred_at": time.Now().AddDate(0, 0, -2).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(h, http.MethodGet, "/usage?days=30", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Counts     map[string]int `json:"counts"`
		WindowDays int            `json:"window_days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 30, resp.WindowDays)
	assert.Equal(t, 2, resp.Counts[sub.ID.String()])

	// Usage against an unknown subscription is a 404
	rec = doRequest(h, http.MethodPost, "/"+uuid.NewString()+"/usage", userID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewEndpoint(t *testing.T) {
	repo := &stubRepo{}
	userID := uuid.New()
	seedSub(repo, userID, "Design Suite", 60, repository.StatusActive, 180*24*time.Hour)
	h := newHandler(t, repo)

	rec := doRequest(h, http.MethodGet, "/review", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"items"`
		PotentialSavings float64 `json:"potential_savings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "high_cost", resp.Items[0].Reason)
}

func TestDuplicatesEndpoint(t *testing.T) {
	repo := &stubRepo{}
	userID := uuid.New()
	seedSub(repo, userID, "Netflix", 15, repository.StatusActive, 90*24*time.Hour)
	seedSub(repo, userID, "Netflix Premium", 20, repository.StatusActive, 90*24*time.Hour)
	seedSub(repo, userID, "Spotify", 10, repository.StatusActive, 90*24*time.Hour)
	h := newHandler(t, repo)

	rec := doRequest(h, http.MethodGet, "/duplicates", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Groups []struct {
			Subscriptions []repository.Subscription `json:"subscriptions"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 1)
	assert.Len(t, resp.Groups[0].Subscriptions, 2)
}

func TestSearchEndpoint(t *testing.T) {
	repo := &stubRepo{}
	userID := uuid.New()
	seedSub(repo, userID, "Science Journal", 12, repository.StatusActive, 90*24*time.Hour)
	h := newHandler(t, repo)

	rec := doRequest(h, http.MethodGet, "/search?q=journal", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Hits []struct {
			Name  string  `json:"name"`
			Score float64 `json:"score"`
		} `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "Science Journal", resp.Hits[0].Name)

	rec = doRequest(h, http.MethodGet, "/search", userID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
