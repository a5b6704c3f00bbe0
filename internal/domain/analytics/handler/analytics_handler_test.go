package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/analytics"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/analytics/handler"
	authhandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/handler"
)

type stubRepo struct {
	subs      []analytics.Subscription
	payments  []analytics.Payment
	usage     map[string]int
	userIDs   []uuid.UUID
	snapshots []*analytics.Snapshot
}

func (m *stubRepo) ListSubscriptions(_ context.Context, _ uuid.UUID) ([]analytics.Subscription, error) {
	return m.subs, nil
}

func (m *stubRepo) ListPayments(_ context.Context, _ uuid.UUID) ([]analytics.Payment, error) {
	return m.payments, nil
}

func (m *stubRepo) UsageCounts(_ context.Context, _ uuid.UUID, _ time.Time) (map[string]int, error) {
	return m.usage, nil
}

func (m *stubRepo) SaveSnapshot(_ context.Context, snap *analytics.Snapshot) error {
	m.snapshots = append(m.snapshots, snap)
	return nil
}

func (m *stubRepo) LatestSnapshot(_ context.Context, _ uuid.UUID) (*analytics.Snapshot, error) {
	if len(m.snapshots) == 0 {
		return nil, sql.ErrNoRows
	}
	return m.snapshots[len(m.snapshots)-1], nil
}

func (m *stubRepo) ListUserIDs(_ context.Context) ([]uuid.UUID, error) {
	return m.userIDs, nil
}

func newHandler(repo analytics.AnalyticsRepository) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := analytics.NewService(repo, logger)
	return handler.NewAnalyticsHandler(svc, logger).Routes()
}

func doRequest(h http.Handler, method, target string, userID uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if userID != uuid.Nil {
		req = req.WithContext(authhandler.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// monthlyHistory builds one paid payment per amount, one calendar month
// apart starting March 2025.
func monthlyHistory(subID string, amounts ...float64) []analytics.Payment {
	payments := make([]analytics.Payment, 0, len(amounts))
	for i, amount := range amounts {
		payments = append(payments, analytics.Payment{
			ID:             fmt.Sprintf("pay-%d", i),
			SubscriptionID: subID,
			Amount:         amount,
			Date:           time.Date(2025, time.Month(3+i), 10, 0, 0, 0, 0, time.UTC),
			Status:         analytics.PaymentPaid,
		})
	}
	return payments
}

func streamMax(price float64) analytics.Subscription {
	return analytics.Subscription{
		ID:        "sub-1",
		Name:      "StreamMax",
		Price:     price,
		Cycle:     analytics.BillingCycle{Unit: analytics.CycleMonthly, Interval: 1},
		Status:    analytics.StatusActive,
		StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestTrendEndpoint(t *testing.T) {
	repo := &stubRepo{
		subs:     []analytics.Subscription{streamMax(100)},
		payments: monthlyHistory("sub-1", 100, 100, 100, 100, 100, 100),
	}
	h := newHandler(repo)

	rec := doRequest(h, http.MethodGet, "/trend?months=6&as_of=2025-08-15", uuid.New())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var trend analytics.TrendResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&trend))
	assert.Equal(t, analytics.TrendStable, trend.Direction)
	assert.Equal(t, 0.0, trend.Percentage)
	assert.Equal(t, 100.0, trend.Forecast)
	assert.Equal(t, analytics.ConfidenceHigh, trend.Confidence)
}

func TestTrendEndpoint_InvalidAsOf(t *testing.T) {
	h := newHandler(&stubRepo{})

	rec := doRequest(h, http.MethodGet, "/trend?as_of=yesterday", uuid.New())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid as_of date")
}

func TestTrendEndpoint_Unauthenticated(t *testing.T) {
	h := newHandler(&stubRepo{})

	rec := doRequest(h, http.MethodGet, "/trend", uuid.Nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "authentication required")
}

func TestUnusualChargesEndpoint_ThresholdKnob(t *testing.T) {
	// The 100 sits exactly two standard deviations from the mean of 28,
	// under the default cutoff of 2.5 but over an explicit 1.5.
	repo := &stubRepo{
		subs:     []analytics.Subscription{streamMax(10)},
		payments: monthlyHistory("sub-1", 10, 10, 10, 10, 100),
	}
	h := newHandler(repo)
	userID := uuid.New()

	rec := doRequest(h, http.MethodGet, "/unusual-charges?as_of=2025-08-15", userID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Charges []analytics.UnusualCharge `json:"charges"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Charges)

	rec = doRequest(h, http.MethodGet, "/unusual-charges?threshold=1.5&as_of=2025-08-15", userID)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Charges, 1)
	require.NotNil(t, resp.Charges[0].Payment)
	assert.Equal(t, 100.0, resp.Charges[0].Payment.Amount)
}

func TestSummaryEndpoint(t *testing.T) {
	repo := &stubRepo{subs: []analytics.Subscription{streamMax(15)}}
	h := newHandler(repo)

	rec := doRequest(h, http.MethodGet, "/summary?as_of=2025-08-15", uuid.New())
	require.Equal(t, http.StatusOK, rec.Code)

	var summary analytics.Summary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, 15.0, summary.CurrentMonthlyTotal)
	assert.Equal(t, 15.0, summary.Prediction.NextMonth)
	assert.Len(t, summary.MonthlyTotals, 12)
	assert.Len(t, summary.Seasonal, 12)
}

func TestSnapshotEndpoints(t *testing.T) {
	repo := &stubRepo{subs: []analytics.Subscription{streamMax(15)}}
	h := newHandler(repo)
	userID := uuid.New()

	rec := doRequest(h, http.MethodGet, "/snapshot", userID)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no snapshot available")

	rec = doRequest(h, http.MethodPost, "/snapshot?as_of=2025-08-15", userID)
	require.Equal(t, http.StatusCreated, rec.Code)

	var snap analytics.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, 15.0, snap.MonthlyTotal)
	require.Len(t, repo.snapshots, 1)

	rec = doRequest(h, http.MethodGet, "/snapshot", userID)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestExportCSV(t *testing.T) {
	repo := &stubRepo{
		subs:     []analytics.Subscription{streamMax(15)},
		payments: monthlyHistory("sub-1", 15, 15, 15),
	}
	h := newHandler(repo)

	rec := doRequest(h, http.MethodGet, "/export?format=csv&months=3&as_of=2025-08-15", uuid.New())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "spending-report.csv")

	body := rec.Body.String()
	assert.Contains(t, body, "month,total")
	assert.Contains(t, body, "Jun 2025")
	assert.Contains(t, body, "subscription,price,score,tier,cost_per_use")
	assert.Contains(t, body, "StreamMax")
}

func TestExportXLSX(t *testing.T) {
	repo := &stubRepo{
		subs:     []analytics.Subscription{streamMax(15)},
		payments: monthlyHistory("sub-1", 15, 15, 15),
	}
	h := newHandler(repo)

	rec := doRequest(h, http.MethodGet, "/export?format=xlsx&as_of=2025-08-15", uuid.New())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "spending-report.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Monthly Totals", "Value Scores"}, f.GetSheetList())

	cell, err := f.GetCellValue("Monthly Totals", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Month", cell)

	cell, err = f.GetCellValue("Value Scores", "A2")
	require.NoError(t, err)
	assert.Equal(t, "StreamMax", cell)
}

func TestExportUnknownFormat(t *testing.T) {
	h := newHandler(&stubRepo{})

	rec := doRequest(h, http.MethodGet, "/export?format=pdf", uuid.New())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "format must be csv or xlsx")
}
