package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("analytics/service")

const (
	// DefaultReportMonths is the window for the monthly spending report.
	DefaultReportMonths = 12

	// usageWindowDays is the trailing window for usage-based value scoring.
	usageWindowDays = 30
)

// Summary bundles every analysis into the single payload the insights
// screen renders.
type Summary struct {
	CurrentMonthlyTotal float64            `json:"current_monthly_total"`
	MonthlyTotals       []MonthBucket      `json:"monthly_totals"`
	Trend               TrendResult        `json:"trend"`
	Seasonal            []SeasonalPattern  `json:"seasonal_patterns"`
	Prediction          SpendingPrediction `json:"prediction"`
	UnusualCharges      []UnusualCharge    `json:"unusual_charges"`
	ValueScores         []ValueScore       `json:"value_scores"`
	AsOf                time.Time          `json:"as_of"`
}

// Service runs the analytics engine over a user's stored subscriptions
// and payments. All computation happens in memory; the reference time is
// always passed in by the caller.
type Service struct {
	repo   AnalyticsRepository
	logger *slog.Logger
}

// NewService creates a new analytics service
func NewService(repo AnalyticsRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Trend regresses the user's recent monthly spend. A non-positive months
// falls back to the default window.
func (s *Service) Trend(ctx context.Context, userID uuid.UUID, months int, asOf time.Time) (TrendResult, error) {
	if months <= 0 {
		months = DefaultTrendMonths
	}

	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return TrendResult{}, fmt.Errorf("failed to load payments: %w", err)
	}
	return AnalyzeTrend(payments, months, asOf), nil
}

// Seasonal returns the per-calendar-month spending profile
func (s *Service) Seasonal(ctx context.Context, userID uuid.UUID) ([]SeasonalPattern, error) {
	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	return DetectSeasonalPatterns(payments, DefaultSeasonalYears), nil
}

// Prediction projects upcoming spending from the current subscription
// load and the trend over the default window.
func (s *Service) Prediction(ctx context.Context, userID uuid.UUID, asOf time.Time) (SpendingPrediction, error) {
	subs, err := s.repo.ListSubscriptions(ctx, userID)
	if err != nil {
		return SpendingPrediction{}, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return SpendingPrediction{}, fmt.Errorf("failed to load payments: %w", err)
	}

	trend := AnalyzeTrend(payments, DefaultTrendMonths, asOf)
	return PredictSpending(subs, payments, trend, asOf), nil
}

// UnusualCharges flags payments that deviate from their subscription's
// history. A non-positive threshold falls back to the default.
func (s *Service) UnusualCharges(ctx context.Context, userID uuid.UUID, threshold float64, asOf time.Time) ([]UnusualCharge, error) {
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}

	subs, err := s.repo.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	return DetectUnusualCharges(subs, payments, threshold, asOf), nil
}

// ValueScores rates the user's active subscriptions. Usage counts come
// from the trailing thirty days; if they cannot be loaded the scores
// simply skip the usage adjustments.
func (s *Service) ValueScores(ctx context.Context, userID uuid.UUID, asOf time.Time) ([]ValueScore, error) {
	subs, err := s.repo.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	usage, err := s.repo.UsageCounts(ctx, userID, asOf.AddDate(0, 0, -usageWindowDays))
	if err != nil {
		s.logger.Warn("usage counts unavailable, scoring without usage", "userID", userID, "error", err)
		usage = nil
	}
	return CalculateValueScores(subs, payments, usage), nil
}

// MonthlyReport buckets the user's payments into the last months calendar
// months. A non-positive months falls back to a year.
func (s *Service) MonthlyReport(ctx context.Context, userID uuid.UUID, months int, asOf time.Time) ([]MonthBucket, error) {
	if months <= 0 {
		months = DefaultReportMonths
	}

	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	return MonthlyTotals(payments, months, asOf), nil
}

// GetSummary loads a user's data once and runs every analysis over it
func (s *Service) GetSummary(ctx context.Context, userID uuid.UUID, asOf time.Time) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "GetSummary")
	defer span.End()

	subs, err := s.repo.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	usage, err := s.repo.UsageCounts(ctx, userID, asOf.AddDate(0, 0, -usageWindowDays))
	if err != nil {
		s.logger.Warn("usage counts unavailable, scoring without usage", "userID", userID, "error", err)
		usage = nil
	}

	trend := AnalyzeTrend(payments, DefaultTrendMonths, asOf)
	return &Summary{
		CurrentMonthlyTotal: round2(CurrentMonthlyTotal(subs)),
		MonthlyTotals:       MonthlyTotals(payments, DefaultReportMonths, asOf),
		Trend:               trend,
		Seasonal:            DetectSeasonalPatterns(payments, DefaultSeasonalYears),
		Prediction:          PredictSpending(subs, payments, trend, asOf),
		UnusualCharges:      DetectUnusualCharges(subs, payments, DefaultAnomalyThreshold, asOf),
		ValueScores:         CalculateValueScores(subs, payments, usage),
		AsOf:                asOf,
	}, nil
}

// TakeSnapshot runs the analyses and persists the headline numbers
func (s *Service) TakeSnapshot(ctx context.Context, userID uuid.UUID, asOf time.Time) (*Snapshot, error) {
	ctx, span := tracer.Start(ctx, "TakeSnapshot")
	defer span.End()

	summary, err := s.GetSummary(ctx, userID, asOf)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		UserID:       userID,
		TakenAt:      asOf,
		MonthlyTotal: summary.CurrentMonthlyTotal,
		Trend:        summary.Trend,
		Prediction:   summary.Prediction,
		UnusualCount: len(summary.UnusualCharges),
	}
	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// LatestSnapshot returns the most recent stored snapshot for a user
func (s *Service) LatestSnapshot(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	return s.repo.LatestSnapshot(ctx, userID)
}

// SnapshotAll takes a snapshot for every user, skipping over individual
// failures. It returns how many snapshots were written.
func (s *Service) SnapshotAll(ctx context.Context, asOf time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "SnapshotAll")
	defer span.End()

	ids, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	written := 0
	for _, id := range ids {
		if _, err := s.TakeSnapshot(ctx, id, asOf); err != nil {
			s.logger.Warn("snapshot failed", "userID", id, "error", err)
			continue
		}
		written++
	}
	s.logger.Info("analytics snapshots written", "count", written, "users", len(ids))
	return written, nil
}
