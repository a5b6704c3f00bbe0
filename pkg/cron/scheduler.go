// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/analytics"
	authservice "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/service"
	subsservice "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/service"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/config"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/mailer"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/observability"
)

// maxDigestRecommendations caps the review items quoted in one email.
const maxDigestRecommendations = 5

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron          *cron.Cron
	cfg           config.JobsConfig
	analyticsRepo analytics.AnalyticsRepository
	analytics     *analytics.Service
	subscriptions *subsservice.Service
	auth          *authservice.AuthService
	mailer        *mailer.Mailer
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(
	cfg config.JobsConfig,
	analyticsRepo analytics.AnalyticsRepository,
	analyticsService *analytics.Service,
	subscriptionsService *subsservice.Service,
	authService *authservice.AuthService,
	mail *mailer.Mailer,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Scheduler {
	// Standard 5-field cron format, no seconds
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:          c,
		cfg:           cfg,
		analyticsRepo: analyticsRepo,
		analytics:     analyticsService,
		subscriptions: subscriptionsService,
		auth:          authService,
		mailer:        mail,
		metrics:       metrics,
		logger:        logger,
	}
}

// Start registers and begins the scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SnapshotSpec, s.runNightlyMaintenance); err != nil {
		return fmt.Errorf("failed to schedule snapshot job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.DigestSpec, s.runWeeklyDigest); err != nil {
		return fmt.Errorf("failed to schedule digest job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunSnapshotNow manually triggers the nightly maintenance (for admin/testing).
func (s *Scheduler) RunSnapshotNow() {
	go s.runNightlyMaintenance()
}

// runNightlyMaintenance snapshots every user's analytics and reaps
// expired refresh sessions.
func (s *Scheduler) runNightlyMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	s.logger.Info("starting nightly maintenance")

	var jobErr error

	written, err := s.analytics.SnapshotAll(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("nightly snapshot run failed", slog.Any("error", err))
		jobErr = err
	}

	reaped, err := s.auth.PurgeExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("failed to purge expired sessions", slog.Any("error", err))
		if jobErr == nil {
			jobErr = err
		}
	}

	s.metrics.RecordJob("nightly_maintenance", time.Since(start), jobErr)
	s.logger.Info("nightly maintenance completed",
		slog.Int("snapshots_written", written),
		slog.Int64("sessions_purged", reaped),
	)
}

// runWeeklyDigest emails every active user their spending digest.
func (s *Scheduler) runWeeklyDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	s.logger.Info("starting weekly digest run")

	ids, err := s.analyticsRepo.ListUserIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list users for digest", slog.Any("error", err))
		s.metrics.RecordJob("weekly_digest", time.Since(start), err)
		return
	}

	sent := 0
	failed := 0
	for _, userID := range ids {
		ok, err := s.sendDigest(ctx, userID)
		if err != nil {
			s.logger.Warn("failed to send digest",
				slog.String("user_id", userID.String()),
				slog.Any("error", err),
			)
			failed++
			continue
		}
		if ok {
			sent++
		}
	}

	s.metrics.RecordJob("weekly_digest", time.Since(start), nil)
	s.logger.Info("weekly digest run completed",
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)
}

// sendDigest builds and sends one user's digest. It reports false when
// the user is skipped (inactive, or no snapshot to report on yet).
func (s *Scheduler) sendDigest(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.auth.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return false, nil
	}

	snap, err := s.analytics.LatestSnapshot(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		// Nothing to report until the nightly job has seen this user.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var recommendations []string
	checklist, err := s.subscriptions.GetReviewChecklist(ctx, userID)
	if err != nil {
		s.logger.Warn("review checklist unavailable for digest",
			slog.String("user_id", userID.String()),
			slog.Any("error", err),
		)
	} else {
		for _, item := range checklist.Items {
			recommendations = append(recommendations, item.Message)
			if len(recommendations) == maxDigestRecommendations {
				break
			}
		}
	}

	err = s.mailer.SendWeeklyDigest(user.Email, mailer.Digest{
		Name:            user.DisplayName,
		MonthlyTotal:    snap.MonthlyTotal,
		TrendDirection:  string(snap.Trend.Direction),
		Recommendations: recommendations,
	})
	if err != nil {
		return false, fmt.Errorf("failed to send digest email: %w", err)
	}
	return true, nil
}
