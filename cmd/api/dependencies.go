package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/admin"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/analytics"
	analyticshandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/analytics/handler"
	authhandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/handler"
	authrepo "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/repository"
	authservice "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/service"
	importhandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/handler"
	importrepo "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/repository"
	importservice "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/service"
	subscriptionshandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/handler"
	subscriptionsrepo "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/repository"
	subscriptionsservice "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/service"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/config"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/cron"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/db"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/mailer"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/observability"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/seed"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Metrics *observability.Metrics

	// Repositories
	AuthRepo          authrepo.AuthRepository
	SubscriptionsRepo subscriptionsrepo.SubscriptionRepository
	ImportRepo        importrepo.ImportRepository
	AnalyticsRepo     analytics.AnalyticsRepository

	// Services
	TokenManager         authservice.TokenManager
	AuthService          *authservice.AuthService
	SubscriptionsService *subscriptionsservice.Service
	SearchIndex          *subscriptionsservice.SearchIndex
	ImportService        *importservice.ImportService
	AnalyticsService     *analytics.Service
	Mailer               *mailer.Mailer
	Seeder               *seed.Seeder
	Scheduler            *cron.Scheduler

	// Handlers
	AuthHandler          *authhandler.AuthHandler
	SubscriptionsHandler *subscriptionshandler.SubscriptionsHandler
	AnalyticsHandler     *analyticshandler.AnalyticsHandler
	ImportHandler        *importhandler.ImportHandler
	AdminHandler         *admin.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	if err := deps.initJobs(); err != nil {
		return nil, fmt.Errorf("failed to init jobs: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.AuthRepo = authrepo.NewPostgresAuthRepository(d.DB.Pool)
	d.SubscriptionsRepo = subscriptionsrepo.NewPostgresSubscriptionRepository(d.DB.Pool)
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
	d.AnalyticsRepo = analytics.NewRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	jwtSecret := d.Config.Auth.JWTSecret
	if jwtSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}

	accessTokenTTL := 15 * time.Minute
	refreshTokenTTL := 30 * 24 * time.Hour

	d.TokenManager = authservice.NewJWTTokenManager(jwtSecret, "", accessTokenTTL, refreshTokenTTL)

	d.Mailer = mailer.New(d.Config.Mailer.ResendAPIKey, d.Config.Mailer.FromAddress, d.Metrics, d.Logger)

	d.AuthService = authservice.NewAuthService(
		d.AuthRepo,
		d.TokenManager,
		d.Mailer,
		d.Logger,
		refreshTokenTTL,
	)

	searchIndex, err := subscriptionsservice.NewSearchIndex()
	if err != nil {
		return fmt.Errorf("failed to init search index: %w", err)
	}
	d.SearchIndex = searchIndex
	d.SubscriptionsService = subscriptionsservice.NewService(d.SubscriptionsRepo, searchIndex, d.Logger)

	// Import matches statement rows against the user's subscriptions
	d.ImportService = importservice.NewImportService(d.ImportRepo, d.SubscriptionsRepo, d.Logger)

	d.AnalyticsService = analytics.NewService(d.AnalyticsRepo, d.Logger)

	d.Seeder = seed.New(d.SubscriptionsRepo, d.ImportRepo, d.Logger)

	// Constructed here so the admin handler can trigger runs; started in initJobs
	d.Scheduler = cron.NewScheduler(
		d.Config.Jobs,
		d.AnalyticsRepo,
		d.AnalyticsService,
		d.SubscriptionsService,
		d.AuthService,
		d.Mailer,
		d.Metrics,
		d.Logger,
	)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.AuthHandler = authhandler.NewAuthHandler(d.AuthService, d.Logger)
	d.SubscriptionsHandler = subscriptionshandler.NewSubscriptionsHandler(d.SubscriptionsService, d.Logger)
	d.AnalyticsHandler = analyticshandler.NewAnalyticsHandler(d.AnalyticsService, d.Logger)
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Logger)
	d.AdminHandler = admin.NewHandler(d.Seeder, d.Scheduler, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// initJobs starts the background scheduler when jobs are enabled
func (d *Dependencies) initJobs() error {
	if !d.Config.Jobs.Enabled {
		d.Logger.Info("background jobs disabled")
		return nil
	}

	if err := d.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		// Wait for any in-flight job to finish
		<-d.Scheduler.Stop().Done()
	}
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Warn("failed to close search index", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
