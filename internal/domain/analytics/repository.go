package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Snapshot is one persisted analytics run: the headline numbers for a user
// at a point in time, kept so spending history survives payment pruning
// and powers the digest email.
type Snapshot struct {
	ID           uuid.UUID          `json:"id"`
	UserID       uuid.UUID          `json:"user_id"`
	TakenAt      time.Time          `json:"taken_at"`
	MonthlyTotal float64            `json:"monthly_total"`
	Trend        TrendResult        `json:"trend"`
	Prediction   SpendingPrediction `json:"prediction"`
	UnusualCount int                `json:"unusual_count"`
	CreatedAt    time.Time          `json:"created_at"`
}

// AnalyticsRepository defines the data access the analytics service needs
type AnalyticsRepository interface {
	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]Subscription, error)
	ListPayments(ctx context.Context, userID uuid.UUID) ([]Payment, error)
	UsageCounts(ctx context.Context, userID uuid.UUID, since time.Time) (map[string]int, error)
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LatestSnapshot(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Ensure Repository implements AnalyticsRepository
var _ AnalyticsRepository = (*Repository)(nil)

// Repository handles database queries for analytics
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new analytics repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListSubscriptions loads all of a user's subscriptions in creation order
func (r *Repository) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]Subscription, error) {
	query := `
		SELECT id, name, price, cycle_unit, cycle_interval, status, start_date
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var (
			id    uuid.UUID
			price decimal.Decimal
			sub   Subscription
		)
		err := rows.Scan(
			&id,
			&sub.Name,
			&price,
			&sub.Cycle.Unit,
			&sub.Cycle.Interval,
			&sub.Status,
			&sub.StartDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		sub.ID = id.String()
		sub.Price = price.InexactFloat64()
		subs = append(subs, sub)
	}
	return subs, nil
}

// ListPayments loads a user's full payment history, oldest first
func (r *Repository) ListPayments(ctx context.Context, userID uuid.UUID) ([]Payment, error) {
	query := `
		SELECT id, subscription_id, amount, paid_at, status
		FROM payments
		WHERE user_id = $1
		ORDER BY paid_at, id`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var (
			id     uuid.UUID
			subID  uuid.UUID
			amount decimal.Decimal
			p      Payment
		)
		err := rows.Scan(&id, &subID, &amount, &p.Date, &p.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.ID = id.String()
		p.SubscriptionID = subID.String()
		p.Amount = amount.InexactFloat64()
		payments = append(payments, p)
	}
	return payments, nil
}

// UsageCounts counts usage events per subscription since the given time
func (r *Repository) UsageCounts(ctx context.Context, userID uuid.UUID, since time.Time) (map[string]int, error) {
	query := `
		SELECT subscription_id, COUNT(*)
		FROM usage_events
		WHERE user_id = $1 AND occurred_at >= $2
		GROUP BY subscription_id`

	rows, err := r.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count usage events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			subID uuid.UUID
			n     int
		)
		if err := rows.Scan(&subID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan usage count: %w", err)
		}
		counts[subID.String()] = n
	}
	return counts, nil
}

// SaveSnapshot persists one analytics run
func (r *Repository) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	query := `
		INSERT INTO analytics_snapshots (id, user_id, taken_at, monthly_total, trend, prediction, unusual_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		snap.ID,
		snap.UserID,
		snap.TakenAt,
		decimal.NewFromFloat(snap.MonthlyTotal),
		snap.Trend,
		snap.Prediction,
		snap.UnusualCount,
	).Scan(&snap.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for a user
func (r *Repository) LatestSnapshot(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	query := `
		SELECT id, user_id, taken_at, monthly_total, trend, prediction, unusual_count, created_at
		FROM analytics_snapshots
		WHERE user_id = $1
		ORDER BY taken_at DESC
		LIMIT 1`

	var (
		snap  Snapshot
		total decimal.Decimal
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&snap.ID,
		&snap.UserID,
		&snap.TakenAt,
		&total,
		&snap.Trend,
		&snap.Prediction,
		&snap.UnusualCount,
		&snap.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	snap.MonthlyTotal = total.InexactFloat64()
	return &snap, nil
}

// ListUserIDs returns every user id, for the nightly snapshot job
func (r *Repository) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM users ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
