package repository

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

// PostgresSubscriptionRepository implements SubscriptionRepository using PostgreSQL
type PostgresSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// Ensure PostgresSubscriptionRepository implements SubscriptionRepository
var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)

// NewPostgresSubscriptionRepository creates a new PostgreSQL subscription repository
func NewPostgresSubscriptionRepository(pool *pgxpool.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Create inserts a new subscription
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub *Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, name, price, cycle_unit, cycle_interval, status, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Name,
		decimal.NewFromFloat(sub.Price),
		sub.CycleUnit,
		sub.CycleInterval,
		sub.Status,
		sub.StartDate,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// GetByID retrieves a subscription owned by the given user
func (r *PostgresSubscriptionRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*Subscription, error) {
	query := `
		SELECT id, user_id, name, price, cycle_unit, cycle_interval, status, start_date, created_at, updated_at
		FROM subscriptions
		WHERE id = $1 AND user_id = $2`

	sub, err := scanSubscription(r.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// Update updates an existing subscription
func (r *PostgresSubscriptionRepository) Update(ctx context.Context, sub *Subscription) error {
	query := `
		UPDATE subscriptions
		SET name = $3, price = $4, cycle_unit = $5, cycle_interval = $6, status = $7,
			start_date = $8, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Name,
		decimal.NewFromFloat(sub.Price),
		sub.CycleUnit,
		sub.CycleInterval,
		sub.Status,
		sub.StartDate,
	).Scan(&sub.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

// Delete removes a subscription and its usage events
func (r *PostgresSubscriptionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := `DELETE FROM subscriptions WHERE id = $1 AND user_id = $2`
	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByUserID retrieves all subscriptions for a user, optionally filtered by status
func (r *PostgresSubscriptionRepository) ListByUserID(ctx context.Context, userID uuid.UUID, statusFilter *Status) ([]*Subscription, error) {
	query := `
		SELECT id, user_id, name, price, cycle_unit, cycle_interval, status, start_date, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1`

	args := []any{userID}
	if statusFilter != nil {
		query += ` AND status = $2`
		args = append(args, *statusFilter)
	}
	query += ` ORDER BY price DESC, created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// UpdateStatus updates the status of a subscription
func (r *PostgresSubscriptionRepository) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status Status) error {
	query := `UPDATE subscriptions SET status = $3, updated_at = now() WHERE id = $1 AND user_id = $2`
	result, err := r.pool.Exec(ctx, query, id, userID, status)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecordUsage inserts a usage event
func (r *PostgresSubscriptionRepository) RecordUsage(ctx context.Context, event *UsageEvent) error {
	query := `
		INSERT INTO usage_events (id, user_id, subscription_id, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		event.ID,
		event.UserID,
		event.SubscriptionID,
		event.OccurredAt,
	).Scan(&event.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// UsageCounts returns per-subscription usage event counts since the given time
func (r *PostgresSubscriptionRepository) UsageCounts(ctx context.Context, userID uuid.UUID, since time.Time) (map[uuid.UUID]int, error) {
	query := `
		SELECT subscription_id, COUNT(*)
		FROM usage_events
		WHERE user_id = $1 AND occurred_at >= $2
		GROUP BY subscription_id`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count usage events: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			subID uuid.UUID
			n     int
		)
		if err := rows.Scan(&subID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan usage count: %w", err)
		}
		counts[subID] = n
	}
	return counts, nil
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub   Subscription
		price decimal.Decimal
	)
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Name,
		&price,
		&sub.CycleUnit,
		&sub.CycleInterval,
		&sub.Status,
		&sub.StartDate,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Price = price.InexactFloat64()
	return &sub, nil
}
