package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TxBeginner is the slice of *pgxpool.Pool the repository uses.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresImportRepository implements ImportRepository backed by pgx.
type PostgresImportRepository struct {
	pool TxBeginner
}

var _ ImportRepository = (*PostgresImportRepository)(nil)

func NewPostgresImportRepository(pool TxBeginner) *PostgresImportRepository {
	return &PostgresImportRepository{pool: pool}
}

// InsertPayments writes the payments in one transaction. A payment whose
// (user, subscription, date, amount) tuple already exists is counted as a
// duplicate and left alone.
func (r *PostgresImportRepository) InsertPayments(ctx context.Context, payments []*Payment) (*InsertStats, error) {
	stats := &InsertStats{}
	if len(payments) == 0 {
		return stats, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO payments (id, user_id, subscription_id, amount, paid_at, status, source, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM payments
			WHERE user_id = $2 AND subscription_id = $3 AND paid_at = $5 AND amount = $4
		)`

	now := time.Now()
	for _, payment := range payments {
		if payment.ID == uuid.Nil {
			payment.ID = uuid.New()
		}
		if payment.Status == "" {
			payment.Status = StatusPaid
		}
		if payment.Source == "" {
			payment.Source = SourceImport
		}
		if payment.CreatedAt.IsZero() {
			payment.CreatedAt = now
		}

		tag, err := tx.Exec(ctx, query,
			payment.ID,
			payment.UserID,
			payment.SubscriptionID,
			decimal.NewFromFloat(payment.Amount),
			payment.PaidAt,
			payment.Status,
			payment.Source,
			payment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert payment: %w", err)
		}

		if tag.RowsAffected() == 0 {
			stats.Duplicates++
		} else {
			stats.Inserted++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payments: %w", err)
	}
	return stats, nil
}
