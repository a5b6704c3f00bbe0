// Package repository persists payments produced by statement imports.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Payment statuses and sources as stored in the payments table.
const (
	StatusPaid   = "paid"
	SourceImport = "import"
)

// Payment is one charge attached to a subscription.
type Payment struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	Amount         float64   `json:"amount"`
	PaidAt         time.Time `json:"paid_at"`
	Status         string    `json:"status"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}

// InsertStats reports how a bulk insert went. Duplicates counts rows
// skipped because an identical payment already existed, which keeps
// re-uploads of the same statement idempotent.
type InsertStats struct {
	Inserted   int
	Duplicates int
}

// ImportRepository defines the storage operations the import service needs.
type ImportRepository interface {
	InsertPayments(ctx context.Context, payments []*Payment) (*InsertStats, error)
}
