// Package repository provides database operations for subscriptions.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a subscription
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusPending   Status = "pending"
)

// Valid reports whether the status is one of the known states
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled, StatusPending:
		return true
	}
	return false
}

// CycleUnit represents the billing period unit of a subscription
type CycleUnit string

const (
	CycleDaily   CycleUnit = "daily"
	CycleWeekly  CycleUnit = "weekly"
	CycleMonthly CycleUnit = "monthly"
	CycleYearly  CycleUnit = "yearly"
)

// Valid reports whether the cycle unit is one of the known units
func (u CycleUnit) Valid() bool {
	switch u {
	case CycleDaily, CycleWeekly, CycleMonthly, CycleYearly:
		return true
	}
	return false
}

// Subscription represents a tracked recurring service
type Subscription struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	CycleUnit     CycleUnit `json:"cycle_unit"`
	CycleInterval int       `json:"cycle_interval"`
	Status        Status    `json:"status"`
	StartDate     time.Time `json:"start_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UsageEvent represents one recorded use of a subscription
type UsageEvent struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	OccurredAt     time.Time `json:"occurred_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	// CRUD operations
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ListByUserID(ctx context.Context, userID uuid.UUID, statusFilter *Status) ([]*Subscription, error)

	// Status management
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status Status) error

	// Usage tracking
	RecordUsage(ctx context.Context, event *UsageEvent) error
	UsageCounts(ctx context.Context, userID uuid.UUID, since time.Time) (map[uuid.UUID]int, error)
}
