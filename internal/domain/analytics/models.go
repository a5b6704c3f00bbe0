// Package analytics implements the spending analytics engine: statistical
// routines that turn an in-memory snapshot of subscriptions and payments
// into spending trends, seasonal patterns, forecasts, unusual-charge
// reports and per-subscription value scores.
//
// Every operation is a pure function of its arguments. The engine performs
// no I/O, keeps no state between calls, and time-dependent operations take
// an explicit reference time instead of reading the system clock, so
// identical inputs always produce identical outputs.
package analytics

import (
	"encoding/json"
	"math"
	"time"
)

// CycleUnit is the billing period unit of a subscription.
type CycleUnit string

const (
	CycleDaily   CycleUnit = "daily"
	CycleWeekly  CycleUnit = "weekly"
	CycleMonthly CycleUnit = "monthly"
	CycleYearly  CycleUnit = "yearly"
)

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusPaused    SubscriptionStatus = "paused"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusPending   SubscriptionStatus = "pending"
)

// PaymentStatus represents the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
)

// BillingCycle describes how often a subscription charges: every
// Interval Units (for example every 2 weeks).
type BillingCycle struct {
	Unit     CycleUnit `json:"unit"`
	Interval int       `json:"interval"`
}

// Subscription is the engine's read-only view of a tracked subscription.
type Subscription struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Price     float64            `json:"price"`
	Cycle     BillingCycle       `json:"billing_cycle"`
	Status    SubscriptionStatus `json:"status"`
	StartDate time.Time          `json:"start_date"`
}

// Payment is a single historical charge. Negative amounts are valid and
// represent refunds or credits.
type Payment struct {
	ID             string        `json:"id"`
	SubscriptionID string        `json:"subscription_id"`
	Amount         float64       `json:"amount"`
	Date           time.Time     `json:"date"`
	Status         PaymentStatus `json:"status"`
}

// TrendDirection classifies the slope of recent spending.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Confidence grades how much the monthly totals scatter around their mean.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MonthBucket is one calendar month of summed payment amounts.
type MonthBucket struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// TrendResult summarizes the regression over recent monthly totals.
// Percentage is the absolute month-over-month change relative to the
// average, AbsoluteChange is last bucket minus first bucket, and Forecast
// projects one bucket past the observed series.
type TrendResult struct {
	Direction      TrendDirection `json:"direction"`
	Percentage     float64        `json:"percentage"`
	AbsoluteChange float64        `json:"absolute_change"`
	Forecast       float64        `json:"forecast"`
	Confidence     Confidence     `json:"confidence"`
}

// SeasonalPattern is the historical average spend for one calendar month
// of the year, aggregated across all available years of history.
type SeasonalPattern struct {
	Month           string  `json:"month"`
	AverageSpending float64 `json:"average_spending"`
	IsPeak          bool    `json:"is_peak"`
	IsLow           bool    `json:"is_low"`
}

// SpendingPrediction projects upcoming spend and carries the
// recommendation strings surfaced on the insights screen.
type SpendingPrediction struct {
	NextMonth       float64  `json:"next_month"`
	NextQuarter     float64  `json:"next_quarter"`
	NextYear        float64  `json:"next_year"`
	Recommendations []string `json:"recommendations"`
}

// ZScore is a z-score magnitude. A subscription whose payment history has
// zero variance produces an infinite deviation for any amount off the
// mean; non-finite values encode as JSON null.
type ZScore float64

// MarshalJSON implements json.Marshaler.
func (z ZScore) MarshalJSON() ([]byte, error) {
	f := float64(z)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnusualCharge reports a payment that deviates from its subscription's
// history, or a subscription that started recently. Payment is nil for
// new-subscription entries; Subscription is nil when a payment references
// an unknown subscription id.
type UnusualCharge struct {
	Payment      *Payment      `json:"payment,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
	Reason       string        `json:"reason"`
	Deviation    ZScore        `json:"deviation"`
}

// ValueTier is the coarse bucket a value score falls into.
type ValueTier string

const (
	TierExcellent ValueTier = "excellent"
	TierGood      ValueTier = "good"
	TierAverage   ValueTier = "average"
	TierPoor      ValueTier = "poor"
)

// ValueScore rates one active subscription on price, usage and billing
// cycle.
type ValueScore struct {
	Subscription    Subscription `json:"subscription"`
	Score           int          `json:"score"`
	CostPerUse      float64      `json:"cost_per_use"`
	Tier            ValueTier    `json:"value_tier"`
	Recommendations []string     `json:"recommendations"`
}
