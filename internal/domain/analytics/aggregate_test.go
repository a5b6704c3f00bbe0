package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyCost(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		cycle BillingCycle
		want  float64
	}{
		{"daily", 2, BillingCycle{Unit: CycleDaily, Interval: 1}, 60},
		{"every three days", 1, BillingCycle{Unit: CycleDaily, Interval: 3}, 90},
		{"weekly", 10, BillingCycle{Unit: CycleWeekly, Interval: 1}, 42.857},
		{"biweekly", 10, BillingCycle{Unit: CycleWeekly, Interval: 2}, 85.714},
		{"monthly", 15, BillingCycle{Unit: CycleMonthly, Interval: 1}, 15},
		{"monthly with interval", 30, BillingCycle{Unit: CycleMonthly, Interval: 3}, 90},
		{"yearly", 120, BillingCycle{Unit: CycleYearly, Interval: 1}, 10},
		{"unknown unit passes price through", 7, BillingCycle{Unit: "fortnightly", Interval: 1}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Subscription{ID: "s", Price: tt.price, Cycle: tt.cycle, Status: StatusActive}
			assert.InDelta(t, tt.want, MonthlyCost(sub), 0.001)
		})
	}
}

func TestCurrentMonthlyTotal_SumsActiveOnly(t *testing.T) {
	monthly := BillingCycle{Unit: CycleMonthly, Interval: 1}
	subs := []Subscription{
		{ID: "a", Price: 15, Cycle: monthly, Status: StatusActive},
		{ID: "b", Price: 10, Cycle: monthly, Status: StatusPaused},
		{ID: "c", Price: 120, Cycle: BillingCycle{Unit: CycleYearly, Interval: 1}, Status: StatusActive},
		{ID: "d", Price: 99, Cycle: monthly, Status: StatusCancelled},
	}

	assert.Equal(t, 25.0, CurrentMonthlyTotal(subs))
	assert.Zero(t, CurrentMonthlyTotal(nil))
}

func TestMonthlyTotals(t *testing.T) {
	now := date(2025, time.August, 20)
	payments := []Payment{
		{ID: "p1", SubscriptionID: "a", Amount: 10.555, Date: date(2025, time.June, 1), Status: PaymentPaid},
		{ID: "p2", SubscriptionID: "a", Amount: 5.115, Date: time.Date(2025, time.June, 30, 23, 59, 59, 0, time.UTC), Status: PaymentPaid},
		{ID: "p3", SubscriptionID: "b", Amount: 20, Date: date(2025, time.July, 15), Status: PaymentPaid},
		// later in the month than now: the window covers the whole
		// calendar month containing now
		{ID: "p4", SubscriptionID: "b", Amount: 30, Date: time.Date(2025, time.August, 31, 22, 0, 0, 0, time.UTC), Status: PaymentPaid},
		{ID: "p5", SubscriptionID: "b", Amount: 999, Date: date(2025, time.May, 31), Status: PaymentPaid},
		{ID: "p6", SubscriptionID: "b", Amount: 999, Date: date(2025, time.September, 1), Status: PaymentPaid},
	}

	got := MonthlyTotals(payments, 3, now)
	require.Len(t, got, 3)
	assert.Equal(t, []MonthBucket{
		{Label: "Jun 2025", Total: 15.67},
		{Label: "Jul 2025", Total: 20},
		{Label: "Aug 2025", Total: 30},
	}, got)
}

func TestMonthlyTotals_EmptyMonthsAndWindow(t *testing.T) {
	now := date(2025, time.August, 20)

	got := MonthlyTotals(nil, 2, now)
	assert.Equal(t, []MonthBucket{
		{Label: "Jul 2025", Total: 0},
		{Label: "Aug 2025", Total: 0},
	}, got)

	assert.Nil(t, MonthlyTotals(nil, 0, now))
	assert.Nil(t, MonthlyTotals(nil, -3, now))
}
