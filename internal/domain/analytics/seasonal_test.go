package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectSeasonalPatterns_PeakAndLow(t *testing.T) {
	payments := []Payment{
		{ID: "p1", SubscriptionID: "a", Amount: 500, Date: date(2025, time.January, 10), Status: PaymentPaid},
		{ID: "p2", SubscriptionID: "a", Amount: 10, Date: date(2025, time.July, 10), Status: PaymentPaid},
	}

	patterns := DetectSeasonalPatterns(payments, DefaultSeasonalYears)
	require.Len(t, patterns, 12)

	jan := patterns[0]
	assert.Equal(t, "January", jan.Month)
	assert.Equal(t, 500.0, jan.AverageSpending)
	assert.True(t, jan.IsPeak)
	assert.False(t, jan.IsLow)

	jul := patterns[6]
	assert.Equal(t, "July", jul.Month)
	assert.Equal(t, 10.0, jul.AverageSpending)
	assert.False(t, jul.IsPeak)
	assert.True(t, jul.IsLow)

	for i, p := range patterns {
		if i == 0 || i == 6 {
			continue
		}
		assert.Zero(t, p.AverageSpending, "month %s", p.Month)
		assert.False(t, p.IsPeak, "month %s", p.Month)
		assert.False(t, p.IsLow, "month %s", p.Month)
	}
}

func TestDetectSeasonalPatterns_NoHistory(t *testing.T) {
	patterns := DetectSeasonalPatterns(nil, DefaultSeasonalYears)
	require.Len(t, patterns, 12)

	assert.Equal(t, "January", patterns[0].Month)
	assert.Equal(t, "December", patterns[11].Month)
	for _, p := range patterns {
		assert.Zero(t, p.AverageSpending)
		assert.False(t, p.IsPeak)
		assert.False(t, p.IsLow)
	}
}

// Peak tracking starts at zero and compares strictly, so a history of
// zero-amount payments marks no month at all.
func TestDetectSeasonalPatterns_AllZeroAmounts(t *testing.T) {
	payments := paymentsFor("a", 0, 0, 0, 0)

	patterns := DetectSeasonalPatterns(payments, DefaultSeasonalYears)
	for _, p := range patterns {
		assert.False(t, p.IsPeak, "month %s", p.Month)
		assert.False(t, p.IsLow, "month %s", p.Month)
	}
}

func TestDetectSeasonalPatterns_TiedMonthsAllFlagged(t *testing.T) {
	payments := []Payment{
		{ID: "p1", SubscriptionID: "a", Amount: 200, Date: date(2025, time.March, 5), Status: PaymentPaid},
		{ID: "p2", SubscriptionID: "a", Amount: 200, Date: date(2025, time.September, 5), Status: PaymentPaid},
		{ID: "p3", SubscriptionID: "a", Amount: 50, Date: date(2025, time.May, 5), Status: PaymentPaid},
		{ID: "p4", SubscriptionID: "a", Amount: 50, Date: date(2025, time.November, 5), Status: PaymentPaid},
	}

	patterns := DetectSeasonalPatterns(payments, DefaultSeasonalYears)
	march, may, september, november := patterns[2], patterns[4], patterns[8], patterns[10]
	assert.True(t, march.IsPeak)
	assert.True(t, september.IsPeak)
	assert.True(t, may.IsLow)
	assert.True(t, november.IsLow)
	assert.False(t, march.IsLow)
	assert.False(t, may.IsPeak)
}

func TestDetectSeasonalPatterns_AveragesAcrossYears(t *testing.T) {
	payments := []Payment{
		{ID: "p1", SubscriptionID: "a", Amount: 100, Date: date(2024, time.January, 12), Status: PaymentPaid},
		{ID: "p2", SubscriptionID: "a", Amount: 300, Date: date(2025, time.January, 12), Status: PaymentPaid},
	}

	// The years argument does not narrow the history: every supplied
	// payment participates.
	patterns := DetectSeasonalPatterns(payments, 1)
	assert.Equal(t, 200.0, patterns[0].AverageSpending)
}
