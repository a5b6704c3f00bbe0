package analytics

import (
	"fmt"
	"time"
)

// PredictSpending projects next month, next quarter, and next year spend
// from the current subscription load, the supplied trend, and seasonal
// history, and derives the recommendation list for the insights screen.
//
// The quarter projection prefers each upcoming month's positive seasonal
// average and falls back to the current monthly total. The yearly figure
// compounds the monthly growth rate by twelve on top of annualizing; that
// matches the product's established forecast and is kept as-is.
func PredictSpending(subs []Subscription, payments []Payment, trend TrendResult, now time.Time) SpendingPrediction {
	currentTotal := CurrentMonthlyTotal(subs)
	monthlyGrowth := trend.Percentage / 100

	nextMonth := currentTotal * (1 + monthlyGrowth)

	seasonal := DetectSeasonalPatterns(payments, DefaultSeasonalYears)
	currentIdx := int(now.Month()) - 1

	var nextQuarter float64
	for i := 0; i < 3; i++ {
		idx := (currentIdx + i) % 12
		if seasonal[idx].AverageSpending > 0 {
			nextQuarter += seasonal[idx].AverageSpending
		} else {
			nextQuarter += currentTotal
		}
	}

	nextYear := currentTotal * 12 * (1 + monthlyGrowth*12)

	recs := make([]string, 0, 4)
	if trend.Direction == TrendIncreasing && trend.Percentage > 10 {
		recs = append(recs, fmt.Sprintf(
			"Your spending is growing %.1f%% per month. Review your subscriptions for ones to cancel.",
			trend.Percentage))
	}
	if nextMonth > currentTotal*1.2 {
		recs = append(recs,
			"Next month is projected to run more than 20% over your current monthly cost. Consider setting a budget.")
	}
	nextIdx := (currentIdx + 1) % 12
	if seasonal[nextIdx].AverageSpending > seasonal[currentIdx].AverageSpending*1.3 {
		recs = append(recs, fmt.Sprintf(
			"%s is historically a high-spending month for you. Expect higher charges.",
			seasonal[nextIdx].Month))
	}
	if currentTotal > 100 {
		recs = append(recs, fmt.Sprintf(
			"Trimming 15%% of your subscription spending would save about %.2f per month.",
			currentTotal*0.15))
	}

	return SpendingPrediction{
		NextMonth:       round2(nextMonth),
		NextQuarter:     round2(nextQuarter),
		NextYear:        round2(nextYear),
		Recommendations: recs,
	}
}
