package analytics

import "time"

// MonthlyCost normalizes a subscription's price to its recurring
// monthly-equivalent amount. Unknown cycle units pass the price through
// unchanged.
func MonthlyCost(sub Subscription) float64 {
	interval := float64(sub.Cycle.Interval)
	switch sub.Cycle.Unit {
	case CycleDaily:
		return sub.Price * interval * 30
	case CycleWeekly:
		return sub.Price * (30.0 / 7.0) * interval
	case CycleMonthly:
		return sub.Price * interval
	case CycleYearly:
		return sub.Price / 12 * interval
	default:
		return sub.Price
	}
}

// CurrentMonthlyTotal sums the monthly-equivalent cost of every active
// subscription.
func CurrentMonthlyTotal(subs []Subscription) float64 {
	var total float64
	for _, sub := range subs {
		if sub.Status == StatusActive {
			total += MonthlyCost(sub)
		}
	}
	return total
}

// MonthlyTotals buckets payment amounts into the last months calendar
// months, ending at the month containing now, oldest bucket first. Bucket
// boundaries are inclusive and months without payments report a zero
// total.
func MonthlyTotals(payments []Payment, months int, now time.Time) []MonthBucket {
	if months <= 0 {
		return nil
	}

	buckets := make([]MonthBucket, 0, months)
	for i := months - 1; i >= 0; i-- {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

		var total float64
		for _, p := range payments {
			if !p.Date.Before(start) && !p.Date.After(end) {
				total += p.Amount
			}
		}

		buckets = append(buckets, MonthBucket{
			Label: start.Format("Jan 2006"),
			Total: round2(total),
		})
	}
	return buckets
}
