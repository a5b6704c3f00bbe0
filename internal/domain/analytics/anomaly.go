package analytics

import (
	"math"
	"time"
)

// Reason strings attached to unusual-charge reports.
const (
	ReasonHigherThanUsual = "higher than usual"
	ReasonLowerThanUsual  = "lower than usual"
	ReasonNewSubscription = "new subscription added recently"
)

// minPaymentsForStats is the smallest payment history that supports a
// z-score pass for a subscription.
const minPaymentsForStats = 3

// DetectUnusualCharges flags payments whose amount deviates from their
// subscription's historical mean by more than threshold population
// standard deviations, then appends one entry for every active
// subscription that started within the last calendar month.
//
// A zero-variance history yields an infinite deviation for any amount off
// the mean; the value is reported as-is rather than suppressed.
func DetectUnusualCharges(subs []Subscription, payments []Payment, threshold float64, now time.Time) []UnusualCharge {
	subsByID := make(map[string]Subscription, len(subs))
	for _, sub := range subs {
		subsByID[sub.ID] = sub
	}

	groups := make(map[string][]Payment)
	order := make([]string, 0, len(subs))
	for _, p := range payments {
		if _, seen := groups[p.SubscriptionID]; !seen {
			order = append(order, p.SubscriptionID)
		}
		groups[p.SubscriptionID] = append(groups[p.SubscriptionID], p)
	}

	charges := make([]UnusualCharge, 0)
	for _, subID := range order {
		group := groups[subID]
		if len(group) < minPaymentsForStats {
			continue
		}

		amounts := make([]float64, len(group))
		for i, p := range group {
			amounts[i] = p.Amount
		}
		m := mean(amounts)
		sd := stddev(amounts, m)

		for _, p := range group {
			deviation := math.Abs(p.Amount-m) / sd
			if deviation > threshold {
				reason := ReasonLowerThanUsual
				if p.Amount > m {
					reason = ReasonHigherThanUsual
				}

				payment := p
				charge := UnusualCharge{
					Payment:   &payment,
					Reason:    reason,
					Deviation: ZScore(round2(deviation)),
				}
				if sub, ok := subsByID[subID]; ok {
					charge.Subscription = &sub
				}
				charges = append(charges, charge)
			}
		}
	}

	cutoff := now.AddDate(0, -1, 0)
	for _, sub := range subs {
		if sub.Status != StatusActive || !sub.StartDate.After(cutoff) {
			continue
		}
		recent := sub
		charges = append(charges, UnusualCharge{
			Subscription: &recent,
			Reason:       ReasonNewSubscription,
			Deviation:    0,
		})
	}

	return charges
}
