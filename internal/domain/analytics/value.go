package analytics

import (
	"fmt"
	"math"
	"sort"
)

// CalculateValueScores rates every active subscription on price, usage and
// billing cycle, producing a 0-100 score with a tier and per-subscription
// recommendations. The price comparison baseline is the mean price across
// all supplied subscriptions, active or not.
//
// Usage adjustments apply only when a usage map is supplied; a
// subscription missing from the map is scored as if its usage were
// unknown. The result is sorted by descending score.
func CalculateValueScores(subs []Subscription, payments []Payment, usage map[string]int) []ValueScore {
	if len(subs) == 0 {
		return []ValueScore{}
	}

	var priceSum float64
	for _, sub := range subs {
		priceSum += sub.Price
	}
	avgPrice := priceSum / float64(len(subs))

	scores := make([]ValueScore, 0, len(subs))
	for _, sub := range subs {
		if sub.Status != StatusActive {
			continue
		}

		score := 70.0
		switch {
		case sub.Price < avgPrice*0.7:
			score += 15
		case sub.Price > avgPrice*1.3:
			score -= 15
		}

		var count int
		var tracked bool
		if usage != nil {
			count, tracked = usage[sub.ID]
		}
		if tracked {
			switch {
			case count > 20:
				score += 10
			case count < 5:
				score -= 20
			}
		}

		switch sub.Cycle.Unit {
		case CycleMonthly:
			score += 5
		case CycleYearly:
			score -= 5
		}

		if score < 0 {
			score = 0
		} else if score > 100 {
			score = 100
		}
		final := int(math.Round(score))

		cost := MonthlyCost(sub)
		costPerUse := cost
		if tracked && count > 0 {
			costPerUse = cost / float64(count)
		}

		recs := make([]string, 0, 3)
		if final < 40 {
			recs = append(recs, fmt.Sprintf("Consider cancelling %s: it scores poorly on value.", sub.Name))
		} else if final < 60 {
			recs = append(recs, fmt.Sprintf("Look for cheaper alternatives to %s.", sub.Name))
		}
		if tracked && count < 3 {
			recs = append(recs, fmt.Sprintf("You barely use %s. Pause it until you need it again.", sub.Name))
		}
		if costPerUse > cost*0.5 {
			recs = append(recs, fmt.Sprintf("Use %s more often to get your money's worth.", sub.Name))
		}

		scores = append(scores, ValueScore{
			Subscription:    sub,
			Score:           final,
			CostPerUse:      round2(costPerUse),
			Tier:            tierFor(final),
			Recommendations: recs,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

func tierFor(score int) ValueTier {
	switch {
	case score >= 80:
		return TierExcellent
	case score >= 60:
		return TierGood
	case score >= 40:
		return TierAverage
	default:
		return TierPoor
	}
}
