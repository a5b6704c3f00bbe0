package analytics

import "time"

// DetectSeasonalPatterns averages historical payment amounts by calendar
// month-of-year and flags the peak and low months. The years argument is
// kept for call-site compatibility: every supplied payment participates
// regardless of how many years the history spans.
//
// Peak tracking starts at zero and compares strictly, so an all-zero
// history flags no month; equal averages tie and are all flagged.
func DetectSeasonalPatterns(payments []Payment, years int) []SeasonalPattern {
	var sums [12]float64
	var counts [12]int
	for _, p := range payments {
		idx := int(p.Date.Month()) - 1
		sums[idx] += p.Amount
		counts[idx]++
	}

	var averages [12]float64
	for i := range sums {
		if counts[i] > 0 {
			averages[i] = sums[i] / float64(counts[i])
		}
	}

	maxAvg := 0.0
	for _, avg := range averages {
		if avg > maxAvg {
			maxAvg = avg
		}
	}

	minPositive := 0.0
	for _, avg := range averages {
		if avg > 0 && (minPositive == 0 || avg < minPositive) {
			minPositive = avg
		}
	}

	patterns := make([]SeasonalPattern, 12)
	for i, avg := range averages {
		patterns[i] = SeasonalPattern{
			Month:           time.Month(i + 1).String(),
			AverageSpending: round2(avg),
			IsPeak:          maxAvg > 0 && avg == maxAvg,
			IsLow:           minPositive > 0 && avg == minPositive,
		}
	}
	return patterns
}
