package analytics

import (
	"math"
	"time"
)

// Default knobs for the analysis operations.
const (
	DefaultTrendMonths      = 6
	DefaultSeasonalYears    = 2
	DefaultAnomalyThreshold = 2.5
)

// stableBandPercent is the band, as a percentage of the average monthly
// total, inside which a regression slope still counts as stable.
const stableBandPercent = 5.0

// AnalyzeTrend regresses the last months of bucketed payment totals and
// classifies the spending direction. Fewer than two buckets is an
// insufficient sample: the result is stable with low confidence and the
// forecast falls back to the only observed total, or zero.
func AnalyzeTrend(payments []Payment, months int, now time.Time) TrendResult {
	buckets := MonthlyTotals(payments, months, now)
	if len(buckets) < 2 {
		var forecast float64
		if len(buckets) > 0 {
			forecast = buckets[0].Total
		}
		return TrendResult{
			Direction:  TrendStable,
			Forecast:   round2(forecast),
			Confidence: ConfidenceLow,
		}
	}

	n := len(buckets)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, b := range buckets {
		xs[i] = float64(i)
		ys[i] = b.Total
	}

	m := slope(xs, ys)
	average := mean(ys)

	var pct float64
	if average > 0 {
		pct = (m * float64(months) / average) * 100
	}

	direction := TrendStable
	if math.Abs(pct) >= stableBandPercent {
		if pct > 0 {
			direction = TrendIncreasing
		} else {
			direction = TrendDecreasing
		}
	}

	confidence := ConfidenceLow
	switch v := variance(ys); {
	case v < average*0.1:
		confidence = ConfidenceHigh
	case v < average*0.2:
		confidence = ConfidenceMedium
	}

	return TrendResult{
		Direction:      direction,
		Percentage:     round1(math.Abs(pct)),
		AbsoluteChange: round2(buckets[n-1].Total - buckets[0].Total),
		Forecast:       round2(average + m*float64(n+1)),
		Confidence:     confidence,
	}
}
