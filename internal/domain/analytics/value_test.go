package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateValueScores_EmptyInput(t *testing.T) {
	scores := CalculateValueScores(nil, nil, nil)
	assert.NotNil(t, scores)
	assert.Empty(t, scores)
}

func TestCalculateValueScores_ScoresActiveAgainstAllPrices(t *testing.T) {
	monthly := BillingCycle{Unit: CycleMonthly, Interval: 1}
	subs := []Subscription{
		{ID: "keep", Name: "Streamly", Price: 10, Cycle: monthly, Status: StatusActive},
		{ID: "gone", Name: "MegaSuite", Price: 100, Cycle: monthly, Status: StatusCancelled},
	}

	scores := CalculateValueScores(subs, nil, nil)
	require.Len(t, scores, 1)

	// the price baseline averages over all subscriptions, cancelled
	// included: 70 + 15 (under 70% of 55) + 5 (monthly)
	got := scores[0]
	assert.Equal(t, "keep", got.Subscription.ID)
	assert.Equal(t, 90, got.Score)
	assert.Equal(t, TierExcellent, got.Tier)
	assert.Equal(t, 10.0, got.CostPerUse)

	// without usage data the cost-per-use reads as the full monthly
	// cost, which always trips the underuse nudge
	require.Len(t, got.Recommendations, 1)
	assert.Contains(t, got.Recommendations[0], "more often")
}

func TestCalculateValueScores_UsageAdjustments(t *testing.T) {
	base := Subscription{ID: "s", Name: "Streamly", Price: 12, Cycle: BillingCycle{Unit: CycleMonthly, Interval: 1}, Status: StatusActive}

	tests := []struct {
		name      string
		usage     map[string]int
		wantScore int
		wantCPU   float64
	}{
		{"no usage map leaves the score alone", nil, 75, 12},
		{"untracked subscription left alone", map[string]int{"other": 50}, 75, 12},
		{"heavy usage rewarded", map[string]int{"s": 25}, 85, 0.48},
		{"moderate usage neutral", map[string]int{"s": 10}, 75, 1.2},
		{"light usage penalized", map[string]int{"s": 2}, 55, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := CalculateValueScores([]Subscription{base}, nil, tt.usage)
			require.Len(t, scores, 1)
			assert.Equal(t, tt.wantScore, scores[0].Score)
			assert.InDelta(t, tt.wantCPU, scores[0].CostPerUse, 0.001)
		})
	}
}

func TestCalculateValueScores_TiersRecommendationsAndOrdering(t *testing.T) {
	subs := []Subscription{
		{ID: "pricey", Name: "MegaSuite", Price: 90, Cycle: BillingCycle{Unit: CycleYearly, Interval: 1}, Status: StatusActive},
		{ID: "cheapo", Name: "Streamly", Price: 10, Cycle: BillingCycle{Unit: CycleMonthly, Interval: 1}, Status: StatusActive},
	}
	usage := map[string]int{"pricey": 1, "cheapo": 30}

	scores := CalculateValueScores(subs, nil, usage)
	require.Len(t, scores, 2)

	best, worst := scores[0], scores[1]

	// 70 + 15 (cheap) + 10 (heavy use) + 5 (monthly) caps at 100
	assert.Equal(t, "cheapo", best.Subscription.ID)
	assert.Equal(t, 100, best.Score)
	assert.Equal(t, TierExcellent, best.Tier)
	assert.Empty(t, best.Recommendations)

	// 70 - 15 (expensive) - 20 (barely used) - 5 (yearly)
	assert.Equal(t, "pricey", worst.Subscription.ID)
	assert.Equal(t, 30, worst.Score)
	assert.Equal(t, TierPoor, worst.Tier)
	assert.InDelta(t, 7.5, worst.CostPerUse, 0.001)
	require.Len(t, worst.Recommendations, 3)
	assert.Contains(t, worst.Recommendations[0], "cancelling MegaSuite")
	assert.Contains(t, worst.Recommendations[1], "Pause")
	assert.Contains(t, worst.Recommendations[2], "more often")

	for _, s := range scores {
		assert.GreaterOrEqual(t, s.Score, 0)
		assert.LessOrEqual(t, s.Score, 100)
	}
}

func TestCalculateValueScores_MiddlingScoreSuggestsAlternatives(t *testing.T) {
	monthly := BillingCycle{Unit: CycleMonthly, Interval: 1}
	subs := []Subscription{
		{ID: "a", Name: "CloudBox", Price: 50, Cycle: monthly, Status: StatusActive},
		{ID: "b", Name: "Streamly", Price: 30, Cycle: monthly, Status: StatusActive},
	}
	usage := map[string]int{"a": 4, "b": 10}

	scores := CalculateValueScores(subs, nil, usage)
	require.Len(t, scores, 2)

	// 70 + 0 (within the price band around the 40 average) - 20 (under
	// 5 uses) + 5 = 55
	assert.Equal(t, "a", scores[1].Subscription.ID)
	assert.Equal(t, 55, scores[1].Score)
	assert.Equal(t, TierAverage, scores[1].Tier)
	require.Len(t, scores[1].Recommendations, 1)
	assert.Contains(t, scores[1].Recommendations[0], "alternatives to CloudBox")
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score int
		want  ValueTier
	}{
		{100, TierExcellent},
		{80, TierExcellent},
		{79, TierGood},
		{60, TierGood},
		{59, TierAverage},
		{40, TierAverage},
		{39, TierPoor},
		{0, TierPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tierFor(tt.score), "score %d", tt.score)
	}
}
