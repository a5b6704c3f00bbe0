package analytics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZScore_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		z    ZScore
		want string
	}{
		{"finite", ZScore(2.5), "2.5"},
		{"zero", ZScore(0), "0"},
		{"positive infinity", ZScore(math.Inf(1)), "null"},
		{"negative infinity", ZScore(math.Inf(-1)), "null"},
		{"not a number", ZScore(math.NaN()), "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.z)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func TestUnusualCharge_MarshalJSONOmitsNilSides(t *testing.T) {
	charge := UnusualCharge{Reason: ReasonNewSubscription, Deviation: 0}

	raw, err := json.Marshal(charge)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"payment":`)
	assert.NotContains(t, string(raw), `"subscription":`)
	assert.Contains(t, string(raw), ReasonNewSubscription)
}
