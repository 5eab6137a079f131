package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankFor(t *testing.T) {
	tests := []struct {
		name     string
		stats    Stats
		verified bool
		want     Rank
	}{
		{"respected verified", Stats{Count: 25, Mean: 4.0}, true, Respected},
		{"respected unverified gated", Stats{Count: 25, Mean: 4.0}, false, Beginner},
		{"ban precedes verification gate", Stats{Count: 20, Mean: 0.9}, false, Banned},
		{"ban at boundary", Stats{Count: 20, Mean: 1.0}, true, Banned},
		{"fraud not ban below 20", Stats{Count: 19, Mean: 0.5}, true, Fraudulent},
		{"fraud unverified", Stats{Count: 10, Mean: 1.9}, false, Fraudulent},
		{"fraud boundary excluded", Stats{Count: 10, Mean: 2.0}, true, Verified},
		{"no reviews verified", Stats{}, true, Verified},
		{"no reviews unverified", Stats{}, false, Beginner},
		{"legendary", Stats{Count: 1000, Mean: 4.8}, true, Legendary},
		{"legendary count short", Stats{Count: 999, Mean: 4.9}, true, Ambassador},
		{"ambassador", Stats{Count: 700, Mean: 4.7}, true, Ambassador},
		{"veteran", Stats{Count: 400, Mean: 4.6}, true, Veteran},
		{"distinguished", Stats{Count: 200, Mean: 4.5}, true, Distinguished},
		{"elite", Stats{Count: 100, Mean: 4.4}, true, Elite},
		{"endorsed", Stats{Count: 50, Mean: 4.2}, true, Endorsed},
		{"high count low average falls through", Stats{Count: 50, Mean: 3.9}, true, Reliable},
		{"reliable", Stats{Count: 10, Mean: 3.5}, true, Reliable},
		{"trusted", Stats{Count: 3, Mean: 3.0}, true, Trusted},
		{"two reviews only", Stats{Count: 2, Mean: 5.0}, true, Verified},
		{"low average verified", Stats{Count: 5, Mean: 2.5}, true, Verified},
		{"mean just above ban line is fraud", Aggregate(append(repeat(1.0, 19), 1.5)), false, Fraudulent},
		{"mean just below respected stays reliable", Aggregate(append(repeat(4.0, 24), 3.0)), true, Reliable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RankFor(tt.stats, tt.verified))
		})
	}
}

func TestAggregate(t *testing.T) {
	s := Aggregate([]float64{4.0, 4.0, 4.25})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 0, s.Negative)
	assert.Equal(t, 4.1, s.Average)
	assert.InDelta(t, 4.0833, s.Mean, 0.0001)

	s = Aggregate([]float64{4.0, 4.5})
	assert.Equal(t, 4.3, s.Average, "halves round away from zero")

	s = Aggregate([]float64{2.5, 3.0, 0, 5})
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 2, s.Negative)

	assert.Equal(t, Stats{}, Aggregate(nil))
}

func TestAggregateRanksOnMean(t *testing.T) {
	s := Aggregate(append(repeat(1.0, 19), 1.5))
	assert.Equal(t, 1.0, s.Average)
	assert.InDelta(t, 1.025, s.Mean, 1e-9)
	assert.Equal(t, Fraudulent, RankFor(s, true))

	s = Aggregate(append(repeat(4.0, 24), 3.0))
	assert.Equal(t, 4.0, s.Average)
	assert.Equal(t, Reliable, RankFor(s, true))
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestValidateRating(t *testing.T) {
	for _, ok := range []float64{0, 0.5, 1, 2.5, 3, 4.5, 5} {
		assert.NoError(t, ValidateRating(ok), "%v", ok)
	}
	for _, bad := range []float64{3.3, 5.5, -0.5, 4.25, 0.1, 5.01} {
		assert.ErrorIs(t, ValidateRating(bad), ErrInvalidRating, "%v", bad)
	}
}

func TestRankLevelOrder(t *testing.T) {
	assert.Equal(t, 0, Beginner.Level())
	assert.Equal(t, 4, Respected.Level())
	assert.Equal(t, 12, Banned.Level())
	assert.False(t, Rank("Unknown").Valid())
	assert.Less(t, Trusted.Level(), Legendary.Level())
}
