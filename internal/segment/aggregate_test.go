package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	t.Parallel()

	whole := []Customer{
		{ID: "1", LifetimeValue: 12000},
		{ID: "2", LifetimeValue: 500},
		{ID: "3", LifetimeValue: 0},
		{ID: "4", LifetimeValue: 15000},
	}

	tests := []struct {
		name    string
		matched []Customer
		whole   []Customer
		want    Stats
	}{
		{
			name:    "Should return all zeros for an empty subset (no division error)",
			matched: []Customer{},
			whole:   whole,
			want:    Stats{Count: 0, TotalValue: 0, AverageValue: 0, MarketSharePercent: 0},
		},
		{
			name:    "Should return zero market share when the whole collection has no value",
			matched: []Customer{{ID: "x", LifetimeValue: 0}},
			whole:   []Customer{{ID: "x", LifetimeValue: 0}},
			want:    Stats{Count: 1, TotalValue: 0, AverageValue: 0, MarketSharePercent: 0},
		},
		{
			name:    "Should compute totals, average and rounded market share",
			matched: []Customer{whole[0], whole[3]}, // 12000 + 15000
			whole:   whole,                          // 27500 total
			want:    Stats{Count: 2, TotalValue: 27000, AverageValue: 13500, MarketSharePercent: 98},
		},
		{
			name:    "Should reach exactly 100 percent when the subset is the whole",
			matched: whole,
			whole:   whole,
			want:    Stats{Count: 4, TotalValue: 27500, AverageValue: 6875, MarketSharePercent: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Aggregate(tt.matched, tt.whole))
		})
	}
}

// TestAggregate_MarketShareBound checks the [0, 100] guarantee across every
// contiguous subset of a sample collection.
func TestAggregate_MarketShareBound(t *testing.T) {
	t.Parallel()

	whole := []Customer{
		{ID: "1", LifetimeValue: 10},
		{ID: "2", LifetimeValue: 0},
		{ID: "3", LifetimeValue: 9999.99},
		{ID: "4", LifetimeValue: 0.01},
		{ID: "5", LifetimeValue: 42},
	}

	for lo := 0; lo <= len(whole); lo++ {
		for hi := lo; hi <= len(whole); hi++ {
			stats := Aggregate(whole[lo:hi], whole)
			assert.GreaterOrEqual(t, stats.MarketSharePercent, 0)
			assert.LessOrEqual(t, stats.MarketSharePercent, 100)
		}
	}
}
