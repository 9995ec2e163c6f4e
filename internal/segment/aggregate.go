package segment

import "math"

// Stats is the aggregate summary of a matched subset relative to the whole
// collection it was drawn from.
type Stats struct {
	// Count is the number of customers in the subset.
	Count int `json:"count"`

	// TotalValue is the sum of LifetimeValue over the subset.
	TotalValue float64 `json:"total_value"`

	// AverageValue is TotalValue / Count, or 0 for an empty subset.
	AverageValue float64 `json:"average_value"`

	// MarketSharePercent is the subset's share of the whole collection's
	// lifetime value, rounded to the nearest integer percent. It lies in
	// [0, 100] whenever the subset is drawn from the whole collection.
	MarketSharePercent int `json:"market_share_percent"`
}

// Aggregate computes the summary statistics for a matched subset. It is pure
// and guards every division, so an empty subset or a zero-value collection
// yields zeros rather than NaN/Inf.
func Aggregate(matched, whole []Customer) Stats {
	var stats Stats
	stats.Count = len(matched)

	for _, c := range matched {
		stats.TotalValue += c.LifetimeValue
	}

	if stats.Count > 0 {
		stats.AverageValue = stats.TotalValue / float64(stats.Count)
	}

	var wholeTotal float64
	for _, c := range whole {
		wholeTotal += c.LifetimeValue
	}

	if wholeTotal > 0 {
		stats.MarketSharePercent = int(math.Round(stats.TotalValue / wholeTotal * 100))
	}

	return stats
}
