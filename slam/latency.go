package slam

import (
	"time"

	"github.com/montanaflynn/stats"
)

// LatencySummary describes how long the engine took per submitted frame.
type LatencySummary struct {
	Count  int
	Mean   time.Duration
	Median time.Duration
	P95    time.Duration
}

// SummarizeLatencies returns the mean, median and 95th percentile of latencies.
func SummarizeLatencies(latencies []time.Duration) LatencySummary {
	summary := LatencySummary{Count: len(latencies)}
	if len(latencies) == 0 {
		return summary
	}
	data := make(stats.Float64Data, 0, len(latencies))
	for _, l := range latencies {
		data = append(data, float64(l))
	}
	// errors only occur for empty input or out of range percentiles
	mean, _ := data.Mean()
	median, _ := data.Median()
	p95, _ := data.Percentile(95)
	summary.Mean = time.Duration(mean)
	summary.Median = time.Duration(median)
	summary.P95 = time.Duration(p95)
	return summary
}
