// Package stats summarizes ad load across all analyzed episodes.
package stats

import "podcast-adscan/internal/types"

type Summary struct {
	Episodes              int              `json:"episodes"`
	SegmentCounts         map[string]int   `json:"segment_counts"`
	AdMillisByCat         map[string]int64 `json:"ad_millis_by_category"`
	TotalCostUSD          float64          `json:"total_cost_usd"`
	AvgSegmentsPerEpisode float64          `json:"avg_segments_per_episode"`
}

func Aggregate(results []types.EpisodeResult) Summary {
	counts := map[string]int{}
	millis := map[string]int64{}
	total := 0
	cost := 0.0
	for _, r := range results {
		for _, s := range r.Segments {
			counts[s.Category]++
			millis[s.Category] += s.EndMS - s.StartMS
			total++
		}
		cost += r.Cost.TranscriptionCostUSD + r.Cost.ClassificationCostUSD
	}
	avg := 0.0
	if len(results) > 0 {
		avg = float64(total) / float64(len(results))
	}
	return Summary{
		Episodes:              len(results),
		SegmentCounts:         counts,
		AdMillisByCat:         millis,
		TotalCostUSD:          cost,
		AvgSegmentsPerEpisode: avg,
	}
}
