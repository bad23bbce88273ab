// Package adseg reconciles per-window classifier output into one canonical
// ad-segment timeline.
package adseg

import (
	"sort"
	"strings"

	"podcast-adscan/internal/types"
)

// Merge coalesces raw classifier segments into a sorted, per-category
// non-overlapping list. Analysis windows overlap, so the same ad read is
// routinely reported twice with slightly shifted boundaries; two segments of
// the same category whose gap is within gapToleranceMS are absorbed into
// one. Segments of different categories are never combined, however close,
// and each category is swept independently so a segment of another category
// sitting between two close same-category reads does not block absorption.
// Merge is idempotent: its output passes through unchanged.
func Merge(raw []types.AdSegment, gapToleranceMS int64) []types.AdSegment {
	if len(raw) == 0 {
		return nil
	}

	sorted := make([]types.AdSegment, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartMS != sorted[j].StartMS {
			return sorted[i].StartMS < sorted[j].StartMS
		}
		return sorted[i].EndMS < sorted[j].EndMS
	})

	// One open segment per category.
	open := map[string]*types.AdSegment{}
	out := make([]types.AdSegment, 0, len(sorted))
	for _, cand := range sorted {
		cur := open[cand.Category]
		if cur != nil && cand.StartMS <= cur.EndMS+gapToleranceMS {
			if cand.EndMS > cur.EndMS {
				cur.EndMS = cand.EndMS
			}
			cur.Description = joinDescriptions(cur.Description, cand.Description)
			continue
		}
		if cur != nil {
			out = append(out, *cur)
		}
		c := cand
		open[cand.Category] = &c
	}
	for _, cur := range open {
		out = append(out, *cur)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartMS != out[j].StartMS {
			return out[i].StartMS < out[j].StartMS
		}
		if out[i].EndMS != out[j].EndMS {
			return out[i].EndMS < out[j].EndMS
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// joinDescriptions appends b to a unless b adds nothing new. Keeps distinct
// detail from both windows without repeating a verbatim duplicate.
func joinDescriptions(a, b string) string {
	b = strings.TrimSpace(b)
	if b == "" || strings.Contains(a, b) {
		return a
	}
	if a == "" {
		return b
	}
	return a + "; " + b
}
