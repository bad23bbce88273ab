package timeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast-adscan/internal/timeline"
	"podcast-adscan/internal/types"
)

func TestPlanOverlapScenario(t *testing.T) {
	// 1500s episode, 600s windows, 30s overlap.
	windows := timeline.Plan(1500*time.Second, 600*time.Second, 30*time.Second)

	require.Len(t, windows, 3)
	assert.Equal(t, timeline.Window{Start: 0, End: 600 * time.Second}, windows[0])
	assert.Equal(t, timeline.Window{Start: 570 * time.Second, End: 1170 * time.Second}, windows[1])
	assert.Equal(t, timeline.Window{Start: 1140 * time.Second, End: 1500 * time.Second}, windows[2])
}

func TestPlanShortInputSingleWindow(t *testing.T) {
	windows := timeline.Plan(300*time.Second, 600*time.Second, 30*time.Second)

	require.Len(t, windows, 1)
	assert.Equal(t, timeline.Window{Start: 0, End: 300 * time.Second}, windows[0])
}

func TestPlanExactFit(t *testing.T) {
	windows := timeline.Plan(600*time.Second, 600*time.Second, 30*time.Second)
	require.Len(t, windows, 1)
	assert.Equal(t, 600*time.Second, windows[0].End)
}

func TestPlanNoOverlapChunks(t *testing.T) {
	windows := timeline.Plan(1250*time.Second, 600*time.Second, 0)

	require.Len(t, windows, 3)
	assert.Equal(t, timeline.Window{Start: 0, End: 600 * time.Second}, windows[0])
	assert.Equal(t, timeline.Window{Start: 600 * time.Second, End: 1200 * time.Second}, windows[1])
	assert.Equal(t, timeline.Window{Start: 1200 * time.Second, End: 1250 * time.Second}, windows[2])
}

func TestPlanCoverage(t *testing.T) {
	cases := []struct {
		total, size, overlap time.Duration
	}{
		{3605 * time.Second, 600 * time.Second, 30 * time.Second},
		{7200 * time.Second, 900 * time.Second, 30 * time.Second},
		{601 * time.Second, 600 * time.Second, 0},
		{59 * time.Second, 600 * time.Second, 30 * time.Second},
	}
	for _, tc := range cases {
		windows := timeline.Plan(tc.total, tc.size, tc.overlap)
		require.NotEmpty(t, windows)

		// Starts at zero, ends at total, no gaps between consecutive windows.
		assert.Equal(t, time.Duration(0), windows[0].Start)
		assert.Equal(t, tc.total, windows[len(windows)-1].End)
		for i := 1; i < len(windows); i++ {
			assert.LessOrEqual(t, windows[i].Start, windows[i-1].End, "gap between windows %d and %d", i-1, i)
			assert.Greater(t, windows[i].Start, windows[i-1].Start, "starts must increase")
			if i < len(windows)-1 {
				assert.Equal(t, tc.overlap, windows[i-1].End-windows[i].Start, "overlap between windows %d and %d", i-1, i)
			}
		}
		for _, w := range windows {
			assert.Less(t, w.Start, w.End)
		}
	}
}

func TestPlanZeroTotal(t *testing.T) {
	assert.Nil(t, timeline.Plan(0, 600*time.Second, 30*time.Second))
}

func TestSliceSelectsByStart(t *testing.T) {
	segs := []types.TranscriptSegment{
		{Start: 10 * time.Second, End: 20 * time.Second, Text: "a"},
		{Start: 590 * time.Second, End: 610 * time.Second, Text: "b"},
		{Start: 600 * time.Second, End: 620 * time.Second, Text: "c"},
	}
	w := timeline.Window{Start: 0, End: 600 * time.Second}

	got := timeline.Slice(segs, w)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
}

func TestRemainAfter(t *testing.T) {
	segs := []types.TranscriptSegment{
		{Start: 0, End: 5 * time.Second},
		{Start: 100 * time.Second, End: 110 * time.Second},
	}
	assert.True(t, timeline.RemainAfter(segs, 50*time.Second))
	assert.True(t, timeline.RemainAfter(segs, 100*time.Second))
	assert.False(t, timeline.RemainAfter(segs, 101*time.Second))
	assert.False(t, timeline.RemainAfter(nil, 0))
}
