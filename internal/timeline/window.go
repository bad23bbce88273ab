package timeline

import (
	"time"

	"podcast-adscan/internal/types"
)

// Window is a half-open interval [Start, End) on the episode timeline.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End - w.Start
}

// Plan splits [0, total) into windows of the given size, consecutive windows
// overlapping by overlap. The final window is clipped at total. When total
// fits in a single window exactly one window is returned, so callers can
// skip chunking work entirely for short inputs. overlap must be smaller
// than size; zero overlap gives back-to-back windows.
func Plan(total, size, overlap time.Duration) []Window {
	if total <= 0 || size <= 0 {
		return nil
	}
	if total <= size {
		return []Window{{Start: 0, End: total}}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	step := size - overlap
	var out []Window
	for t := time.Duration(0); t < total; t += step {
		end := t + size
		if end > total {
			end = total
		}
		out = append(out, Window{Start: t, End: end})
		if end >= total {
			break
		}
	}
	return out
}

// Slice returns the transcript segments whose start falls inside w.
// Segments are assumed time-ordered, as the pipeline produces them.
func Slice(segments []types.TranscriptSegment, w Window) []types.TranscriptSegment {
	var out []types.TranscriptSegment
	for _, s := range segments {
		if s.Start >= w.End {
			break
		}
		if s.Start >= w.Start {
			out = append(out, s)
		}
	}
	return out
}

// RemainAfter reports whether any segment starts at or after t. Used to
// short-circuit window processing once the transcript is exhausted.
func RemainAfter(segments []types.TranscriptSegment, t time.Duration) bool {
	if len(segments) == 0 {
		return false
	}
	// ordered input: the last segment has the latest start
	return segments[len(segments)-1].Start >= t
}
