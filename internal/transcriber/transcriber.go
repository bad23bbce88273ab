// Package transcriber converts an audio chunk into timestamped text via an
// external speech-to-text service.
package transcriber

import (
	"context"

	"podcast-adscan/internal/types"
)

// Transcript is the result for one audio chunk. Segment timestamps are
// chunk-local; the pipeline re-bases them onto the episode timeline.
type Transcript struct {
	Text            string
	Segments        []types.TranscriptSegment
	DurationSeconds float64
}

// Transcriber is a pluggable speech-to-text backend. Implementations own
// their retry policy; the caller sees a single success or failure.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}
