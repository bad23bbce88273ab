// Package classifier finds advertisement reads in a transcript window via
// an external LLM.
package classifier

import (
	"context"

	"podcast-adscan/internal/types"
)

// Usage is the token consumption of one classification call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Classification is the structured result for one analysis window. Segment
// timestamps are already global because the window text embeds absolute
// timestamps.
type Classification struct {
	Segments []types.AdSegment `json:"segments"`
	Usage    Usage             `json:"usage"`
}

// Classifier is a pluggable ad-detection backend.
type Classifier interface {
	Classify(ctx context.Context, windowText string) (Classification, error)
}
