package types

import "time"

// Ad segment categories returned by the classifier.
const (
	CategorySponsor   = "sponsor"
	CategorySelfPromo = "self_promotion"
)

// AdSegment is one advertisement read on the episode timeline.
// Raw segments come out of the classifier per analysis window and may
// overlap or duplicate each other; adseg.Merge produces the canonical form.
type AdSegment struct {
	StartMS     int64  `json:"start_ms"`
	EndMS       int64  `json:"end_ms"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// TranscriptSegment is one timestamped piece of speech. The transcriber
// returns chunk-local timestamps; the pipeline re-bases them onto the
// full-episode timeline before they are used.
type TranscriptSegment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// CostMetrics accumulates usage across all chunks and windows of one run.
// Informational only; nothing branches on these values.
type CostMetrics struct {
	TranscriptionSeconds   float64 `json:"transcription_seconds"`
	TranscriptionCostUSD   float64 `json:"transcription_cost_usd"`
	ClassifierInputTokens  int     `json:"classifier_input_tokens"`
	ClassifierOutputTokens int     `json:"classifier_output_tokens"`
	ClassificationCostUSD  float64 `json:"classification_cost_usd"`
}

// EpisodeResult is the final analysis for one normalized identity, as
// written to the result store.
type EpisodeResult struct {
	NormalizedURL string      `json:"normalized_url"`
	Title         string      `json:"title"`
	Segments      []AdSegment `json:"segments"`
	Cost          CostMetrics `json:"cost"`
	AnalyzedAt    time.Time   `json:"analyzed_at"`
}
