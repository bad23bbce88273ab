package config

import (
	"fmt"
	"os"
	"time"
)

// Config carries every tunable the service reads from the environment.
// Defaults are production values; tests construct Config literals directly.
type Config struct {
	Port string

	// Storage
	StoreBackend  string // "file" or "postgres"
	StoreDir      string // file backend: directory of result JSON files
	PostgresDSN   string
	TranscriptDir string // retained transcript artifacts
	WorkDir       string // temporary audio downloads and chunks

	// Collaborators
	TranscriberURL   string
	TranscriberKey   string
	TranscriberModel string
	ClassifierURL    string
	ClassifierKey    string
	ClassifierModel  string

	// Audio chunking: applied only when the download exceeds ChunkSizeBytes.
	ChunkSizeBytes int64
	ChunkDuration  time.Duration

	// Transcript analysis windows
	WindowSize    time.Duration
	WindowOverlap time.Duration

	// Segment merging
	GapToleranceMS int64

	// Imputed cost rates, USD
	TranscriptionPerMinute float64
	InputTokenPer1K        float64
	OutputTokenPer1K       float64
}

func Load() Config {
	return Config{
		Port: envOr("PORT", "8080"),

		StoreBackend:  envOr("STORE_BACKEND", "file"),
		StoreDir:      envOr("STORE_DIR", "data/results"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		TranscriptDir: envOr("TRANSCRIPT_DIR", "data/transcripts"),
		WorkDir:       envOr("WORK_DIR", os.TempDir()),

		TranscriberURL:   os.Getenv("TRANSCRIBER_URL"),
		TranscriberKey:   os.Getenv("TRANSCRIBER_API_KEY"),
		TranscriberModel: envOr("TRANSCRIBER_MODEL", "whisper-1"),
		ClassifierURL:    os.Getenv("CLASSIFIER_URL"),
		ClassifierKey:    os.Getenv("CLASSIFIER_API_KEY"),
		ClassifierModel:  envOr("CLASSIFIER_MODEL", "gpt-4o-mini"),

		ChunkSizeBytes: envInt64("CHUNK_SIZE_BYTES", 24*1024*1024),
		ChunkDuration:  envDuration("CHUNK_DURATION_SEC", 600),

		WindowSize:    envDuration("WINDOW_SIZE_SEC", 900),
		WindowOverlap: envDuration("WINDOW_OVERLAP_SEC", 30),

		GapToleranceMS: envInt64("GAP_TOLERANCE_MS", 30000),

		TranscriptionPerMinute: envFloat("COST_TRANSCRIPTION_PER_MIN", 0.006),
		InputTokenPer1K:        envFloat("COST_INPUT_PER_1K", 0.00015),
		OutputTokenPer1K:       envFloat("COST_OUTPUT_PER_1K", 0.0006),
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		var n int64
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
	}
	return def
}

func envDuration(k string, defSec int64) time.Duration {
	return time.Duration(envInt64(k, defSec)) * time.Second
}
