// Package pipeline runs one episode end to end: download, chunk, transcribe,
// classify, merge, persist.
package pipeline

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"podcast-adscan/internal/adseg"
	"podcast-adscan/internal/classifier"
	"podcast-adscan/internal/config"
	"podcast-adscan/internal/jobs"
	"podcast-adscan/internal/logger"
	"podcast-adscan/internal/store"
	"podcast-adscan/internal/timeline"
	"podcast-adscan/internal/transcriber"
	"podcast-adscan/internal/types"
)

// Fetcher obtains the raw episode audio.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (audioPath, workDir string, err error)
}

// AudioTool probes and cuts local audio files.
type AudioTool interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	Cut(ctx context.Context, src, dst string, start, duration time.Duration) error
}

// Orchestrator owns the full analysis sequence for each run it executes.
// Chunks and windows are processed strictly in order, so a run holds at
// most one external call in flight at a time.
type Orchestrator struct {
	Cfg        config.Config
	Log        *logger.Logger
	Fetcher    Fetcher
	Audio      AudioTool
	Transcribe transcriber.Transcriber
	Classify   classifier.Classifier
	Store      store.Store
	Registry   *jobs.Registry
}

// Execute runs the pipeline for a run previously created in the registry
// and finalizes the registry entry with the outcome. A failed run caches
// nothing; downloaded and chunked audio is removed on every path.
func (o *Orchestrator) Execute(ctx context.Context, run jobs.Run, locator string) {
	log := o.Log.WithRun(run.ID, run.NormalizedURL)
	log.Info("run started")

	result, err := o.analyze(ctx, log, run.NormalizedURL, locator)
	if err != nil {
		log.WithField("error", err.Error()).Warn("run failed")
		o.Registry.Finish(run.ID, nil, err)
		return
	}
	if err := o.Store.Put(ctx, result); err != nil {
		log.WithField("error", err.Error()).Error("result write failed")
		o.Registry.Finish(run.ID, nil, err)
		return
	}
	o.Registry.Finish(run.ID, result, nil)
	log.WithField("segments", len(result.Segments)).Info("run done")
}

func (o *Orchestrator) analyze(ctx context.Context, log *logrus.Entry, normalizedURL, locator string) (*types.EpisodeResult, error) {
	audioPath, workDir, err := o.Fetcher.Fetch(ctx, locator)
	if err != nil {
		return nil, err
	}
	// Audio artifacts never outlive the run, success or failure.
	defer os.RemoveAll(workDir)

	segments, cost, err := o.transcribeAll(ctx, log, audioPath, workDir)
	if err != nil {
		return nil, err
	}
	if err := o.writeTranscript(normalizedURL, segments); err != nil {
		return nil, err
	}

	raw, err := o.classifyWindows(ctx, log, segments, &cost)
	if err != nil {
		return nil, err
	}

	return &types.EpisodeResult{
		NormalizedURL: normalizedURL,
		Title:         titleOf(normalizedURL),
		Segments:      adseg.Merge(raw, o.Cfg.GapToleranceMS),
		Cost:          cost,
		AnalyzedAt:    time.Now().UTC(),
	}, nil
}

// transcribeAll cuts the audio into fixed-duration chunks when it exceeds
// the size threshold, transcribes each chunk in order, and re-bases the
// chunk-local timestamps by chunk index so the combined transcript is one
// ordered sequence over the episode timeline.
func (o *Orchestrator) transcribeAll(ctx context.Context, log *logrus.Entry, audioPath, workDir string) ([]types.TranscriptSegment, types.CostMetrics, error) {
	var cost types.CostMetrics

	chunkPaths, err := o.chunkAudio(ctx, log, audioPath, workDir)
	if err != nil {
		return nil, cost, err
	}

	var segments []types.TranscriptSegment
	for i, chunkPath := range chunkPaths {
		tr, err := o.Transcribe.Transcribe(ctx, chunkPath)
		if err != nil {
			return nil, cost, err
		}
		offset := time.Duration(i) * o.Cfg.ChunkDuration
		for _, s := range tr.Segments {
			s.Start += offset
			s.End += offset
			segments = append(segments, s)
		}
		cost.TranscriptionSeconds += tr.DurationSeconds
		log.WithField("chunk", i).WithField("segments", len(tr.Segments)).Debug("chunk transcribed")
	}
	cost.TranscriptionCostUSD = cost.TranscriptionSeconds / 60 * o.Cfg.TranscriptionPerMinute
	return segments, cost, nil
}

// chunkAudio returns the chunk files to transcribe, in timeline order.
// Small files skip ffmpeg entirely and are transcribed whole.
func (o *Orchestrator) chunkAudio(ctx context.Context, log *logrus.Entry, audioPath, workDir string) ([]string, error) {
	// The download already succeeded, so a stat failure here is a local
	// audio-handling problem, not a fetch problem.
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTranscriptionFailed, err)
	}
	if info.Size() <= o.Cfg.ChunkSizeBytes {
		return []string{audioPath}, nil
	}

	total, err := o.Audio.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTranscriptionFailed, err)
	}
	// Fixed-length chunks, no overlap: offsets stay a plain multiple of the
	// chunk duration, which is what the re-basing step assumes.
	windows := timeline.Plan(total, o.Cfg.ChunkDuration, 0)
	log.WithField("chunks", len(windows)).WithField("total", total.String()).Info("chunking audio")

	paths := make([]string, 0, len(windows))
	for i, w := range windows {
		dst := filepath.Join(workDir, fmt.Sprintf("chunk_%03d.mp3", i))
		if err := o.Audio.Cut(ctx, audioPath, dst, w.Start, w.Duration()); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrTranscriptionFailed, err)
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

// classifyWindows walks overlapping analysis windows over the transcript
// and collects every candidate segment the classifier reports. Windows past
// the last transcript segment are skipped.
func (o *Orchestrator) classifyWindows(ctx context.Context, log *logrus.Entry, segments []types.TranscriptSegment, cost *types.CostMetrics) ([]types.AdSegment, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	total := segments[len(segments)-1].End
	windows := timeline.Plan(total, o.Cfg.WindowSize, o.Cfg.WindowOverlap)

	var raw []types.AdSegment
	for i, w := range windows {
		if !timeline.RemainAfter(segments, w.Start) {
			break
		}
		text := windowText(timeline.Slice(segments, w))
		if text == "" {
			continue
		}
		res, err := o.Classify.Classify(ctx, text)
		if err != nil {
			return nil, err
		}
		cost.ClassifierInputTokens += res.Usage.InputTokens
		cost.ClassifierOutputTokens += res.Usage.OutputTokens
		raw = append(raw, res.Segments...)
		log.WithField("window", i).WithField("candidates", len(res.Segments)).Debug("window classified")
	}
	cost.ClassificationCostUSD = float64(cost.ClassifierInputTokens)/1000*o.Cfg.InputTokenPer1K +
		float64(cost.ClassifierOutputTokens)/1000*o.Cfg.OutputTokenPer1K
	return raw, nil
}

// windowText renders transcript segments with absolute millisecond
// timestamps so the classifier can return global time spans.
func windowText(segments []types.TranscriptSegment) string {
	var b strings.Builder
	for _, s := range segments {
		fmt.Fprintf(&b, "[%dms] %s\n", s.Start.Milliseconds(), strings.TrimSpace(s.Text))
	}
	return strings.TrimSpace(b.String())
}

// writeTranscript persists the full re-based transcript as a durable
// artifact, kept after the run unlike the audio files.
func (o *Orchestrator) writeTranscript(normalizedURL string, segments []types.TranscriptSegment) error {
	if o.Cfg.TranscriptDir == "" {
		return nil
	}
	if err := os.MkdirAll(o.Cfg.TranscriptDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	sum := sha1.Sum([]byte(normalizedURL))
	dst := filepath.Join(o.Cfg.TranscriptDir, hex.EncodeToString(sum[:])+".json")
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	return nil
}

func titleOf(normalizedURL string) string {
	base := path.Base(normalizedURL)
	return strings.TrimSuffix(base, path.Ext(base))
}
