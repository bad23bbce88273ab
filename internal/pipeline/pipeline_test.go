package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcast-adscan/internal/classifier"
	"podcast-adscan/internal/config"
	"podcast-adscan/internal/jobs"
	"podcast-adscan/internal/logger"
	"podcast-adscan/internal/pipeline"
	"podcast-adscan/internal/store"
	"podcast-adscan/internal/transcriber"
	"podcast-adscan/internal/types"
)

// stubFetcher writes a fake audio file of the configured size.
type stubFetcher struct {
	dir  string
	size int
	err  error

	workDir string
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.workDir = filepath.Join(f.dir, "work")
	if err := os.MkdirAll(f.workDir, 0o755); err != nil {
		return "", "", err
	}
	audio := filepath.Join(f.workDir, "episode.mp3")
	if err := os.WriteFile(audio, make([]byte, f.size), 0o644); err != nil {
		return "", "", err
	}
	return audio, f.workDir, nil
}

// stubAudio records cuts and reports a fixed duration.
type stubAudio struct {
	duration time.Duration
	cuts     []time.Duration // start offsets, in call order
}

func (a *stubAudio) ProbeDuration(context.Context, string) (time.Duration, error) {
	return a.duration, nil
}

func (a *stubAudio) Cut(_ context.Context, _, dst string, start, _ time.Duration) error {
	a.cuts = append(a.cuts, start)
	return os.WriteFile(dst, []byte("chunk"), 0o644)
}

// stubTranscriber returns one canned transcript per call.
type stubTranscriber struct {
	results []transcriber.Transcript
	calls   int
	err     error
}

func (s *stubTranscriber) Transcribe(context.Context, string) (transcriber.Transcript, error) {
	if s.err != nil {
		return transcriber.Transcript{}, s.err
	}
	res := s.results[s.calls%len(s.results)]
	s.calls++
	return res, nil
}

// stubClassifier returns one canned classification per call and captures
// the window texts it was given.
type stubClassifier struct {
	results []classifier.Classification
	texts   []string
	err     error
}

func (s *stubClassifier) Classify(_ context.Context, text string) (classifier.Classification, error) {
	if s.err != nil {
		return classifier.Classification{}, s.err
	}
	s.texts = append(s.texts, text)
	res := s.results[(len(s.texts)-1)%len(s.results)]
	return res, nil
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		TranscriptDir:          filepath.Join(t.TempDir(), "transcripts"),
		ChunkSizeBytes:         1024,
		ChunkDuration:          600 * time.Second,
		WindowSize:             900 * time.Second,
		WindowOverlap:          30 * time.Second,
		GapToleranceMS:         30000,
		TranscriptionPerMinute: 0.006,
		InputTokenPer1K:        0.001,
		OutputTokenPer1K:       0.002,
	}
}

func newOrchestrator(t *testing.T, cfg config.Config, f pipeline.Fetcher, a pipeline.AudioTool, tr transcriber.Transcriber, cl classifier.Classifier) (*pipeline.Orchestrator, *jobs.Registry, store.Store) {
	fs, err := store.NewFileStore(filepath.Join(t.TempDir(), "results"))
	require.NoError(t, err)
	reg := jobs.New()
	return &pipeline.Orchestrator{
		Cfg:        cfg,
		Log:        logger.New(),
		Fetcher:    f,
		Audio:      a,
		Transcribe: tr,
		Classify:   cl,
		Store:      fs,
		Registry:   reg,
	}, reg, fs
}

func segs(pairs ...[2]time.Duration) []types.TranscriptSegment {
	var out []types.TranscriptSegment
	for _, p := range pairs {
		out = append(out, types.TranscriptSegment{Start: p[0], End: p[1], Text: "speech"})
	}
	return out
}

func TestExecuteSuccessSmallFile(t *testing.T) {
	fetcher := &stubFetcher{dir: t.TempDir(), size: 100} // under threshold: no chunking
	audio := &stubAudio{}
	tr := &stubTranscriber{results: []transcriber.Transcript{{
		Segments: segs(
			[2]time.Duration{0, 10 * time.Second},
			[2]time.Duration{880 * time.Second, 890 * time.Second},
			[2]time.Duration{1190 * time.Second, 1200 * time.Second},
		),
		DurationSeconds: 1200,
	}}}
	cl := &stubClassifier{results: []classifier.Classification{
		{
			Segments: []types.AdSegment{{StartMS: 0, EndMS: 5000, Category: types.CategorySponsor, Description: "Acme VPN"}},
			Usage:    classifier.Usage{InputTokens: 1000, OutputTokens: 50},
		},
		{
			Segments: []types.AdSegment{{StartMS: 4500, EndMS: 9000, Category: types.CategorySponsor, Description: "Acme VPN"}},
			Usage:    classifier.Usage{InputTokens: 800, OutputTokens: 40},
		},
	}}

	cfg := testConfig(t)
	orch, reg, resultStore := newOrchestrator(t, cfg, fetcher, audio, tr, cl)
	run, _ := reg.StartIfAbsent("https://cdn.example.com/ep.mp3")

	orch.Execute(context.Background(), run, "https://cdn.example.com/ep.mp3?tok=a")

	got, ok := reg.Get(run.ID)
	require.True(t, ok)
	require.Equal(t, jobs.StatusDone, got.Status, "run error: %s", got.Error)

	// 1200s transcript, 900s windows with 30s overlap: two windows, and the
	// duplicate sponsor reports merged into one segment.
	assert.Len(t, cl.texts, 2)
	require.NotNil(t, got.Result)
	require.Len(t, got.Result.Segments, 1)
	assert.Equal(t, int64(0), got.Result.Segments[0].StartMS)
	assert.Equal(t, int64(9000), got.Result.Segments[0].EndMS)

	// Result cached under the normalized identity.
	cached, ok, err := resultStore.Get(context.Background(), "https://cdn.example.com/ep.mp3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got.Result.Segments, cached.Segments)

	// Costs accumulated across windows.
	assert.InDelta(t, 1200.0, cached.Cost.TranscriptionSeconds, 0.001)
	assert.Equal(t, 1800, cached.Cost.ClassifierInputTokens)
	assert.Equal(t, 90, cached.Cost.ClassifierOutputTokens)

	// No ffmpeg involvement for a small file.
	assert.Empty(t, audio.cuts)
	assert.Equal(t, 1, tr.calls)

	// Audio work dir cleaned up, transcript artifact retained.
	_, err = os.Stat(fetcher.workDir)
	assert.True(t, os.IsNotExist(err), "audio work dir must be removed")
	artifacts, err := os.ReadDir(cfg.TranscriptDir)
	require.NoError(t, err)
	assert.Len(t, artifacts, 1)
}

func TestExecuteChunksAndRebases(t *testing.T) {
	fetcher := &stubFetcher{dir: t.TempDir(), size: 4096} // over the 1024 threshold
	audio := &stubAudio{duration: 1200 * time.Second}     // two 600s chunks
	tr := &stubTranscriber{results: []transcriber.Transcript{{
		// Chunk-local timestamps; the pipeline re-bases chunk 1 by 600s.
		Segments:        segs([2]time.Duration{0, 10 * time.Second}),
		DurationSeconds: 600,
	}}}
	cl := &stubClassifier{results: []classifier.Classification{{}}}

	cfg := testConfig(t)
	orch, reg, _ := newOrchestrator(t, cfg, fetcher, audio, tr, cl)
	run, _ := reg.StartIfAbsent("u")

	orch.Execute(context.Background(), run, "u")

	got, _ := reg.Get(run.ID)
	require.Equal(t, jobs.StatusDone, got.Status, "run error: %s", got.Error)

	assert.Equal(t, []time.Duration{0, 600 * time.Second}, audio.cuts)
	assert.Equal(t, 2, tr.calls)

	// The single analysis window sees both re-based lines.
	require.Len(t, cl.texts, 1)
	assert.Contains(t, cl.texts[0], "[0ms]")
	assert.Contains(t, cl.texts[0], "[600000ms]")

	assert.InDelta(t, 1200.0, got.Result.Cost.TranscriptionSeconds, 0.001)
}

func TestExecuteClassifierFailureCachesNothing(t *testing.T) {
	fetcher := &stubFetcher{dir: t.TempDir(), size: 100}
	tr := &stubTranscriber{results: []transcriber.Transcript{{
		Segments:        segs([2]time.Duration{0, 10 * time.Second}),
		DurationSeconds: 10,
	}}}
	cl := &stubClassifier{err: types.ErrClassificationFailed}

	orch, reg, resultStore := newOrchestrator(t, testConfig(t), fetcher, &stubAudio{}, tr, cl)
	run, _ := reg.StartIfAbsent("u")

	orch.Execute(context.Background(), run, "u")

	got, _ := reg.Get(run.ID)
	assert.Equal(t, jobs.StatusError, got.Status)
	assert.Contains(t, got.Error, "classification failed")
	assert.Nil(t, got.Result)

	_, ok, err := resultStore.Get(context.Background(), "u")
	require.NoError(t, err)
	assert.False(t, ok, "failed runs must not be cached")

	// Cleanup still ran.
	_, err = os.Stat(fetcher.workDir)
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteDownloadFailure(t *testing.T) {
	fetcher := &stubFetcher{err: types.ErrDownloadFailed}
	orch, reg, _ := newOrchestrator(t, testConfig(t), fetcher, &stubAudio{}, &stubTranscriber{}, &stubClassifier{})
	run, _ := reg.StartIfAbsent("u")

	orch.Execute(context.Background(), run, "u")

	got, _ := reg.Get(run.ID)
	assert.Equal(t, jobs.StatusError, got.Status)
	assert.Contains(t, got.Error, "download failed")
}

// brokenFetcher reports success but points at a file that does not exist.
type brokenFetcher struct{ dir string }

func (f *brokenFetcher) Fetch(context.Context, string) (string, string, error) {
	return filepath.Join(f.dir, "gone.mp3"), f.dir, nil
}

func TestExecuteUnreadableAudioIsTranscriptionFailure(t *testing.T) {
	fetcher := &brokenFetcher{dir: t.TempDir()}
	orch, reg, _ := newOrchestrator(t, testConfig(t), fetcher, &stubAudio{}, &stubTranscriber{}, &stubClassifier{})
	run, _ := reg.StartIfAbsent("u")

	orch.Execute(context.Background(), run, "u")

	got, _ := reg.Get(run.ID)
	assert.Equal(t, jobs.StatusError, got.Status)
	assert.Contains(t, got.Error, "transcription failed")
	assert.NotContains(t, got.Error, "download failed")
}

func TestExecuteEmptyTranscript(t *testing.T) {
	fetcher := &stubFetcher{dir: t.TempDir(), size: 100}
	tr := &stubTranscriber{results: []transcriber.Transcript{{DurationSeconds: 5}}}
	cl := &stubClassifier{err: errors.New("must not be called")}

	orch, reg, resultStore := newOrchestrator(t, testConfig(t), fetcher, &stubAudio{}, tr, cl)
	run, _ := reg.StartIfAbsent("u")

	orch.Execute(context.Background(), run, "u")

	got, _ := reg.Get(run.ID)
	require.Equal(t, jobs.StatusDone, got.Status, "run error: %s", got.Error)
	assert.Empty(t, got.Result.Segments)

	cached, ok, err := resultStore.Get(context.Background(), "u")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, cached.Segments)
}
