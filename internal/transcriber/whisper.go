package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"podcast-adscan/internal/types"
)

// WhisperClient talks to a whisper-compatible transcription endpoint using
// multipart upload and the verbose JSON response format, which carries
// per-segment timestamps.
type WhisperClient struct {
	URL    string
	APIKey string
	Model  string

	httpClient *http.Client
	maxElapsed time.Duration
}

func NewWhisperClient(url, apiKey, model string) *WhisperClient {
	return &WhisperClient{
		URL:        url,
		APIKey:     apiKey,
		Model:      model,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		maxElapsed: 10 * time.Minute,
	}
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Duration float64          `json:"duration"`
	Segments []whisperSegment `json:"segments"`
}

// Transcribe uploads the chunk and retries transient failures with
// exponential backoff before giving up.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	if c.URL == "" {
		return Transcript{}, fmt.Errorf("%w: transcriber URL not configured", types.ErrTranscriptionFailed)
	}

	var result whisperResponse
	op := func() error {
		return c.upload(ctx, audioPath, &result)
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return Transcript{}, fmt.Errorf("%w: %v", types.ErrTranscriptionFailed, err)
	}

	tr := Transcript{Text: result.Text, DurationSeconds: result.Duration}
	for _, s := range result.Segments {
		tr.Segments = append(tr.Segments, types.TranscriptSegment{
			Start: time.Duration(s.Start * float64(time.Second)),
			End:   time.Duration(s.End * float64(time.Second)),
			Text:  s.Text,
		})
	}
	return tr, nil
}

func (c *WhisperClient) upload(ctx context.Context, audioPath string, out *whisperResponse) error {
	f, err := os.Open(audioPath)
	if err != nil {
		return backoff.Permanent(err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("model", c.Model)
	_ = mw.WriteField("response_format", "verbose_json")
	_ = mw.WriteField("timestamp_granularities[]", "segment")
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return backoff.Permanent(err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return backoff.Permanent(err)
	}
	if err := mw.Close(); err != nil {
		return backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &body)
	if err != nil {
		return backoff.Permanent(err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		return fmt.Errorf("transcriber http %d: %s", resp.StatusCode, raw)
	}
	if resp.StatusCode >= 300 {
		return backoff.Permanent(fmt.Errorf("transcriber http %d: %s", resp.StatusCode, raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode transcriber response: %v", err))
	}
	return nil
}
