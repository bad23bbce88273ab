package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"podcast-adscan/internal/types"
)

const systemPrompt = `You detect advertisements in podcast transcripts.
The transcript lines are prefixed with their absolute timestamp in milliseconds.
Return ONLY a JSON object of the form:
{"segments": [{"start_ms": <int>, "end_ms": <int>, "category": "sponsor"|"self_promotion", "description": "<short description of what is advertised>"}]}
"sponsor" is a paid third-party ad read; "self_promotion" promotes the show, its network, or its merchandise.
Return {"segments": []} when the window contains no advertisement.`

// LLMClient calls a chat-completions style endpoint and parses the JSON
// object out of the reply content.
type LLMClient struct {
	URL    string
	APIKey string
	Model  string

	httpClient *http.Client
	maxElapsed time.Duration
}

func NewLLMClient(url, apiKey, model string) *LLMClient {
	return &LLMClient{
		URL:        url,
		APIKey:     apiKey,
		Model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		maxElapsed: 4 * time.Minute,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Classify sends the window text to the LLM. Server errors are retried with
// backoff; a reply whose content does not contain the expected JSON object
// fails permanently with types.ErrClassificationParse.
func (c *LLMClient) Classify(ctx context.Context, windowText string) (Classification, error) {
	if c.URL == "" {
		return Classification{}, fmt.Errorf("%w: classifier URL not configured", types.ErrClassificationFailed)
	}

	payload, _ := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: windowText},
		},
		Temperature: 0.0,
	})

	var out Classification
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrClassificationFailed, err)
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: http %d: %s", types.ErrClassificationFailed, resp.StatusCode, raw)
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("%w: http %d: %s", types.ErrClassificationFailed, resp.StatusCode, raw))
		}

		var parsed chatResponse
		if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("%w: unexpected response: %s", types.ErrClassificationParse, raw))
		}
		segments, err := ParseSegments(parsed.Choices[0].Message.Content)
		if err != nil {
			return backoff.Permanent(err)
		}
		out = Classification{
			Segments: segments,
			Usage: Usage{
				InputTokens:  parsed.Usage.PromptTokens,
				OutputTokens: parsed.Usage.CompletionTokens,
			},
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return Classification{}, err
	}
	return out, nil
}

// ParseSegments extracts the segments object from LLM reply content. Models
// wrap JSON in prose or code fences, so the object is located by the first
// '{' and last '}' rather than decoded directly.
func ParseSegments(content string) ([]types.AdSegment, error) {
	start := bytes.IndexByte([]byte(content), '{')
	end := bytes.LastIndexByte([]byte(content), '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in %q", types.ErrClassificationParse, content)
	}
	var body struct {
		Segments []types.AdSegment `json:"segments"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &body); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrClassificationParse, err)
	}
	for _, s := range body.Segments {
		if s.Category != types.CategorySponsor && s.Category != types.CategorySelfPromo {
			return nil, fmt.Errorf("%w: unknown category %q", types.ErrClassificationParse, s.Category)
		}
		if s.StartMS < 0 || s.EndMS <= s.StartMS {
			return nil, fmt.Errorf("%w: bad span [%d, %d)", types.ErrClassificationParse, s.StartMS, s.EndMS)
		}
	}
	return body.Segments, nil
}
