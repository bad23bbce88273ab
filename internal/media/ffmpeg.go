// Package media shells out to ffmpeg/ffprobe for duration probing and
// time-range cutting.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Tool wraps the ffmpeg and ffprobe binaries. Paths are overridable so
// tests can point at stubs.
type Tool struct {
	FFmpegPath  string
	FFprobePath string
}

func NewTool() *Tool {
	return &Tool{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"}
}

// ProbeDuration returns the audio duration reported by ffprobe.
func (t *Tool) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, t.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: parse duration %q: %w", out.String(), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Cut extracts [start, start+duration) from src into dst, re-encoding to
// mono 16 kHz at low bitrate. The profile keeps every chunk well under the
// transcriber's upload ceiling.
func (t *Tool) Cut(ctx context.Context, src, dst string, start, duration time.Duration) error {
	cmd := exec.CommandContext(ctx, t.FFmpegPath,
		"-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", src,
		"-ac", "1", "-ar", "16000", "-b:a", "48k",
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
