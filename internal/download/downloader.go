// Package download fetches remote episode audio to local disk.
package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"podcast-adscan/internal/identity"
	"podcast-adscan/internal/types"
)

// Downloader writes each episode into its own directory under BaseDir,
// named by the sha-1 of the normalized locator. The same episode always
// lands in the same place; different episodes never collide.
type Downloader struct {
	BaseDir string
	Client  *http.Client
}

func New(baseDir string) *Downloader {
	return &Downloader{
		BaseDir: baseDir,
		Client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// Fetch downloads the locator and returns the audio path and its work
// directory. All failures come back wrapped in types.ErrDownloadFailed.
func (d *Downloader) Fetch(ctx context.Context, locator string) (audioPath, workDir string, err error) {
	key := identity.Normalize(locator)
	sum := sha1.Sum([]byte(key))
	workDir = filepath.Join(d.BaseDir, "episode-"+hex.EncodeToString(sum[:6]))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", "", fmt.Errorf("%w: %v", types.ErrDownloadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", types.ErrDownloadFailed, err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", types.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("%w: http %d from %s", types.ErrDownloadFailed, resp.StatusCode, locator)
	}

	audioPath = filepath.Join(workDir, "episode"+audioExt(key))
	f, err := os.Create(audioPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", types.ErrDownloadFailed, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(audioPath)
		return "", "", fmt.Errorf("%w: %v", types.ErrDownloadFailed, err)
	}
	return audioPath, workDir, nil
}

func audioExt(key string) string {
	ext := strings.ToLower(path.Ext(key))
	switch ext {
	case ".mp3", ".m4a", ".wav", ".ogg", ".aac", ".flac":
		return ext
	}
	return ".mp3"
}
