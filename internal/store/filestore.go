package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"podcast-adscan/internal/types"
)

// FileStore keeps one JSON file per identity under dir. File names are the
// sha-1 of the normalized URL, so any locator maps to a safe, collision-free
// path. Writes go through a temp file and rename.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(normalizedURL string) string {
	sum := sha1.Sum([]byte(normalizedURL))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}

func (s *FileStore) Get(_ context.Context, normalizedURL string) (*types.EpisodeResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(normalizedURL))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	var res types.EpisodeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("%w: decode %s: %v", types.ErrPersistenceFailed, s.path(normalizedURL), err)
	}
	return &res, true, nil
}

func (s *FileStore) Put(_ context.Context, result *types.EpisodeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", types.ErrPersistenceFailed, err)
	}
	dst := s.path(result.NormalizedURL)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]types.EpisodeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
	}
	var out []types.EpisodeResult
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrPersistenceFailed, err)
		}
		var res types.EpisodeResult
		if err := json.Unmarshal(data, &res); err != nil {
			// skip unreadable entries rather than failing the whole listing
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NormalizedURL < out[j].NormalizedURL })
	return out, nil
}
