// Package jobs tracks in-flight analysis runs and enforces at most one
// running run per normalized identity within this process.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"podcast-adscan/internal/types"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Run is one end-to-end pipeline execution for one identity.
type Run struct {
	ID            string               `json:"id"`
	NormalizedURL string               `json:"normalized_url"`
	Status        Status               `json:"status"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    *time.Time           `json:"finished_at,omitempty"`
	Result        *types.EpisodeResult `json:"result,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// Registry is the process-wide run map. Entries are never evicted; growth
// is bounded only by process lifetime.
type Registry struct {
	mu   sync.Mutex
	runs map[string]*Run
}

func New() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

// StartIfAbsent creates a running run for the identity unless one is already
// running, in which case the existing run is returned with alreadyRunning
// set. The check and the insert are one critical section, so two concurrent
// callers for the same identity cannot both start a run.
func (r *Registry) StartIfAbsent(normalizedURL string) (run Run, alreadyRunning bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.runs {
		if existing.NormalizedURL == normalizedURL && existing.Status == StatusRunning {
			return *existing, true
		}
	}

	created := &Run{
		ID:            uuid.New().String(),
		NormalizedURL: normalizedURL,
		Status:        StatusRunning,
		StartedAt:     time.Now().UTC(),
	}
	r.runs[created.ID] = created
	return *created, false
}

// Get returns a snapshot of the run, if known.
func (r *Registry) Get(runID string) (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// Running reports whether a run for the identity is currently in flight.
func (r *Registry) Running(normalizedURL string) (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.NormalizedURL == normalizedURL && run.Status == StatusRunning {
			return *run, true
		}
	}
	return Run{}, false
}

// Finish transitions a run to its terminal state. Only the pipeline that
// owns the run calls this; a second call for the same run is a no-op.
func (r *Registry) Finish(runID string, result *types.EpisodeResult, runErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok || run.Status != StatusRunning {
		return
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = StatusError
		run.Error = runErr.Error()
		return
	}
	run.Status = StatusDone
	run.Result = result
}

// Len returns the number of tracked runs, for observability.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}
