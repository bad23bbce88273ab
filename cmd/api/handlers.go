package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"podcast-adscan/internal/config"
	"podcast-adscan/internal/feed"
	"podcast-adscan/internal/identity"
	"podcast-adscan/internal/jobs"
	"podcast-adscan/internal/logger"
	"podcast-adscan/internal/pipeline"
	"podcast-adscan/internal/report"
	"podcast-adscan/internal/stats"
	"podcast-adscan/internal/store"
	"podcast-adscan/internal/types"
)

type server struct {
	cfg      config.Config
	log      *logger.Logger
	store    store.Store
	registry *jobs.Registry
	orch     *pipeline.Orchestrator
}

// analyzeResponse is returned by /analyze and /result.
type analyzeResponse struct {
	Status string               `json:"status"` // done | started | in_progress | not_analyzed
	RunID  string               `json:"run_id,omitempty"`
	Result *types.EpisodeResult `json:"result,omitempty"`
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

// handleAnalyze starts processing for a locator. Idempotent: a cached
// identity returns its result, an in-flight identity returns the existing
// run, and only otherwise is a new run started. The caller is never blocked
// on the pipeline.
func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "analyze")

	locator := r.URL.Query().Get("url")
	if locator == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	key := identity.Normalize(locator)
	reqLog = reqLog.WithField("url", key)

	// Cache first: a fully analyzed identity never touches the registry.
	if cached, ok, err := s.store.Get(r.Context(), key); err != nil {
		reqLog.WithField("error", err.Error()).Error("store lookup failed")
		http.Error(w, "store lookup failed", http.StatusInternalServerError)
		return
	} else if ok {
		reqLog.Info("cache hit")
		writeJSON(w, http.StatusOK, analyzeResponse{Status: "done", Result: cached})
		return
	}

	run, alreadyRunning := s.registry.StartIfAbsent(key)
	if alreadyRunning {
		reqLog.WithField("run_id", run.ID).Info("analysis already in progress")
		writeJSON(w, http.StatusAccepted, analyzeResponse{Status: "in_progress", RunID: run.ID})
		return
	}

	reqLog.WithField("run_id", run.ID).Info("run created")
	go s.orch.Execute(context.Background(), run, locator)
	writeJSON(w, http.StatusAccepted, analyzeResponse{Status: "started", RunID: run.ID})
}

// handleResult answers a query by identity without starting anything,
// distinguishing "never analyzed" from "currently analyzing".
func (s *server) handleResult(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "result")

	locator := r.URL.Query().Get("url")
	if locator == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	key := identity.Normalize(locator)

	if cached, ok, err := s.store.Get(r.Context(), key); err != nil {
		reqLog.WithField("error", err.Error()).Error("store lookup failed")
		http.Error(w, "store lookup failed", http.StatusInternalServerError)
		return
	} else if ok {
		writeJSON(w, http.StatusOK, analyzeResponse{Status: "done", Result: cached})
		return
	}

	if run, ok := s.registry.Running(key); ok {
		writeJSON(w, http.StatusOK, analyzeResponse{Status: "in_progress", RunID: run.ID})
		return
	}
	writeJSON(w, http.StatusNotFound, analyzeResponse{Status: "not_analyzed"})
}

// handleStatus polls a run by id.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "missing run_id", http.StatusBadRequest)
		return
	}
	run, ok := s.registry.Get(runID)
	if !ok {
		http.Error(w, "unknown run", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *server) handleFeed(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "feed")

	feedURL := r.URL.Query().Get("url")
	if feedURL == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	listing, err := feed.Fetch(r.Context(), feedURL)
	if err != nil {
		reqLog.WithField("error", err.Error()).Warn("feed fetch failed")
		http.Error(w, "feed fetch failed", http.StatusBadGateway)
		return
	}
	reqLog.WithFields(logrus.Fields{"feed": listing.Title, "episodes": len(listing.Episodes)}).Info("feed listed")
	writeJSON(w, http.StatusOK, listing)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "stats")

	results, err := s.store.List(r.Context())
	if err != nil {
		reqLog.WithField("error", err.Error()).Error("store list failed")
		http.Error(w, "store list failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats.Aggregate(results))
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "export")

	results, err := s.store.List(r.Context())
	if err != nil {
		reqLog.WithField("error", err.Error()).Error("store list failed")
		http.Error(w, "store list failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="adscan-report.xlsx"`)
	if err := report.Write(w, results); err != nil {
		reqLog.WithField("error", err.Error()).Error("report write failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
