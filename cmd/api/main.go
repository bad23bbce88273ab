package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"podcast-adscan/internal/classifier"
	"podcast-adscan/internal/config"
	"podcast-adscan/internal/download"
	"podcast-adscan/internal/jobs"
	"podcast-adscan/internal/logger"
	"podcast-adscan/internal/media"
	"podcast-adscan/internal/pipeline"
	"podcast-adscan/internal/store"
	"podcast-adscan/internal/transcriber"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "podcast-adscan").Info("starting service")

	cfg := config.Load()

	resultStore, err := openStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open result store")
	}
	log.WithField("backend", cfg.StoreBackend).Info("result store ready")

	registry := jobs.New()
	orch := &pipeline.Orchestrator{
		Cfg:        cfg,
		Log:        log,
		Fetcher:    download.New(cfg.WorkDir),
		Audio:      media.NewTool(),
		Transcribe: transcriber.NewWhisperClient(cfg.TranscriberURL, cfg.TranscriberKey, cfg.TranscriberModel),
		Classify:   classifier.NewLLMClient(cfg.ClassifierURL, cfg.ClassifierKey, cfg.ClassifierModel),
		Store:      resultStore,
		Registry:   registry,
	}

	s := &server{
		cfg:      cfg,
		log:      log,
		store:    resultStore,
		registry: registry,
		orch:     orch,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/result", s.handleResult)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/feed", s.handleFeed)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/export", s.handleExport)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.StoreBackend == "postgres" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return store.NewPostgresStore(ctx, cfg.PostgresDSN)
	}
	return store.NewFileStore(cfg.StoreDir)
}
