package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/tourgest/internal/api"
	"github.com/dgallion1/tourgest/internal/config"
	"github.com/dgallion1/tourgest/internal/pipeline"
	"github.com/dgallion1/tourgest/internal/stats"
	"github.com/dgallion1/tourgest/internal/store"
	"github.com/dgallion1/tourgest/internal/tour"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	parsers, err := tour.LoadRegistry(cfg.ParserPresetsFile, cfg.ParserPreset)
	if err != nil {
		log.Error("failed to load parser presets", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(ctx, cfg.DatabaseURL, store.Options{MaxSlugAttempts: cfg.MaxSlugAttempts})
	if err != nil {
		log.Error("failed to open tour store", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, tours are kept in memory only")
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, st, parsers, stats.NewPipeline(time.Hour), log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}

		orch.Stop()
		if err := st.Close(); err != nil {
			log.Warn("store close", "error", err)
		}
	}()

	log.Info("starting tourgest", "port", cfg.Port, "preset", parsers.Fallback(), "presets", parsers.Names())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
