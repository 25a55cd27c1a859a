package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/tourgest/internal/config"
	"github.com/dgallion1/tourgest/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Server is the HTTP API server for tourgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	limiter      *RateLimiter
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		limiter:      NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	if len(s.cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         600,
		}).Handler)
	}

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/tours", s.handleListTours)
		r.Get("/api/tours/{slug}", s.handleGetTour)
		r.Get("/api/imports/{jobID}", s.handleImportStatus)
		r.Get("/api/presets", s.handleListPresets)
		r.Get("/api/stats", s.handleStats)

		// Writes are rate limited per client.
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Limit)

			r.Post("/api/tours/parse", s.handleParse)
			r.Delete("/api/tours/{slug}", s.handleDeleteTour)
			r.Post("/api/imports", s.handleImport)
			r.Post("/api/imports/batch", s.handleBatchImport)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.orchestrator.Store().Ping(ctx); err != nil {
		s.log.Warn("health check: store unreachable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": "store unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
