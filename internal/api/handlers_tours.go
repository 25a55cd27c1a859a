package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/tourgest/internal/pipeline"
	"github.com/dgallion1/tourgest/internal/store"
	"github.com/go-chi/chi/v5"
)

type parseRequest struct {
	Text   string `json:"text"`
	Preset string `json:"preset"`
}

// handleParse runs the parser without persisting anything.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	p, err := s.orchestrator.Parsers().Get(req.Preset)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, p.Parse(req.Text))
}

func (s *Server) handleListTours(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		jsonError(w, "limit must be an integer", http.StatusBadRequest)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		jsonError(w, "offset must be an integer", http.StatusBadRequest)
		return
	}
	limit, offset = store.NormalizePage(limit, offset)

	tours, err := s.orchestrator.Store().ListTours(r.Context(), limit, offset)
	if err != nil {
		s.storeError(w, "list tours", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tours":  tours,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleGetTour(w http.ResponseWriter, r *http.Request) {
	t, err := s.orchestrator.Store().GetTour(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.storeError(w, "get tour", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTour(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := s.orchestrator.Store().DeleteTour(r.Context(), slug); err != nil {
		s.storeError(w, "delete tour", err)
		return
	}
	s.log.Info("tour deleted", "slug", slug)
	w.WriteHeader(http.StatusNoContent)
}

// storeError maps store failures onto HTTP status codes.
func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, "tour not found", http.StatusNotFound)
	case pipeline.IsRetryable(err):
		s.log.Warn(op+" unavailable", "error", err)
		jsonError(w, "store temporarily unavailable", http.StatusServiceUnavailable)
	default:
		s.log.Error(op+" failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
