package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"latency":      s.orchestrator.Stats().Snapshot(),
		"queue_depth":  s.orchestrator.QueueDepth(),
		"tracked_jobs": s.orchestrator.TrackedJobs(),
	})
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	parsers := s.orchestrator.Parsers()
	writeJSON(w, http.StatusOK, map[string]any{
		"presets": parsers.Names(),
		"default": parsers.Fallback(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
