package api

import (
	"encoding/json"
	"net/http"
)

type autonomyRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleSetAutonomy(w http.ResponseWriter, r *http.Request) {
	var req autonomyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, `body must be {"enabled": true|false}`)
		return
	}

	s.deps.Control.SetAutonomy(*req.Enabled)
	writeJSON(w, http.StatusOK, s.deps.Control.Status())
}

func (s *Server) handleToggleAutonomy(w http.ResponseWriter, r *http.Request) {
	s.deps.Control.Toggle()
	writeJSON(w, http.StatusOK, s.deps.Control.Status())
}

// handleRunAnalysis dispatches one decision cycle in the current mode.
func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Control.TriggerAnalysis() {
		writeError(w, http.StatusConflict, "a decision cycle is already running")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"dispatched": true})
}
