package api

import (
	"net/http"
	"time"

	"github.com/interastral-2026/novanew/internal/models"
)

// marketResponse is the latest snapshot pair. Before the first successful
// refresh it is empty with ready=false rather than a 404.
type marketResponse struct {
	Ready     bool                      `json:"ready"`
	Market    []models.MarketSnapshot   `json:"market"`
	Portfolio *models.PortfolioSnapshot `json:"portfolio"`
	FetchedAt *time.Time                `json:"fetchedAt"`
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	pair, ok := s.deps.Market.Latest()
	if !ok {
		writeJSON(w, http.StatusOK, marketResponse{Market: []models.MarketSnapshot{}})
		return
	}

	fetched := pair.FetchedAt
	writeJSON(w, http.StatusOK, marketResponse{
		Ready:     true,
		Market:    pair.Markets,
		Portfolio: &pair.Portfolio,
		FetchedAt: &fetched,
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	events := s.deps.Events.Snapshot()
	if limit := parseLimit(r, len(events)); limit < len(events) {
		events = events[:limit]
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Control.Status())
}
