package api

import (
	"fmt"
	"net/http"

	"github.com/interastral-2026/novanew/internal/models"
)

// handleTrades returns the in-memory ledger, newest first.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.deps.Trades.All()
	if limit := parseLimit(r, len(trades)); limit < len(trades) {
		trades = trades[:limit]
	}
	writeJSON(w, http.StatusOK, trades)
}

// handleTradesByDay reads the journal, which outlives restarts.
func (s *Server) handleTradesByDay(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "trade journal is disabled")
		return
	}

	date := r.PathValue("date")
	if date == "today" {
		date = models.TradingDayNow()
	}
	if !validateDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	trades, err := s.deps.History.GetByDay(r.Context(), date)
	if err != nil {
		fmt.Printf("Error fetching trades for %s: %v\n", date, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}
