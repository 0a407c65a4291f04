package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultPricePeriod = time.Hour
	maxPricePeriod     = 24 * time.Hour
)

type priceSeriesResponse struct {
	Symbol string            `json:"symbol"`
	Period string            `json:"period"`
	Prices []decimal.Decimal `json:"prices"`
}

// handlePriceSeries returns cached prices for one symbol, oldest first.
// ?period= takes a Go duration up to 24h.
func (s *Server) handlePriceSeries(w http.ResponseWriter, r *http.Request) {
	if s.deps.Prices == nil {
		writeError(w, http.StatusServiceUnavailable, "price cache is disabled")
		return
	}

	symbol := strings.ToUpper(r.PathValue("symbol"))
	period := defaultPricePeriod
	if v := r.URL.Query().Get("period"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid period, expected a duration like 15m or 1h")
			return
		}
		period = min(d, maxPricePeriod)
	}

	prices, err := s.deps.Prices.Prices(r.Context(), symbol, period)
	if err != nil {
		fmt.Printf("Error fetching cached prices for %s: %v\n", symbol, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch prices")
		return
	}
	if prices == nil {
		prices = []decimal.Decimal{}
	}
	writeJSON(w, http.StatusOK, priceSeriesResponse{
		Symbol: symbol,
		Period: period.String(),
		Prices: prices,
	})
}
