package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interastral-2026/novanew/internal/market"
	"github.com/interastral-2026/novanew/internal/models"
	"github.com/interastral-2026/novanew/internal/orchestrator"
)

type fakeMarket struct {
	pair market.Pair
	ok   bool
}

func (f *fakeMarket) Latest() (market.Pair, bool) { return f.pair, f.ok }

type fakeEvents []models.LogEvent

func (f fakeEvents) Snapshot() []models.LogEvent { return f }

type fakeTrades []models.Trade

func (f fakeTrades) All() []models.Trade { return f }

type fakeControl struct {
	mode       orchestrator.Mode
	busy       bool
	dispatched int
}

func (f *fakeControl) Status() orchestrator.Status {
	return orchestrator.Status{Mode: f.mode, Venue: "paper", CycleRunning: f.busy}
}

func (f *fakeControl) SetAutonomy(enabled bool) orchestrator.Mode {
	if enabled {
		f.mode = orchestrator.ModeActive
	} else {
		f.mode = orchestrator.ModeStandby
	}
	return f.mode
}

func (f *fakeControl) Toggle() orchestrator.Mode {
	return f.SetAutonomy(f.mode != orchestrator.ModeActive)
}

func (f *fakeControl) TriggerAnalysis() bool {
	if f.busy {
		return false
	}
	f.dispatched++
	return true
}

type fakeHistory struct {
	day    string
	trades []models.Trade
	err    error
}

func (f *fakeHistory) GetByDay(_ context.Context, day string) ([]models.Trade, error) {
	f.day = day
	return f.trades, f.err
}

type fakePrices struct {
	symbol string
	period time.Duration
}

func (f *fakePrices) Prices(_ context.Context, symbol string, period time.Duration) ([]decimal.Decimal, error) {
	f.symbol, f.period = symbol, period
	return []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(101)}, nil
}

func newTestServer(deps Deps, opts Options) http.Handler {
	if deps.Market == nil {
		deps.Market = &fakeMarket{}
	}
	if deps.Events == nil {
		deps.Events = fakeEvents{}
	}
	if deps.Trades == nil {
		deps.Trades = fakeTrades{}
	}
	if deps.Control == nil {
		deps.Control = &fakeControl{mode: orchestrator.ModeStandby}
	}
	return NewServer(deps, opts).Handler()
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMarketBeforeFirstRefresh(t *testing.T) {
	h := newTestServer(Deps{}, Options{})

	rr := do(h, http.MethodGet, "/v1/market", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["ready"])
	assert.Equal(t, []any{}, body["market"])
	assert.Nil(t, body["portfolio"])
}

func TestMarketReturnsLatestPair(t *testing.T) {
	fetched := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	pair := market.Pair{
		Markets: []models.MarketSnapshot{{Symbol: "BTC", Price: decimal.NewFromInt(68000)}},
		Portfolio: models.PortfolioSnapshot{
			TotalValue:    decimal.NewFromInt(4500),
			AvailableCash: decimal.NewFromInt(4500),
		},
		FetchedAt: fetched,
	}
	h := newTestServer(Deps{Market: &fakeMarket{pair: pair, ok: true}}, Options{})

	rr := do(h, http.MethodGet, "/v1/market", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Ready  bool `json:"ready"`
		Market []struct {
			Symbol string  `json:"symbol"`
			Price  float64 `json:"price"`
		} `json:"market"`
		Portfolio struct {
			TotalValue float64 `json:"totalValue"`
		} `json:"portfolio"`
		FetchedAt time.Time `json:"fetchedAt"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Ready)
	require.Len(t, body.Market, 1)
	assert.Equal(t, "BTC", body.Market[0].Symbol)
	assert.Equal(t, 68000.0, body.Market[0].Price)
	assert.Equal(t, 4500.0, body.Portfolio.TotalValue)
	assert.True(t, fetched.Equal(body.FetchedAt))
}

func TestLogsNewestFirstWithLimit(t *testing.T) {
	events := fakeEvents{
		{ID: 3, Message: "third", Kind: models.EventError},
		{ID: 2, Message: "second", Kind: models.EventDecision},
		{ID: 1, Message: "first", Kind: models.EventInfo},
	}
	h := newTestServer(Deps{Events: events}, Options{})

	rr := do(h, http.MethodGet, "/v1/logs?limit=2", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got []models.LogEvent
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Message)
	assert.Equal(t, models.EventDecision, got[1].Kind)
}

func TestTradesFromLedger(t *testing.T) {
	trades := fakeTrades{
		{ID: "cb-2", Asset: "ETH", Side: models.SideSell, Status: models.TradeOpen},
		{ID: "cb-1", Asset: "BTC", Side: models.SideBuy, Status: models.TradeOpen},
	}
	h := newTestServer(Deps{Trades: trades}, Options{})

	rr := do(h, http.MethodGet, "/v1/trades", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got []models.Trade
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "cb-2", got[0].ID)
}

func TestTradesByDay(t *testing.T) {
	t.Run("journal disabled", func(t *testing.T) {
		h := newTestServer(Deps{}, Options{})
		rr := do(h, http.MethodGet, "/v1/trades/day/2026-03-02", "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		h := newTestServer(Deps{History: &fakeHistory{}}, Options{})
		rr := do(h, http.MethodGet, "/v1/trades/day/03-02-2026", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("empty day", func(t *testing.T) {
		hist := &fakeHistory{}
		h := newTestServer(Deps{History: hist}, Options{})
		rr := do(h, http.MethodGet, "/v1/trades/day/2026-03-02", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "2026-03-02", hist.day)
		assert.JSONEq(t, "[]", rr.Body.String())
	})

	t.Run("today alias", func(t *testing.T) {
		hist := &fakeHistory{}
		h := newTestServer(Deps{History: hist}, Options{})
		rr := do(h, http.MethodGet, "/v1/trades/day/today", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, models.TradingDayNow(), hist.day)
	})

	t.Run("journal error", func(t *testing.T) {
		h := newTestServer(Deps{History: &fakeHistory{err: errors.New("boom")}}, Options{})
		rr := do(h, http.MethodGet, "/v1/trades/day/2026-03-02", "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestPriceSeries(t *testing.T) {
	h := newTestServer(Deps{}, Options{})
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/v1/prices/btc", "").Code)

	prices := &fakePrices{}
	h = newTestServer(Deps{Prices: prices}, Options{})

	rr := do(h, http.MethodGet, "/v1/prices/btc?period=15m", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "BTC", prices.symbol)
	assert.Equal(t, 15*time.Minute, prices.period)
	assert.JSONEq(t, `{"symbol":"BTC","period":"15m0s","prices":[100,101]}`, rr.Body.String())

	rr = do(h, http.MethodGet, "/v1/prices/eth?period=72h", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, maxPricePeriod, prices.period)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/v1/prices/eth?period=soon", "").Code)
}

func TestStatus(t *testing.T) {
	ctl := &fakeControl{mode: orchestrator.ModeActive, busy: true}
	h := newTestServer(Deps{Control: ctl}, Options{})

	rr := do(h, http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got orchestrator.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, orchestrator.ModeActive, got.Mode)
	assert.True(t, got.CycleRunning)
	assert.Nil(t, got.LastAnalysis)
}

func TestSetAutonomy(t *testing.T) {
	ctl := &fakeControl{mode: orchestrator.ModeStandby}
	h := newTestServer(Deps{Control: ctl}, Options{})

	rr := do(h, http.MethodPost, "/v1/autonomy", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, orchestrator.ModeActive, ctl.mode)
	assert.Contains(t, rr.Body.String(), `"mode":"ACTIVE"`)

	rr = do(h, http.MethodPost, "/v1/autonomy", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, orchestrator.ModeStandby, ctl.mode)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/v1/autonomy", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/v1/autonomy", `not json`).Code)
	assert.Equal(t, orchestrator.ModeStandby, ctl.mode)
}

func TestToggleAutonomy(t *testing.T) {
	ctl := &fakeControl{mode: orchestrator.ModeStandby}
	h := newTestServer(Deps{Control: ctl}, Options{})

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/v1/autonomy/toggle", "").Code)
	assert.Equal(t, orchestrator.ModeActive, ctl.mode)

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/v1/autonomy/toggle", "").Code)
	assert.Equal(t, orchestrator.ModeStandby, ctl.mode)
}

func TestRunAnalysis(t *testing.T) {
	ctl := &fakeControl{mode: orchestrator.ModeStandby}
	h := newTestServer(Deps{Control: ctl}, Options{})

	rr := do(h, http.MethodPost, "/v1/analysis/run", "")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 1, ctl.dispatched)

	ctl.busy = true
	rr = do(h, http.MethodPost, "/v1/analysis/run", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, 1, ctl.dispatched)
}

func TestHealthReportsServices(t *testing.T) {
	h := newTestServer(Deps{Health: map[string]HealthCheck{
		"database": func(context.Context) string { return "connected" },
		"cache":    func(context.Context) string { return "disabled" },
	}}, Options{APIKey: "secret"})

	rr := do(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, map[string]string{"database": "connected", "cache": "disabled"}, got.Services)
}

func TestUnknownAPIPathIsJSON404(t *testing.T) {
	h := newTestServer(Deps{}, Options{})

	rr := do(h, http.MethodGet, "/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestStaticDashboard(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>nova</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600))

	h := newTestServer(Deps{}, Options{StaticDir: dir, APIKey: "secret"})

	rr := do(h, http.MethodGet, "/app.js", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "console.log")

	rr = do(h, http.MethodGet, "/dashboard/settings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "nova")

	req := httptest.NewRequest(http.MethodGet, "/api/missing", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error"`)
}
