package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/interastral-2026/novanew/internal/market"
	"github.com/interastral-2026/novanew/internal/models"
	"github.com/interastral-2026/novanew/internal/orchestrator"
)

const maxQueryLimit = 1000

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type MarketReader interface {
	Latest() (market.Pair, bool)
}

type EventReader interface {
	Snapshot() []models.LogEvent
}

type TradeReader interface {
	All() []models.Trade
}

// Control is the slice of the orchestrator the dashboard may drive.
type Control interface {
	Status() orchestrator.Status
	SetAutonomy(enabled bool) orchestrator.Mode
	Toggle() orchestrator.Mode
	TriggerAnalysis() bool
}

// TradeHistory serves journaled trades; nil when the journal is disabled.
type TradeHistory interface {
	GetByDay(ctx context.Context, tradingDay string) ([]models.Trade, error)
}

// PriceHistory serves cached price series; nil when the cache is disabled.
type PriceHistory interface {
	Prices(ctx context.Context, symbol string, period time.Duration) ([]decimal.Decimal, error)
}

// HealthCheck reports a dependency state such as "connected" or "down: ...".
type HealthCheck func(ctx context.Context) string

type Deps struct {
	Market  MarketReader
	Events  EventReader
	Trades  TradeReader
	Control Control
	History TradeHistory
	Prices  PriceHistory
	Health  map[string]HealthCheck
}

type Options struct {
	Port       int
	APIKey     string
	CORSOrigin string
	StaticDir  string
}

type Server struct {
	deps       Deps
	handler    http.Handler
	httpServer *http.Server
	apiKey     string
}

func NewServer(deps Deps, opts Options) *Server {
	s := &Server{
		deps:   deps,
		apiKey: opts.APIKey,
	}

	mux := http.NewServeMux()

	// Dashboard reads
	mux.HandleFunc("GET /v1/market", s.handleMarket)
	mux.HandleFunc("GET /v1/logs", s.handleLogs)
	mux.HandleFunc("GET /v1/status", s.handleStatus)

	// Trade routes
	mux.HandleFunc("GET /v1/trades", s.handleTrades)
	mux.HandleFunc("GET /v1/trades/day/{date}", s.handleTradesByDay)

	// Price routes
	mux.HandleFunc("GET /v1/prices/{symbol}", s.handlePriceSeries)

	// Control routes
	mux.HandleFunc("POST /v1/autonomy", s.handleSetAutonomy)
	mux.HandleFunc("POST /v1/autonomy/toggle", s.handleToggleAutonomy)
	mux.HandleFunc("POST /v1/analysis/run", s.handleRunAnalysis)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	if opts.StaticDir != "" {
		mux.Handle("/", spaHandler(opts.StaticDir))
	} else {
		mux.HandleFunc("/", handleNotFound)
	}

	s.handler = s.authMiddleware(corsMiddleware(mux, opts.CORSOrigin))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

// authMiddleware guards the /v1 API. Health and static assets stay public.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || !isAPIPath(r.URL.Path) || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAPIPath(p string) bool {
	return p == "/v1" || strings.HasPrefix(p, "/v1/") || p == "/api" || strings.HasPrefix(p, "/api/")
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}
