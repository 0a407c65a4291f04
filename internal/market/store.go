package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/interastral-2026/novanew/internal/models"
)

const fetchFailedMessage = "Failed to fetch live market data"

type MarketDataProvider interface {
	FetchMarketData(ctx context.Context) ([]models.MarketSnapshot, error)
}

type PortfolioProvider interface {
	FetchPortfolio(ctx context.Context) (models.PortfolioSnapshot, error)
}

// EventRecorder is the slice of the event log the store writes to.
type EventRecorder interface {
	Error(msg string) models.LogEvent
}

// Sink receives published pairs in publication order. A pair superseded by a
// newer one before delivery is skipped.
type Sink interface {
	OnSnapshot(ctx context.Context, pair Pair)
}

// Pair is one consistent market set plus the portfolio fetched with it.
type Pair struct {
	Markets   []models.MarketSnapshot   `json:"market"`
	Portfolio models.PortfolioSnapshot `json:"portfolio"`
	FetchedAt time.Time                `json:"fetchedAt"`
}

func (p *Pair) clone() Pair {
	out := Pair{
		Markets:   make([]models.MarketSnapshot, len(p.Markets)),
		Portfolio: p.Portfolio.Clone(),
		FetchedAt: p.FetchedAt,
	}
	copy(out.Markets, p.Markets)
	return out
}

type StoreConfig struct {
	FetchTimeout time.Duration
}

// Store holds the latest successfully fetched snapshot pair. A failed refresh
// leaves the previous pair untouched.
type Store struct {
	markets   MarketDataProvider
	portfolio PortfolioProvider
	events    EventRecorder
	momentum  *Momentum
	cfg       StoreConfig

	mu        sync.RWMutex
	latest    *Pair
	sinks     []Sink
	started   uint64
	published uint64

	notifyMu sync.Mutex
}

func NewStore(markets MarketDataProvider, portfolio PortfolioProvider, events EventRecorder, cfg StoreConfig) *Store {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 8 * time.Second
	}
	return &Store{
		markets:   markets,
		portfolio: portfolio,
		events:    events,
		momentum:  NewMomentum(DefaultRSIPeriod),
		cfg:       cfg,
	}
}

func (s *Store) AddSink(sink Sink) {
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()
}

// Refresh fetches market data and portfolio together and, if both succeed,
// replaces the stored pair in one step. Refreshes may overlap; a result is
// only published if no later-started refresh has published first.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.started++
	gen := s.started
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	var (
		markets   []models.MarketSnapshot
		portfolio models.PortfolioSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.markets.FetchMarketData(gctx)
		if err != nil {
			return fmt.Errorf("market data: %w", err)
		}
		markets = m
		return nil
	})
	g.Go(func() error {
		p, err := s.portfolio.FetchPortfolio(gctx)
		if err != nil {
			return fmt.Errorf("portfolio: %w", err)
		}
		portfolio = p
		return nil
	})

	if err := g.Wait(); err != nil {
		if !errors.Is(err, models.ErrFetch) {
			err = fmt.Errorf("%w: %w", models.ErrFetch, err)
		}
		fmt.Printf("[MARKET] Refresh failed: %v\n", err)
		s.events.Error(fetchFailedMessage)
		return err
	}

	s.mu.Lock()
	if gen < s.published {
		s.mu.Unlock()
		fmt.Printf("[MARKET] Discarded refresh #%d, #%d already published\n", gen, s.published)
		return nil
	}
	pair := &Pair{
		Markets:   s.momentum.Annotate(markets),
		Portfolio: portfolio.Clone(),
		FetchedAt: time.Now(),
	}
	s.published = gen
	s.latest = pair
	s.mu.Unlock()

	s.notify(ctx, gen, pair)
	return nil
}

// notify hands pair to the sinks unless a newer pair was published meanwhile.
func (s *Store) notify(ctx context.Context, gen uint64, pair *Pair) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.RLock()
	stale := gen < s.published
	sinks := s.sinks
	s.mu.RUnlock()
	if stale {
		return
	}
	for _, sink := range sinks {
		sink.OnSnapshot(ctx, pair.clone())
	}
}

// Latest returns a copy of the most recent pair, or false before the first
// successful refresh. It never blocks on an in-flight refresh's network I/O.
func (s *Store) Latest() (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Pair{}, false
	}
	return s.latest.clone(), true
}

// LastRefresh is the time of the last successful refresh (zero before one).
func (s *Store) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return time.Time{}
	}
	return s.latest.FetchedAt
}
