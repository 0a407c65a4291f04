package market

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/interastral-2026/novanew/internal/models"
)

// Marks tracks the last known price per symbol. Venues that must value their
// own holdings read it; the store feeds it as a Sink.
type Marks struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

func NewMarks() *Marks {
	return &Marks{prices: make(map[string]decimal.Decimal)}
}

func (m *Marks) OnSnapshot(_ context.Context, pair Pair) {
	m.Update(pair.Markets)
}

func (m *Marks) Update(markets []models.MarketSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sym, px := range models.Marks(markets) {
		m.prices[sym] = px
	}
}

func (m *Marks) Set(symbol string, price decimal.Decimal) {
	m.mu.Lock()
	m.prices[symbol] = price
	m.mu.Unlock()
}

func (m *Marks) Price(symbol string) (decimal.Decimal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prices[symbol]
	return p, ok
}
