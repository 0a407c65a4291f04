package market

import (
	"sync"

	"github.com/interastral-2026/novanew/internal/models"
)

const DefaultRSIPeriod = 14

// Momentum keeps a short price history per symbol and derives a Wilder-style
// RSI from it. Only the store's refresh path writes to it.
type Momentum struct {
	period int

	mu      sync.Mutex
	history map[string]*priceRing
}

func NewMomentum(period int) *Momentum {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	return &Momentum{period: period, history: make(map[string]*priceRing)}
}

// Annotate records each snapshot's price and returns a new slice where
// snapshots without a provider-supplied RSI carry a computed one once enough
// history exists.
func (m *Momentum) Annotate(in []models.MarketSnapshot) []models.MarketSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.MarketSnapshot, len(in))
	for i, snap := range in {
		ring, ok := m.history[snap.Symbol]
		if !ok {
			ring = newPriceRing(m.period + 1)
			m.history[snap.Symbol] = ring
		}
		ring.add(snap.Price.InexactFloat64())

		out[i] = snap
		if snap.RSI != nil {
			continue
		}
		if rsi, ok := RSI(ring.values(), m.period); ok {
			out[i] = snap.WithRSI(rsi)
		}
	}
	return out
}

// RSI computes the relative strength index over the last period changes.
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}
	window := prices[len(prices)-period-1:]
	var gain, loss float64
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		if gain == 0 {
			return 50, true
		}
		return 100, true
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100 - 100/(1+rs), true
}

type priceRing struct {
	vals   []float64
	index  int
	filled bool
}

func newPriceRing(size int) *priceRing {
	return &priceRing{vals: make([]float64, size)}
}

func (r *priceRing) add(v float64) {
	r.vals[r.index] = v
	r.index = (r.index + 1) % len(r.vals)
	if r.index == 0 {
		r.filled = true
	}
}

func (r *priceRing) values() []float64 {
	if !r.filled {
		out := make([]float64, r.index)
		copy(out, r.vals[:r.index])
		return out
	}
	out := make([]float64, 0, len(r.vals))
	out = append(out, r.vals[r.index:]...)
	return append(out, r.vals[:r.index]...)
}
