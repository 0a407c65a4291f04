package ledger

import (
	"context"
	"sync"

	"github.com/interastral-2026/novanew/internal/models"
)

// Ledger is the in-memory trade history, most recent first. It has no update
// or delete operations; trades stay OPEN.
type Ledger struct {
	mu     sync.RWMutex
	trades []models.Trade
}

func New() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Append(t models.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append([]models.Trade{t}, l.trades...)
}

// All returns a copy of the history, newest first.
func (l *Ledger) All() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// CountToday counts trades created in the current trading day. It satisfies
// risk.DailyTradeCounter.
func (l *Ledger) CountToday(_ context.Context) (int, error) {
	today := models.TradingDayNow()
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, t := range l.trades {
		if models.TradingDay(t.CreatedAt) != today {
			// Newest first: everything after this is older.
			break
		}
		n++
	}
	return n, nil
}
