package risk

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/interastral-2026/novanew/internal/models"
)

// DailyTradeCounter abstracts the trade-counting dependency so Guardian
// can be tested without the ledger.
type DailyTradeCounter interface {
	CountToday(ctx context.Context) (int, error)
}

// Limits holds the risk thresholds from config.
// A zero value for any field means that check is disabled.
type Limits struct {
	MaxDailyTrades     int
	MaxPositionSizeUSD decimal.Decimal
	StopLossPercent    float64
	TakeProfitPercent  float64
}

type Guardian struct {
	limits  Limits
	counter DailyTradeCounter

	mu       sync.Mutex
	baseline decimal.Decimal
}

func NewGuardian(limits Limits, counter DailyTradeCounter) *Guardian {
	return &Guardian{limits: limits, counter: counter}
}

// Check runs the per-trade checks and the portfolio circuit breakers for a
// pending order. The first non-zero portfolio value seen becomes the P&L
// baseline.
func (g *Guardian) Check(ctx context.Context, req models.OrderRequest, portfolio models.PortfolioSnapshot) error {
	if err := g.PreTradeCheck(ctx, req.Amount.Mul(req.EntryPrice)); err != nil {
		return err
	}
	pnl, ok := g.observe(portfolio.TotalValue)
	if !ok {
		return nil
	}
	return g.PortfolioCheck(pnl)
}

// PreTradeCheck validates per-trade constraints before execution.
// Returns nil if the trade is allowed, a descriptive error if blocked.
func (g *Guardian) PreTradeCheck(ctx context.Context, notional decimal.Decimal) error {
	if g.limits.MaxPositionSizeUSD.IsPositive() && notional.GreaterThan(g.limits.MaxPositionSizeUSD) {
		return fmt.Errorf("trade blocked: position size $%s exceeds max $%s",
			notional.StringFixed(2), g.limits.MaxPositionSizeUSD.StringFixed(2))
	}

	if g.limits.MaxDailyTrades > 0 && g.counter != nil {
		count, err := g.counter.CountToday(ctx)
		if err != nil {
			return fmt.Errorf("trade blocked: unable to verify daily trade count: %w", err)
		}
		if count >= g.limits.MaxDailyTrades {
			return fmt.Errorf("trade blocked: daily limit of %d trades reached (%d executed today)",
				g.limits.MaxDailyTrades, count)
		}
	}

	return nil
}

// PortfolioCheck evaluates portfolio-level circuit breakers.
// pnlPercent is the unrealized P&L as a percentage (e.g. -8.5 means down 8.5%).
func (g *Guardian) PortfolioCheck(pnlPercent float64) error {
	if g.limits.StopLossPercent > 0 && pnlPercent <= -g.limits.StopLossPercent {
		return fmt.Errorf("STOP-LOSS triggered: portfolio down %.2f%% (threshold: -%.2f%%)",
			pnlPercent, g.limits.StopLossPercent)
	}

	if g.limits.TakeProfitPercent > 0 && pnlPercent >= g.limits.TakeProfitPercent {
		return fmt.Errorf("TAKE-PROFIT triggered: portfolio up %.2f%% (threshold: +%.2f%%)",
			pnlPercent, g.limits.TakeProfitPercent)
	}

	return nil
}

// Baseline returns the portfolio value P&L is measured against.
func (g *Guardian) Baseline() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.baseline
}

func (g *Guardian) observe(total decimal.Decimal) (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !total.IsPositive() {
		return 0, false
	}
	if g.baseline.IsZero() {
		g.baseline = total
		return 0, true
	}
	pnl := total.Sub(g.baseline).Div(g.baseline).Mul(decimal.NewFromInt(100))
	return pnl.InexactFloat64(), true
}
