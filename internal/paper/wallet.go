package paper

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/interastral-2026/novanew/internal/models"
)

// PriceSource values holdings. market.Marks satisfies it.
type PriceSource interface {
	Price(symbol string) (decimal.Decimal, bool)
}

type Config struct {
	InitialCash decimal.Decimal
	// MaxSlippagePct bounds the random adverse slippage applied to fills.
	MaxSlippagePct decimal.Decimal
	// FeePct is charged on the notional of every fill, in cash.
	FeePct decimal.Decimal
}

// Fill is one simulated execution.
type Fill struct {
	OrderID     string          `json:"orderId"`
	Timestamp   time.Time       `json:"timestamp"`
	Asset       string          `json:"asset"`
	Side        models.Side     `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	LimitPrice  decimal.Decimal `json:"limitPrice"`
	FillPrice   decimal.Decimal `json:"fillPrice"`
	SlippagePct decimal.Decimal `json:"slippagePercent"`
	Fee         decimal.Decimal `json:"fee"`
	CashAfter   decimal.Decimal `json:"cashAfter"`
}

// Wallet is an in-process execution venue: cash plus per-asset holdings.
type Wallet struct {
	mu         sync.Mutex
	cfg        Config
	cash       decimal.Decimal
	holdings   map[string]decimal.Decimal
	fills      []Fill
	feesPaid   decimal.Decimal
	startTime  time.Time
	marks      PriceSource
	slippageFn func(maxPct decimal.Decimal) decimal.Decimal
	now        func() time.Time
}

func NewWallet(cfg Config, marks PriceSource) *Wallet {
	if cfg.InitialCash.IsZero() {
		cfg.InitialCash = decimal.NewFromInt(4500)
	}
	fmt.Printf("[PAPER] Starting fresh paper wallet: %s cash\n", cfg.InitialCash.StringFixed(2))
	return &Wallet{
		cfg:        cfg,
		cash:       cfg.InitialCash,
		holdings:   make(map[string]decimal.Decimal),
		startTime:  time.Now(),
		marks:      marks,
		slippageFn: randomSlippage,
		now:        time.Now,
	}
}

// Execute fills the order immediately at the limit price moved against the
// trader by a random slippage. BUY needs enough cash for notional plus fee;
// SELL needs enough of the asset.
func (w *Wallet) Execute(ctx context.Context, order models.OrderRequest) (models.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return models.OrderResult{}, err
	}
	if !order.Amount.IsPositive() || !order.EntryPrice.IsPositive() {
		return models.OrderResult{}, fmt.Errorf("%w: paper order needs positive amount and price", models.ErrExecution)
	}
	asset := strings.ToUpper(order.Asset)

	w.mu.Lock()
	defer w.mu.Unlock()

	slip := w.slippageFn(w.cfg.MaxSlippagePct)
	fillPrice := order.EntryPrice
	switch order.Side {
	case models.SideBuy:
		fillPrice = fillPrice.Mul(decimal.NewFromInt(1).Add(slip.Shift(-2)))
	case models.SideSell:
		fillPrice = fillPrice.Mul(decimal.NewFromInt(1).Sub(slip.Shift(-2)))
	default:
		return models.OrderResult{}, fmt.Errorf("%w: unsupported side %q", models.ErrExecution, order.Side)
	}
	notional := order.Amount.Mul(fillPrice).Round(8)
	fee := notional.Mul(w.cfg.FeePct.Shift(-2)).Round(8)

	switch order.Side {
	case models.SideBuy:
		need := notional.Add(fee)
		if w.cash.LessThan(need) {
			return models.OrderResult{}, fmt.Errorf("%w: insufficient cash: have %s, need %s",
				models.ErrExecution, w.cash.StringFixed(2), need.StringFixed(2))
		}
		w.cash = w.cash.Sub(need)
		w.holdings[asset] = w.holdings[asset].Add(order.Amount)
	case models.SideSell:
		have := w.holdings[asset]
		if have.LessThan(order.Amount) {
			return models.OrderResult{}, fmt.Errorf("%w: insufficient %s: have %s, need %s",
				models.ErrExecution, asset, have, order.Amount)
		}
		w.cash = w.cash.Add(notional).Sub(fee)
		if rest := have.Sub(order.Amount); rest.IsZero() {
			delete(w.holdings, asset)
		} else {
			w.holdings[asset] = rest
		}
	}
	w.feesPaid = w.feesPaid.Add(fee)

	fill := Fill{
		OrderID:     newOrderID(),
		Timestamp:   w.now(),
		Asset:       asset,
		Side:        order.Side,
		Amount:      order.Amount,
		LimitPrice:  order.EntryPrice,
		FillPrice:   fillPrice,
		SlippagePct: slip,
		Fee:         fee,
		CashAfter:   w.cash,
	}
	w.fills = append(w.fills, fill)

	fmt.Printf("[PAPER] %s %s %s @ %s (slippage %s%%, fee %s) -> %s\n",
		fill.Side, fill.Amount, asset, fillPrice.StringFixed(2), slip.StringFixed(3), fee.StringFixed(2), fill.OrderID)
	return models.OrderResult{Success: true, OrderID: fill.OrderID}, nil
}

// FetchPortfolio values holdings at the latest marks. An asset without a mark
// is reported with zero value.
func (w *Wallet) FetchPortfolio(ctx context.Context) (models.PortfolioSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.PortfolioSnapshot{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := models.PortfolioSnapshot{
		AvailableCash: w.cash,
		TotalValue:    w.cash,
		FetchedAt:     w.now(),
	}
	for sym, amt := range w.holdings {
		value := decimal.Zero
		if w.marks != nil {
			if px, ok := w.marks.Price(sym); ok {
				value = amt.Mul(px).Round(2)
			}
		}
		snap.Holdings = append(snap.Holdings, models.Holding{Symbol: sym, Amount: amt, Value: value})
		snap.TotalValue = snap.TotalValue.Add(value)
	}
	sort.Slice(snap.Holdings, func(i, j int) bool { return snap.Holdings[i].Symbol < snap.Holdings[j].Symbol })
	return snap, nil
}

func (w *Wallet) Fills() []Fill {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Fill, len(w.fills))
	copy(out, w.fills)
	return out
}

type Stats struct {
	InitialCash      decimal.Decimal `json:"initialCash"`
	CurrentCash      decimal.Decimal `json:"currentCash"`
	CurrentValue     decimal.Decimal `json:"currentValue"`
	UnrealizedPnL    decimal.Decimal `json:"unrealizedPnl"`
	UnrealizedPnLPct float64         `json:"unrealizedPnlPct"`
	TotalTrades      int             `json:"totalTrades"`
	BuyTrades        int             `json:"buyTrades"`
	SellTrades       int             `json:"sellTrades"`
	FeesPaid         decimal.Decimal `json:"feesPaid"`
	RunningTimeHours float64         `json:"runningTimeHours"`
}

func (w *Wallet) Stats(ctx context.Context) (Stats, error) {
	snap, err := w.FetchPortfolio(ctx)
	if err != nil {
		return Stats{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	pnl := snap.TotalValue.Sub(w.cfg.InitialCash)
	pnlPct := 0.0
	if w.cfg.InitialCash.IsPositive() {
		pnlPct = pnl.Div(w.cfg.InitialCash).Shift(2).InexactFloat64()
	}
	buys, sells := 0, 0
	for _, f := range w.fills {
		if f.Side == models.SideBuy {
			buys++
		} else {
			sells++
		}
	}
	return Stats{
		InitialCash:      w.cfg.InitialCash,
		CurrentCash:      w.cash,
		CurrentValue:     snap.TotalValue,
		UnrealizedPnL:    pnl,
		UnrealizedPnLPct: pnlPct,
		TotalTrades:      len(w.fills),
		BuyTrades:        buys,
		SellTrades:       sells,
		FeesPaid:         w.feesPaid,
		RunningTimeHours: time.Since(w.startTime).Hours(),
	}, nil
}

func randomSlippage(maxPct decimal.Decimal) decimal.Decimal {
	if !maxPct.IsPositive() {
		return decimal.Zero
	}
	// uniform in [0, maxPct) at 1e-6 resolution
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return decimal.Zero
	}
	return maxPct.Mul(decimal.NewFromBigInt(n, -6)).Round(6)
}

func newOrderID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return "paper-" + hex.EncodeToString(b)
}
