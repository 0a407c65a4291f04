package ethereum

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/interastral-2026/novanew/internal/models"
)

// Swapper is the on-chain surface the venue needs. *UniswapV2 satisfies it.
type Swapper interface {
	SwapQuoteForETH(ctx context.Context, quoteIn, minETH decimal.Decimal) (string, error)
	SwapETHForQuote(ctx context.Context, ethIn, minQuote decimal.Decimal) (string, error)
	ETHBalance(ctx context.Context) (decimal.Decimal, error)
	TokenBalance(ctx context.Context) (decimal.Decimal, error)
	QuoteSymbol() string
}

type PriceSource interface {
	Price(symbol string) (decimal.Decimal, bool)
}

// Venue executes ETH decisions on Uniswap and reports the wallet as a
// portfolio. Other assets are rejected.
type Venue struct {
	swap  Swapper
	marks PriceSource
}

func NewVenue(swap Swapper, marks PriceSource) *Venue {
	return &Venue{swap: swap, marks: marks}
}

func (v *Venue) Execute(ctx context.Context, order models.OrderRequest) (models.OrderResult, error) {
	if strings.ToUpper(order.Asset) != "ETH" {
		return models.OrderResult{}, fmt.Errorf("%w: uniswap venue trades ETH only, got %s", models.ErrExecution, order.Asset)
	}

	var (
		hash string
		err  error
	)
	switch order.Side {
	case models.SideBuy:
		hash, err = v.swap.SwapQuoteForETH(ctx, order.Amount.Mul(order.EntryPrice), order.Amount)
	case models.SideSell:
		hash, err = v.swap.SwapETHForQuote(ctx, order.Amount, order.Amount.Mul(order.EntryPrice))
	default:
		return models.OrderResult{}, fmt.Errorf("%w: unsupported side %q", models.ErrExecution, order.Side)
	}
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("%w: uniswap: %v", models.ErrExecution, err)
	}

	fmt.Printf("[DEX] %s %s ETH @ %s submitted: %s\n", order.Side, order.Amount, order.EntryPrice, ExplorerURL(hash))
	return models.OrderResult{Success: true, OrderID: hash}, nil
}

// FetchPortfolio reports wallet ETH valued at the latest mark plus the quote
// token as cash.
func (v *Venue) FetchPortfolio(ctx context.Context) (models.PortfolioSnapshot, error) {
	eth, err := v.swap.ETHBalance(ctx)
	if err != nil {
		return models.PortfolioSnapshot{}, fmt.Errorf("%w: eth balance: %v", models.ErrFetch, err)
	}
	cash, err := v.swap.TokenBalance(ctx)
	if err != nil {
		return models.PortfolioSnapshot{}, fmt.Errorf("%w: %s balance: %v", models.ErrFetch, v.swap.QuoteSymbol(), err)
	}

	snap := models.PortfolioSnapshot{
		AvailableCash: cash,
		TotalValue:    cash,
		FetchedAt:     time.Now(),
	}
	if eth.IsPositive() {
		value := decimal.Zero
		if px, ok := v.marks.Price("ETH"); ok {
			value = eth.Mul(px).Round(2)
		}
		snap.Holdings = []models.Holding{{Symbol: "ETH", Amount: eth, Value: value}}
		snap.TotalValue = snap.TotalValue.Add(value)
	}
	return snap, nil
}
