package paper

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interastral-2026/novanew/internal/models"
)

type marks map[string]decimal.Decimal

func (m marks) Price(s string) (decimal.Decimal, bool) {
	p, ok := m[s]
	return p, ok
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestWallet(cash string, m marks) *Wallet {
	w := NewWallet(Config{InitialCash: d(cash), FeePct: d("0.1")}, m)
	w.slippageFn = func(decimal.Decimal) decimal.Decimal { return d("0.2") }
	return w
}

func buy(asset, amount, price string) models.OrderRequest {
	return models.OrderRequest{Asset: asset, Side: models.SideBuy, Amount: d(amount), EntryPrice: d(price)}
}

func sell(asset, amount, price string) models.OrderRequest {
	return models.OrderRequest{Asset: asset, Side: models.SideSell, Amount: d(amount), EntryPrice: d(price)}
}

func TestBuyDebitsCashWithSlippageAndFee(t *testing.T) {
	w := newTestWallet("10000", marks{"BTC": d("68000")})

	res, err := w.Execute(context.Background(), buy("btc", "0.01", "68000"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.OrderID, "paper-"))
	assert.Len(t, res.OrderID, len("paper-")+12)

	// fill 68136, notional 681.36, fee 0.68136
	fills := w.Fills()
	require.Len(t, fills, 1)
	assert.Equal(t, "68136", fills[0].FillPrice.String())
	assert.Equal(t, "0.68136", fills[0].Fee.String())
	assert.Equal(t, "9317.95864", fills[0].CashAfter.String())

	snap, err := w.FetchPortfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9317.95864", snap.AvailableCash.String())
	require.Len(t, snap.Holdings, 1)
	assert.Equal(t, "BTC", snap.Holdings[0].Symbol)
	assert.Equal(t, "680", snap.Holdings[0].Value.String())
}

func TestBuyInsufficientCash(t *testing.T) {
	w := newTestWallet("100", marks{})

	_, err := w.Execute(context.Background(), buy("BTC", "0.01", "68000"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExecution)
	assert.Empty(t, w.Fills())

	snap, _ := w.FetchPortfolio(context.Background())
	assert.Equal(t, "100", snap.AvailableCash.String())
}

func TestSellRequiresHoldings(t *testing.T) {
	w := newTestWallet("10000", marks{})

	_, err := w.Execute(context.Background(), sell("ETH", "1", "3500"))
	assert.ErrorIs(t, err, models.ErrExecution)
}

func TestSellCreditsCashAndClearsHolding(t *testing.T) {
	w := newTestWallet("10000", marks{"ETH": d("3500")})
	w.cfg.FeePct = decimal.Zero
	w.slippageFn = func(decimal.Decimal) decimal.Decimal { return decimal.Zero }

	_, err := w.Execute(context.Background(), buy("ETH", "2", "3500"))
	require.NoError(t, err)
	_, err = w.Execute(context.Background(), sell("ETH", "2", "3600"))
	require.NoError(t, err)

	snap, err := w.FetchPortfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10200", snap.AvailableCash.String())
	assert.Empty(t, snap.Holdings)
}

func TestRejectsInvalidOrders(t *testing.T) {
	w := newTestWallet("10000", marks{})

	_, err := w.Execute(context.Background(), buy("BTC", "0", "68000"))
	assert.ErrorIs(t, err, models.ErrExecution)

	_, err = w.Execute(context.Background(), models.OrderRequest{Asset: "BTC", Side: "HOLD", Amount: d("1"), EntryPrice: d("1")})
	assert.ErrorIs(t, err, models.ErrExecution)
}

func TestPortfolioUnmarkedHoldingHasZeroValue(t *testing.T) {
	m := marks{"SOL": d("145")}
	w := newTestWallet("10000", m)
	w.slippageFn = func(decimal.Decimal) decimal.Decimal { return decimal.Zero }

	_, err := w.Execute(context.Background(), buy("SOL", "10", "145"))
	require.NoError(t, err)
	delete(m, "SOL")

	snap, err := w.FetchPortfolio(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Holdings, 1)
	assert.True(t, snap.Holdings[0].Value.IsZero())
	assert.True(t, snap.TotalValue.Equal(snap.AvailableCash))
}

func TestStats(t *testing.T) {
	w := newTestWallet("10000", marks{"ETH": d("4000")})
	w.cfg.FeePct = decimal.Zero
	w.slippageFn = func(decimal.Decimal) decimal.Decimal { return decimal.Zero }

	_, err := w.Execute(context.Background(), buy("ETH", "1", "3500"))
	require.NoError(t, err)

	s, err := w.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalTrades)
	assert.Equal(t, 1, s.BuyTrades)
	assert.Equal(t, "10500", s.CurrentValue.String())
	assert.Equal(t, "500", s.UnrealizedPnL.String())
	assert.InDelta(t, 5.0, s.UnrealizedPnLPct, 0.0001)
}

func TestRandomSlippageBounds(t *testing.T) {
	assert.True(t, randomSlippage(decimal.Zero).IsZero())
	max := d("0.5")
	for i := 0; i < 100; i++ {
		s := randomSlippage(max)
		assert.False(t, s.IsNegative())
		assert.True(t, s.LessThan(max))
	}
}
