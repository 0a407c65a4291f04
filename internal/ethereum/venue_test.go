package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interastral-2026/novanew/internal/models"
)

type fakeSwapper struct {
	eth, token decimal.Decimal
	err        error
	lastIn     decimal.Decimal
	lastMin    decimal.Decimal
	lastOp     string
}

func (f *fakeSwapper) SwapQuoteForETH(_ context.Context, in, min decimal.Decimal) (string, error) {
	f.lastOp, f.lastIn, f.lastMin = "buy", in, min
	return "0xbuy", f.err
}

func (f *fakeSwapper) SwapETHForQuote(_ context.Context, in, min decimal.Decimal) (string, error) {
	f.lastOp, f.lastIn, f.lastMin = "sell", in, min
	return "0xsell", f.err
}

func (f *fakeSwapper) ETHBalance(context.Context) (decimal.Decimal, error)   { return f.eth, f.err }
func (f *fakeSwapper) TokenBalance(context.Context) (decimal.Decimal, error) { return f.token, f.err }
func (f *fakeSwapper) QuoteSymbol() string                                   { return "USDC" }

type marks map[string]decimal.Decimal

func (m marks) Price(s string) (decimal.Decimal, bool) {
	p, ok := m[s]
	return p, ok
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestVenueExecuteBuy(t *testing.T) {
	sw := &fakeSwapper{}
	v := NewVenue(sw, marks{})

	res, err := v.Execute(context.Background(), models.OrderRequest{
		Asset: "eth", Side: models.SideBuy, Amount: d("0.5"), EntryPrice: d("3500"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderResult{Success: true, OrderID: "0xbuy"}, res)
	assert.Equal(t, "buy", sw.lastOp)
	assert.True(t, sw.lastIn.Equal(d("1750")))
	assert.True(t, sw.lastMin.Equal(d("0.5")))
}

func TestVenueExecuteSell(t *testing.T) {
	sw := &fakeSwapper{}
	res, err := NewVenue(sw, marks{}).Execute(context.Background(), models.OrderRequest{
		Asset: "ETH", Side: models.SideSell, Amount: d("2"), EntryPrice: d("3500"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0xsell", res.OrderID)
	assert.True(t, sw.lastIn.Equal(d("2")))
	assert.True(t, sw.lastMin.Equal(d("7000")))
}

func TestVenueExecuteRejectsNonETH(t *testing.T) {
	_, err := NewVenue(&fakeSwapper{}, marks{}).Execute(context.Background(), models.OrderRequest{
		Asset: "BTC", Side: models.SideBuy, Amount: d("1"), EntryPrice: d("1"),
	})
	assert.ErrorIs(t, err, models.ErrExecution)
}

func TestVenueExecuteSwapError(t *testing.T) {
	_, err := NewVenue(&fakeSwapper{err: errors.New("insufficient funds for gas")}, marks{}).Execute(context.Background(), models.OrderRequest{
		Asset: "ETH", Side: models.SideBuy, Amount: d("1"), EntryPrice: d("3500"),
	})
	assert.ErrorIs(t, err, models.ErrExecution)
	assert.Contains(t, err.Error(), "gas")
}

func TestVenueFetchPortfolio(t *testing.T) {
	v := NewVenue(&fakeSwapper{eth: d("1.5"), token: d("2000")}, marks{"ETH": d("3500")})

	snap, err := v.FetchPortfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2000", snap.AvailableCash.String())
	assert.Equal(t, "7250", snap.TotalValue.String())
	require.Len(t, snap.Holdings, 1)
	assert.Equal(t, "5250", snap.Holdings[0].Value.String())
}

func TestVenueFetchPortfolioWithoutMark(t *testing.T) {
	v := NewVenue(&fakeSwapper{eth: d("1"), token: d("10")}, marks{})

	snap, err := v.FetchPortfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10", snap.TotalValue.String())
	assert.True(t, snap.Holdings[0].Value.IsZero())
}

func TestVenueFetchPortfolioError(t *testing.T) {
	_, err := NewVenue(&fakeSwapper{err: errors.New("rpc down")}, marks{}).FetchPortfolio(context.Background())
	assert.ErrorIs(t, err, models.ErrFetch)
}

func TestWeiConversions(t *testing.T) {
	assert.Equal(t, "1500000000000000000", toWei(d("1.5"), 18).String())
	assert.Equal(t, "1234567", toWei(d("1.2345678"), 6).String())
	assert.Equal(t, "1.5", fromWei(big.NewInt(1_500_000), 6).String())
}

func TestMinOut(t *testing.T) {
	u := &UniswapV2{slippage: d("1")}

	out, err := u.minOut(big.NewInt(1000), big.NewInt(900))
	require.NoError(t, err)
	assert.Equal(t, "990", out.String())

	out, err = u.minOut(big.NewInt(1000), big.NewInt(995))
	require.NoError(t, err)
	assert.Equal(t, "995", out.String())

	_, err = u.minOut(big.NewInt(800), big.NewInt(900))
	assert.Error(t, err)
}
