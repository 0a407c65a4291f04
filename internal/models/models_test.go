package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{"BUY": ActionBuy, "sell": ActionSell, " Hold ": ActionHold} {
		got, err := ParseAction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseAction("SHORT")
	assert.Error(t, err)
}

func TestActionSide(t *testing.T) {
	side, ok := ActionBuy.Side()
	assert.True(t, ok)
	assert.Equal(t, SideBuy, side)

	side, ok = ActionSell.Side()
	assert.True(t, ok)
	assert.Equal(t, SideSell, side)

	_, ok = ActionHold.Side()
	assert.False(t, ok)
}

func TestMomentumZone(t *testing.T) {
	m := MarketSnapshot{Symbol: "SOL"}
	assert.Equal(t, ZoneUnknown, m.MomentumZone())
	assert.Equal(t, ZoneOverbought, m.WithRSI(71).MomentumZone())
	assert.Equal(t, ZoneOversold, m.WithRSI(29.5).MomentumZone())
	assert.Equal(t, ZoneNeutral, m.WithRSI(50).MomentumZone())
	assert.Nil(t, m.RSI, "WithRSI must not touch the receiver")
}

func TestPortfolioClone(t *testing.T) {
	p := PortfolioSnapshot{Holdings: []Holding{{Symbol: "BTC", Amount: decimal.RequireFromString("0.05")}}}
	c := p.Clone()
	c.Holdings[0].Symbol = "ETH"
	assert.Equal(t, "BTC", p.Holdings[0].Symbol)
}

func TestDecisionJSONNumbers(t *testing.T) {
	d := Decision{Action: ActionBuy, Asset: "BTC", EntryPrice: decimal.NewFromInt(68000), Amount: decimal.RequireFromString("0.01")}
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"entryPrice":68000`)
	assert.True(t, d.Notional().Equal(decimal.NewFromInt(680)))
}

func TestTradingDay(t *testing.T) {
	// 2024-01-15 at 16:00 UTC (before 17:00 cutoff) => trading day = Jan 14
	ts := time.Date(2024, 1, 15, 16, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-14", TradingDay(ts))

	// 2024-01-15 at 18:00 UTC (after 17:00 cutoff) => trading day = Jan 15
	ts2 := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-15", TradingDay(ts2))
}
