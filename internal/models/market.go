package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The dashboard consumes prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// MarketSnapshot is one symbol's market state as of a single refresh.
type MarketSnapshot struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change24h"` // percent
	Volume24h decimal.Decimal `json:"volume24h"`
	RSI       *float64        `json:"rsi,omitempty"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

type MomentumZone string

const (
	ZoneOverbought MomentumZone = "OVERBOUGHT"
	ZoneOversold   MomentumZone = "OVERSOLD"
	ZoneNeutral    MomentumZone = "NEUTRAL"
	ZoneUnknown    MomentumZone = "UNKNOWN"
)

func (m MarketSnapshot) MomentumZone() MomentumZone {
	switch {
	case m.RSI == nil:
		return ZoneUnknown
	case *m.RSI > 70:
		return ZoneOverbought
	case *m.RSI < 30:
		return ZoneOversold
	default:
		return ZoneNeutral
	}
}

// WithRSI returns a copy carrying the given momentum value.
func (m MarketSnapshot) WithRSI(rsi float64) MarketSnapshot {
	m.RSI = &rsi
	return m
}

type Holding struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	Value  decimal.Decimal `json:"value"`
}

type PortfolioSnapshot struct {
	TotalValue    decimal.Decimal `json:"totalValue"`
	AvailableCash decimal.Decimal `json:"availableCash"`
	Holdings      []Holding       `json:"assets"`
	FetchedAt     time.Time       `json:"fetchedAt"`
}

// Clone returns a deep copy so callers can never alias the holdings slice.
func (p PortfolioSnapshot) Clone() PortfolioSnapshot {
	out := p
	out.Holdings = make([]Holding, len(p.Holdings))
	copy(out.Holdings, p.Holdings)
	return out
}

// Marks returns symbol -> price for a market set.
func Marks(markets []MarketSnapshot) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(markets))
	for _, m := range markets {
		out[m.Symbol] = m.Price
	}
	return out
}
