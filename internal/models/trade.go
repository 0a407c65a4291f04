package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

type Trade struct {
	ID         string          `json:"id"`
	Asset      string          `json:"asset"`
	Side       Side            `json:"side"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"timestamp"`
	Status     TradeStatus     `json:"status"`
	ROI        *float64        `json:"roi,omitempty"`
	Venue      string          `json:"venue,omitempty"`
}
