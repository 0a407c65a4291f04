package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ParseAction accepts the three oracle actions case-insensitively.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionBuy, ActionSell, ActionHold:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Side maps an actionable decision to an order side. HOLD has no side.
func (a Action) Side() (Side, bool) {
	switch a {
	case ActionBuy:
		return SideBuy, true
	case ActionSell:
		return SideSell, true
	case ActionHold:
		return "", false
	default:
		return "", false
	}
}

// Decision is a single oracle recommendation. It lives for one cycle only.
type Decision struct {
	Action     Action          `json:"decision"`
	Asset      string          `json:"asset"`
	Reasoning  string          `json:"reasoning"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	Amount     decimal.Decimal `json:"amount"`
	Confidence float64         `json:"confidence"`
}

// Notional is amount * entry price in quote currency.
func (d Decision) Notional() decimal.Decimal {
	return d.Amount.Mul(d.EntryPrice)
}

// OrderRequest is what the execution endpoint receives.
type OrderRequest struct {
	Asset      string          `json:"asset"`
	Side       Side            `json:"side"`
	Amount     decimal.Decimal `json:"amount"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
}

type OrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
}
