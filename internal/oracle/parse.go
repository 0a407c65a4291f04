package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/interastral-2026/novanew/internal/models"
)

type rawDecision struct {
	Decision   string          `json:"decision"`
	Asset      string          `json:"asset"`
	Reasoning  string          `json:"reasoning"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	Amount     decimal.Decimal `json:"amount"`
	Confidence float64         `json:"confidence"`
}

// parseDecision decodes a model reply. An object with no decision field is
// treated as no decision at all.
func parseDecision(content string, known map[string]bool) (*models.Decision, error) {
	body := stripFences(content)

	var raw rawDecision
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if strings.TrimSpace(raw.Decision) == "" {
		return nil, nil
	}

	action, err := models.ParseAction(raw.Decision)
	if err != nil {
		return nil, err
	}
	d := &models.Decision{
		Action:     action,
		Asset:      strings.ToUpper(strings.TrimSpace(raw.Asset)),
		Reasoning:  strings.TrimSpace(raw.Reasoning),
		EntryPrice: raw.EntryPrice,
		Amount:     raw.Amount,
		Confidence: raw.Confidence,
	}
	if action == models.ActionHold {
		return d, nil
	}

	if d.Asset == "" {
		return nil, fmt.Errorf("%s decision has no asset", action)
	}
	if len(known) > 0 && !known[d.Asset] {
		return nil, fmt.Errorf("%s decision for unknown asset %q", action, d.Asset)
	}
	if !d.Amount.IsPositive() {
		return nil, fmt.Errorf("%s %s: amount must be positive, got %s", action, d.Asset, d.Amount)
	}
	if !d.EntryPrice.IsPositive() {
		return nil, fmt.Errorf("%s %s: entry price must be positive, got %s", action, d.Asset, d.EntryPrice)
	}
	return d, nil
}

// stripFences removes a markdown code fence around the JSON, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
