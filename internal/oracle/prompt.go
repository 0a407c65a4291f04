package oracle

import (
	"encoding/json"
	"fmt"

	"github.com/interastral-2026/novanew/internal/models"
)

const systemPrompt = `You are a disciplined crypto trading analyst. You answer with a single JSON object and nothing else:
{"decision":"BUY|SELL|HOLD","asset":"<symbol>","reasoning":"<short technical reasoning>","entryPrice":<number>,"amount":<number>,"confidence":<0-100>}
Use HOLD when no setup qualifies. Only trade symbols present in the market data.`

type promptMarket struct {
	models.MarketSnapshot
	Momentum models.MomentumZone `json:"momentum"`
}

func buildPrompt(markets []models.MarketSnapshot, portfolio models.PortfolioSnapshot, minConfidence float64) (string, error) {
	rows := make([]promptMarket, len(markets))
	for i, m := range markets {
		rows[i] = promptMarket{MarketSnapshot: m, Momentum: m.MomentumZone()}
	}
	marketJSON, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	portfolioJSON, err := json.Marshal(portfolio)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Analyze the following real-time market data:
%s

Current portfolio:
%s

Rules:
1. Only suggest a trade if the probability of success is above %.0f%%.
2. Prefer high-volatility assets with a clear momentum signal.
3. Give an exact entry price and an amount the available cash can cover.
4. Respond with the JSON object only.`, marketJSON, portfolioJSON, minConfidence), nil
}
