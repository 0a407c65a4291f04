package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/interastral-2026/novanew/internal/models"
)

// TradeRepo journals executed trades. It satisfies decision.TradeJournal.
type TradeRepo struct {
	pool *pgxpool.Pool
}

func NewTradeRepo(pool *pgxpool.Pool) *TradeRepo {
	return &TradeRepo{pool: pool}
}

// RecordTrade inserts one trade. Re-recording the same order id is a no-op.
func (r *TradeRepo) RecordTrade(ctx context.Context, t models.Trade) error {
	ts := t.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO trade_history
		 (order_id, timestamp, trading_day, asset, side, entry_price, amount, usd_value, status, venue)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (order_id) DO NOTHING`,
		t.ID, ts, models.TradingDay(ts), t.Asset, string(t.Side),
		t.EntryPrice, t.Amount, t.Amount.Mul(t.EntryPrice), string(t.Status), t.Venue,
	)
	return err
}

// GetByDay returns journaled trades for a trading day, oldest first.
func (r *TradeRepo) GetByDay(ctx context.Context, tradingDay string) ([]models.Trade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, timestamp, asset, side, entry_price, amount, status, venue
		 FROM trade_history WHERE trading_day = $1 ORDER BY timestamp ASC`,
		tradingDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var (
			t      models.Trade
			side   string
			status string
		)
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.Asset, &side, &t.EntryPrice, &t.Amount, &status, &t.Venue); err != nil {
			return nil, err
		}
		t.Side = models.Side(side)
		t.Status = models.TradeStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}
