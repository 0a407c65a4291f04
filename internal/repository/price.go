package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/interastral-2026/novanew/internal/market"
	"github.com/interastral-2026/novanew/internal/models"
)

type PricePoint struct {
	ID         int64           `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	RSI        *float64        `json:"rsi,omitempty"`
	TradingDay string          `json:"tradingDay"`
	Source     string          `json:"source"`
}

// PriceRepo journals every refreshed market set. It is a market.Sink.
type PriceRepo struct {
	pool   *pgxpool.Pool
	source string
}

func NewPriceRepo(pool *pgxpool.Pool, source string) *PriceRepo {
	if source == "" {
		source = "coingecko"
	}
	return &PriceRepo{pool: pool, source: source}
}

// RecordSnapshot writes one row per symbol in a single batch.
func (r *PriceRepo) RecordSnapshot(ctx context.Context, markets []models.MarketSnapshot, ts time.Time) error {
	if len(markets) == 0 {
		return nil
	}
	td := models.TradingDay(ts)
	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(
			`INSERT INTO price_history (timestamp, symbol, price, change_24h, volume_24h, rsi, trading_day, source)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			ts, m.Symbol, m.Price, m.Change24h, m.Volume24h, m.RSI, td, r.source,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("record prices: %w", err)
	}
	return nil
}

func (r *PriceRepo) OnSnapshot(ctx context.Context, pair market.Pair) {
	if err := r.RecordSnapshot(ctx, pair.Markets, pair.FetchedAt); err != nil {
		fmt.Printf("[DB] Price journal write failed: %v\n", err)
	}
}

// GetByDay returns one symbol's samples for a trading day, oldest first.
func (r *PriceRepo) GetByDay(ctx context.Context, symbol, tradingDay string) ([]PricePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, timestamp, symbol, price, rsi, trading_day, source
		 FROM price_history WHERE symbol = $1 AND trading_day = $2 ORDER BY timestamp ASC`,
		symbol, tradingDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PricePoint
	for rows.Next() {
		var (
			p  PricePoint
			td time.Time
		)
		if err := rows.Scan(&p.ID, &p.Timestamp, &p.Symbol, &p.Price, &p.RSI, &td, &p.Source); err != nil {
			return nil, err
		}
		p.TradingDay = td.Format("2006-01-02")
		out = append(out, p)
	}
	return out, rows.Err()
}
