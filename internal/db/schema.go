package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The journal tables are append-only. Nothing reads them back into the
// running process.
const schema = `
CREATE TABLE IF NOT EXISTS trade_history (
	id           BIGSERIAL PRIMARY KEY,
	order_id     TEXT        NOT NULL UNIQUE,
	timestamp    TIMESTAMPTZ NOT NULL,
	trading_day  DATE        NOT NULL,
	asset        TEXT        NOT NULL,
	side         TEXT        NOT NULL,
	entry_price  NUMERIC     NOT NULL,
	amount       NUMERIC     NOT NULL,
	usd_value    NUMERIC     NOT NULL,
	status       TEXT        NOT NULL,
	venue        TEXT        NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_trade_history_day ON trade_history (trading_day);

CREATE TABLE IF NOT EXISTS price_history (
	id           BIGSERIAL PRIMARY KEY,
	timestamp    TIMESTAMPTZ NOT NULL,
	symbol       TEXT        NOT NULL,
	price        NUMERIC     NOT NULL,
	change_24h   NUMERIC     NOT NULL DEFAULT 0,
	volume_24h   NUMERIC     NOT NULL DEFAULT 0,
	rsi          DOUBLE PRECISION,
	trading_day  DATE        NOT NULL,
	source       TEXT        NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_price_history_symbol_day ON price_history (symbol, trading_day);
`

// EnsureSchema creates the journal tables if they are missing.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	fmt.Println("[DB] Journal schema ready")
	return nil
}
