package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions sizes the journal pool. The journal writes one row per trade
// and one batch per refresh, so a small pool is enough.
type PoolOptions struct {
	MaxConns        int32
	AppName         string
	ConnectTimeout  time.Duration
	MaxConnLifetime time.Duration
}

var DefaultPoolOptions = PoolOptions{
	MaxConns:        4,
	AppName:         "nova-trader",
	ConnectTimeout:  5 * time.Second,
	MaxConnLifetime: 30 * time.Minute,
}

func poolConfig(dsn string, opts PoolOptions) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if opts.MaxConns <= 0 {
		opts.MaxConns = DefaultPoolOptions.MaxConns
	}
	if opts.AppName == "" {
		opts.AppName = DefaultPoolOptions.AppName
	}
	if opts.MaxConnLifetime <= 0 {
		opts.MaxConnLifetime = DefaultPoolOptions.MaxConnLifetime
	}

	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = opts.MaxConnLifetime
	cfg.HealthCheckPeriod = time.Minute
	if _, set := cfg.ConnConfig.RuntimeParams["application_name"]; !set {
		cfg.ConnConfig.RuntimeParams["application_name"] = opts.AppName
	}
	return cfg, nil
}

func Connect(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(dsn, opts)
	if err != nil {
		return nil, err
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultPoolOptions.ConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return p, nil
}

// TestConnection logs the server clock and version on the pool's first use.
func TestConnection(ctx context.Context, p *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		now     time.Time
		version string
	)
	err := p.QueryRow(ctx, "SELECT NOW(), current_setting('server_version')").Scan(&now, &version)
	if err != nil {
		return fmt.Errorf("test query: %w", err)
	}
	fmt.Printf("[DB] Connected to PostgreSQL %s at %s\n", version, now.Format(time.RFC3339))
	return nil
}
