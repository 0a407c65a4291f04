package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/interastral-2026/novanew/internal/db"
)

// SetupPool connects to TEST_DATABASE_URL and makes sure the journal schema
// exists. The test is skipped when the variable is unset.
func SetupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn, db.PoolOptions{MaxConns: 2, AppName: "nova-test"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return pool
}

// RedisAddr returns TEST_REDIS_ADDR or skips the test.
func RedisAddr(t *testing.T) string {
	t.Helper()
	_ = godotenv.Load("../../.env")
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping")
	}
	return addr
}
