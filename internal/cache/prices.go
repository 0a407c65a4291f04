package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/interastral-2026/novanew/internal/market"
)

const (
	DefaultWindow = time.Hour
	latestKey     = "snapshot:latest"
)

// PriceCache mirrors refreshed prices into Redis: a rolling sorted set per
// symbol scored by unix time, plus the latest pair as JSON.
type PriceCache struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewPriceCache(client *redis.Client, prefix string, window time.Duration) *PriceCache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &PriceCache{client: client, prefix: prefix, window: window}
}

func (c *PriceCache) Ping(ctx context.Context) string {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Sprintf("down: %v", err)
	}
	return "up"
}

func (c *PriceCache) keyForSymbol(symbol string) string {
	return c.prefix + "prices:" + symbol
}

// Store writes every symbol's price and the whole pair in one pipeline and
// trims samples older than the window.
func (c *PriceCache) Store(ctx context.Context, pair market.Pair) error {
	ts := pair.FetchedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	latest, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshal pair: %w", err)
	}

	cutoff := fmt.Sprintf("(%d", ts.Add(-c.window).Unix())
	pipe := c.client.Pipeline()
	for _, m := range pair.Markets {
		key := c.keyForSymbol(m.Symbol)
		// Member carries the timestamp so equal prices at different times stay distinct.
		member := fmt.Sprintf("%d:%s", ts.UnixMilli(), m.Price.String())
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(ts.Unix()), Member: member})
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		pipe.Expire(ctx, key, c.window)
	}
	pipe.Set(ctx, c.prefix+latestKey, latest, c.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

func (c *PriceCache) OnSnapshot(ctx context.Context, pair market.Pair) {
	if err := c.Store(ctx, pair); err != nil {
		fmt.Printf("[CACHE] Price cache write failed: %v\n", err)
	}
}

// Prices returns a symbol's cached prices within period, oldest first.
func (c *PriceCache) Prices(ctx context.Context, symbol string, period time.Duration) ([]decimal.Decimal, error) {
	members, err := c.client.ZRangeByScore(ctx, c.keyForSymbol(symbol), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", time.Now().Add(-period).Unix()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]decimal.Decimal, 0, len(members))
	for _, member := range members {
		_, raw, ok := strings.Cut(member, ":")
		if !ok {
			continue
		}
		p, err := decimal.NewFromString(raw)
		if err != nil {
			fmt.Printf("[CACHE] Skipping unparsable member %q: %v\n", member, err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Latest returns the last stored pair, or false when none is cached.
func (c *PriceCache) Latest(ctx context.Context) (market.Pair, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+latestKey).Bytes()
	if err == redis.Nil {
		return market.Pair{}, false, nil
	}
	if err != nil {
		return market.Pair{}, false, err
	}
	var pair market.Pair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return market.Pair{}, false, fmt.Errorf("decode cached pair: %w", err)
	}
	return pair, true, nil
}
