package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/interastral-2026/novanew/internal/httputil"
	"github.com/interastral-2026/novanew/internal/models"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

type CoinGeckoOption func(*CoinGeckoClient)

// WithCoinGeckoBaseURL points the client at another host (tests, pro API).
func WithCoinGeckoBaseURL(u string) CoinGeckoOption {
	return func(c *CoinGeckoClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithCoinGeckoRetry(r httputil.RetryConfig) CoinGeckoOption {
	return func(c *CoinGeckoClient) { c.retry = r }
}

// CoinGeckoClient serves the market half of a snapshot refresh.
type CoinGeckoClient struct {
	httpClient *http.Client
	retry      httputil.RetryConfig
	baseURL    string
	vs         string
	watchlist  []models.WatchAsset
	now        func() time.Time
}

func NewCoinGeckoClient(watchlist []models.WatchAsset, quote string, opts ...CoinGeckoOption) *CoinGeckoClient {
	if len(watchlist) == 0 {
		watchlist = models.DefaultWatchlist
	}
	if quote == "" {
		quote = "USD"
	}
	c := &CoinGeckoClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      httputil.MarketDataRetry,
		baseURL:    coingeckoBaseURL,
		vs:         strings.ToLower(quote),
		watchlist:  watchlist,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMarketData returns one snapshot per watchlist symbol, in watchlist
// order. Symbols CoinGecko did not price are left out; an empty result is an
// error.
func (c *CoinGeckoClient) FetchMarketData(ctx context.Context) ([]models.MarketSnapshot, error) {
	ids := make([]string, len(c.watchlist))
	for i, a := range c.watchlist {
		ids[i] = a.CoinGeckoID
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", c.vs)
	q.Set("include_24hr_change", "true")
	q.Set("include_24hr_vol", "true")
	endpoint := c.baseURL + "/simple/price?" + q.Encode()

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: coingecko: %v", models.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: coingecko returned status %d", models.ErrFetch, resp.StatusCode)
	}

	var data map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: coingecko decode: %v", models.ErrFetch, err)
	}

	fetched := c.now()
	out := make([]models.MarketSnapshot, 0, len(c.watchlist))
	for _, a := range c.watchlist {
		row, ok := data[a.CoinGeckoID]
		if !ok {
			fmt.Printf("[MARKET] CoinGecko has no quote for %s (%s)\n", a.Symbol, a.CoinGeckoID)
			continue
		}
		price := row[c.vs]
		if !price.IsPositive() {
			fmt.Printf("[MARKET] Ignoring non-positive price for %s: %s\n", a.Symbol, price)
			continue
		}
		vol := row[c.vs+"_24h_vol"]
		if vol.IsNegative() {
			vol = decimal.Zero
		}
		out = append(out, models.MarketSnapshot{
			Symbol:    a.Symbol,
			Price:     price,
			Change24h: row[c.vs+"_24h_change"].Round(4),
			Volume24h: vol,
			FetchedAt: fetched,
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: coingecko returned no usable quotes for %d ids", models.ErrFetch, len(ids))
	}
	return out, nil
}
