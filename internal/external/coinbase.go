package external

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/interastral-2026/novanew/internal/models"
)

const (
	coinbaseBaseURL   = "https://api.coinbase.com"
	coinbaseAccounts  = "/api/v3/brokerage/accounts"
	coinbaseOrders    = "/api/v3/brokerage/orders"
	coinbasePageLimit = "250"
)

// PriceSource values non-cash balances. market.Marks satisfies it.
type PriceSource interface {
	Price(symbol string) (decimal.Decimal, bool)
}

type CoinbaseConfig struct {
	KeyName       string
	PrivateKey    string
	BaseURL       string
	Quote         string
	RatePerSecond float64
	// PortfolioID scopes account listing and orders to one retail portfolio.
	PortfolioID   string
}

// CoinbaseClient is both the portfolio provider and the order executor for
// the coinbase venue.
type CoinbaseClient struct {
	client  *resty.Client
	signer  *coinbaseSigner
	limiter *rate.Limiter
	host    string
	quote   string
	pfID    string
	marks   PriceSource
}

func NewCoinbaseClient(cfg CoinbaseConfig, marks PriceSource) (*CoinbaseClient, error) {
	signer, err := newCoinbaseSigner(cfg.KeyName, cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfig, err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = coinbaseBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid coinbase base url %q", models.ErrConfig, cfg.BaseURL)
	}
	if cfg.Quote == "" {
		cfg.Quote = "USD"
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(15 * time.Second)
	client.SetHeader("Accept", "application/json")

	return &CoinbaseClient{
		client:  client,
		signer:  signer,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		host:    u.Host,
		quote:   strings.ToUpper(cfg.Quote),
		pfID:    cfg.PortfolioID,
		marks:   marks,
	}, nil
}

func (c *CoinbaseClient) request(ctx context.Context, method, path string) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tok, err := c.signer.token(method, c.host, path)
	if err != nil {
		return nil, err
	}
	return c.client.R().SetContext(ctx).SetAuthToken(tok), nil
}

type cbAmount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

type cbAccount struct {
	UUID             string   `json:"uuid"`
	Currency         string   `json:"currency"`
	AvailableBalance cbAmount `json:"available_balance"`
	Hold             cbAmount `json:"hold"`
}

type cbAccountsPage struct {
	Accounts []cbAccount `json:"accounts"`
	HasNext  bool        `json:"has_next"`
	Cursor   string      `json:"cursor"`
}

// FetchPortfolio lists brokerage accounts and values them. Quote currency
// and its stablecoin count as cash; everything else is valued at the latest
// mark, or zero when no mark exists yet.
func (c *CoinbaseClient) FetchPortfolio(ctx context.Context) (models.PortfolioSnapshot, error) {
	accounts, err := c.listAccounts(ctx)
	if err != nil {
		return models.PortfolioSnapshot{}, fmt.Errorf("%w: coinbase accounts: %v", models.ErrFetch, err)
	}

	snap := models.PortfolioSnapshot{FetchedAt: time.Now()}
	for _, a := range accounts {
		cur := strings.ToUpper(a.Currency)
		available := a.AvailableBalance.Value
		total := available.Add(a.Hold.Value)
		if !total.IsPositive() {
			continue
		}
		if c.isCash(cur) {
			snap.AvailableCash = snap.AvailableCash.Add(available)
			snap.TotalValue = snap.TotalValue.Add(total)
			continue
		}
		value := decimal.Zero
		if c.marks != nil {
			if px, ok := c.marks.Price(cur); ok {
				value = total.Mul(px).Round(2)
			}
		}
		snap.Holdings = append(snap.Holdings, models.Holding{Symbol: cur, Amount: total, Value: value})
		snap.TotalValue = snap.TotalValue.Add(value)
	}

	sort.SliceStable(snap.Holdings, func(i, j int) bool {
		return snap.Holdings[i].Value.GreaterThan(snap.Holdings[j].Value)
	})
	return snap, nil
}

func (c *CoinbaseClient) isCash(cur string) bool {
	return cur == c.quote || (c.quote == "USD" && cur == "USDC")
}

func (c *CoinbaseClient) listAccounts(ctx context.Context) ([]cbAccount, error) {
	var all []cbAccount
	cursor := ""
	for {
		req, err := c.request(ctx, "GET", coinbaseAccounts)
		if err != nil {
			return nil, err
		}
		req.SetQueryParam("limit", coinbasePageLimit)
		if cursor != "" {
			req.SetQueryParam("cursor", cursor)
		}
		if c.pfID != "" {
			req.SetQueryParam("retail_portfolio_id", c.pfID)
		}

		var page cbAccountsPage
		resp, err := req.SetResult(&page).Get(coinbaseAccounts)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), truncate(resp.String(), 256))
		}

		all = append(all, page.Accounts...)
		if !page.HasNext || page.Cursor == "" {
			return all, nil
		}
		cursor = page.Cursor
	}
}

type cbLimitGTC struct {
	BaseSize   string `json:"base_size"`
	LimitPrice string `json:"limit_price"`
}

type cbOrderRequest struct {
	ClientOrderID      string `json:"client_order_id"`
	ProductID          string `json:"product_id"`
	Side               string `json:"side"`
	RetailPortfolioID  string `json:"retail_portfolio_id,omitempty"`
	OrderConfiguration struct {
		LimitLimitGTC cbLimitGTC `json:"limit_limit_gtc"`
	} `json:"order_configuration"`
}

type cbOrderResponse struct {
	Success         bool `json:"success"`
	SuccessResponse struct {
		OrderID       string `json:"order_id"`
		ProductID     string `json:"product_id"`
		ClientOrderID string `json:"client_order_id"`
	} `json:"success_response"`
	ErrorResponse struct {
		Error                string `json:"error"`
		Message              string `json:"message"`
		PreviewFailureReason string `json:"preview_failure_reason"`
	} `json:"error_response"`
	FailureReason string `json:"failure_reason"`
}

// Execute places a good-til-cancelled limit order at the decision's entry
// price.
func (c *CoinbaseClient) Execute(ctx context.Context, order models.OrderRequest) (models.OrderResult, error) {
	body := cbOrderRequest{
		ClientOrderID:     newClientOrderID(),
		ProductID:         fmt.Sprintf("%s-%s", strings.ToUpper(order.Asset), c.quote),
		Side:              string(order.Side),
		RetailPortfolioID: c.pfID,
	}
	body.OrderConfiguration.LimitLimitGTC = cbLimitGTC{
		BaseSize:   order.Amount.String(),
		LimitPrice: order.EntryPrice.String(),
	}

	req, err := c.request(ctx, "POST", coinbaseOrders)
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("%w: coinbase: %v", models.ErrExecution, err)
	}

	var out cbOrderResponse
	resp, err := req.SetBody(body).SetResult(&out).Post(coinbaseOrders)
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("%w: coinbase: %v", models.ErrExecution, err)
	}
	if resp.IsError() {
		return models.OrderResult{}, fmt.Errorf("%w: coinbase HTTP %d: %s",
			models.ErrExecution, resp.StatusCode(), truncate(resp.String(), 256))
	}
	if !out.Success {
		reason := firstNonEmpty(out.ErrorResponse.Message, out.ErrorResponse.PreviewFailureReason,
			out.ErrorResponse.Error, out.FailureReason, "unknown reason")
		return models.OrderResult{Success: false}, fmt.Errorf("%w: coinbase rejected %s: %s",
			models.ErrExecution, body.ProductID, reason)
	}

	fmt.Printf("[COINBASE] %s %s %s @ %s placed: %s\n",
		body.Side, order.Amount, body.ProductID, order.EntryPrice, out.SuccessResponse.OrderID)
	return models.OrderResult{Success: true, OrderID: out.SuccessResponse.OrderID}, nil
}

func newClientOrderID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
