package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/interastral-2026/novanew/internal/models"
)

const (
	VenuePaper    = "paper"
	VenueCoinbase = "coinbase"
	VenueUniswap  = "uniswap"
)

type Config struct {
	// HTTP surface
	Port            int
	APIKey          string
	CORSAllowOrigin string
	StaticDir       string

	// Timing
	RefreshInterval  time.Duration
	DecisionInterval time.Duration
	FetchTimeout     time.Duration
	OracleTimeout    time.Duration
	ExecutionTimeout time.Duration
	EventLogCapacity int

	// Market data
	WatchlistFile string
	Watchlist     []models.WatchAsset
	QuoteCurrency string

	// Decision oracle
	OracleAPIKey        string
	OracleBaseURL       string
	OracleModel         string
	OracleMaxTokens     int
	OracleMinConfidence float64

	ExecutionVenue string

	// Coinbase Advanced Trade
	CoinbaseKeyName     string
	CoinbasePrivateKey  string
	CoinbasePortfolioID string
	CoinbaseRatePerSec  float64

	// Paper trading
	PaperInitialCash     decimal.Decimal
	PaperSlippagePercent decimal.Decimal
	PaperFeePercent      decimal.Decimal

	// Uniswap V2 on an EVM chain
	EthereumAPIEndpoint  string
	PrivateKey           string
	ChainID              int
	QuoteTokenAddress    string
	QuoteTokenSymbol     string
	QuoteTokenDecimals   int
	WETHAddress          string
	UniswapRouterAddress string
	SlippageTolerance    decimal.Decimal
	GasLimit             int
	GasMultiplier        float64

	// Risk Management
	MaxDailyTrades     int
	MaxPositionSizeUSD decimal.Decimal
	StopLossPercent    float64
	TakeProfitPercent  float64

	// Notifications
	WebhookURL string
	BotName    string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBMaxConns int
	// JournalPrices also records every market snapshot to price_history.
	JournalPrices bool

	// Redis price cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	CacheWindow   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            envInt("PORT", 3001),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),
		StaticDir:       envStr("STATIC_DIR", ""),

		RefreshInterval:  envDuration("REFRESH_INTERVAL", 10*time.Second),
		DecisionInterval: envDuration("DECISION_INTERVAL", 30*time.Second),
		FetchTimeout:     envDuration("FETCH_TIMEOUT", 8*time.Second),
		OracleTimeout:    envDuration("ORACLE_TIMEOUT", 25*time.Second),
		ExecutionTimeout: envDuration("EXECUTION_TIMEOUT", 15*time.Second),
		EventLogCapacity: envInt("EVENT_LOG_CAPACITY", 50),

		WatchlistFile: envStr("WATCHLIST_FILE", ""),
		QuoteCurrency: strings.ToUpper(envStr("QUOTE_CURRENCY", "USD")),

		OracleAPIKey:        envStr("ORACLE_API_KEY", ""),
		OracleBaseURL:       envStr("ORACLE_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		OracleModel:         envStr("ORACLE_MODEL", "gemini-2.5-pro"),
		OracleMaxTokens:     envInt("ORACLE_MAX_TOKENS", 2048),
		OracleMinConfidence: envFloat("ORACLE_MIN_CONFIDENCE", 75),

		ExecutionVenue: strings.ToLower(envStr("EXECUTION_VENUE", VenuePaper)),

		CoinbaseKeyName:     envStr("COINBASE_API_KEY_NAME", ""),
		CoinbasePrivateKey:  envStr("COINBASE_PRIVATE_KEY", ""),
		CoinbasePortfolioID: envStr("COINBASE_PORTFOLIO_ID", ""),
		CoinbaseRatePerSec:  envFloat("COINBASE_RATE_LIMIT_PER_SEC", 5),

		PaperInitialCash:     envDecimal("PAPER_INITIAL_CASH", decimal.NewFromInt(4500)),
		PaperSlippagePercent: envDecimal("PAPER_SLIPPAGE_PERCENT", decimal.RequireFromString("0.2")),
		PaperFeePercent:      envDecimal("PAPER_FEE_PERCENT", decimal.RequireFromString("0.1")),

		EthereumAPIEndpoint:  envStr("ETHEREUM_API_ENDPOINT", ""),
		PrivateKey:           envStr("PRIVATE_KEY", ""),
		ChainID:              envInt("CHAIN_ID", 1),
		QuoteTokenAddress:    envStr("QUOTE_TOKEN_ADDRESS", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		QuoteTokenSymbol:     envStr("QUOTE_TOKEN_SYMBOL", "USDC"),
		QuoteTokenDecimals:   envInt("QUOTE_TOKEN_DECIMALS", 6),
		WETHAddress:          envStr("WETH_ADDRESS", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		UniswapRouterAddress: envStr("UNISWAP_ROUTER_ADDRESS", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		SlippageTolerance:    envDecimal("SLIPPAGE_TOLERANCE", decimal.RequireFromString("1.5")),
		GasLimit:             envInt("GAS_LIMIT", 250000),
		GasMultiplier:        envFloat("GAS_MULTIPLIER", 1.2),

		MaxDailyTrades:     envInt("MAX_DAILY_TRADES", 0),
		MaxPositionSizeUSD: envDecimal("MAX_POSITION_SIZE_USD", decimal.Zero),
		StopLossPercent:    envFloat("STOP_LOSS_PERCENT", 0),
		TakeProfitPercent:  envFloat("TAKE_PROFIT_PERCENT", 0),

		WebhookURL: envStr("WEBHOOK_URL", ""),
		BotName:    envStr("BOT_NAME", "NovaTrader"),

		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "nova_trader"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),
		DBMaxConns: envInt("DB_MAX_CONNS", 4),

		JournalPrices: envBool("JOURNAL_PRICES", true),

		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
		RedisPrefix:   envStr("REDIS_PREFIX", "nova"),
		CacheWindow:   envDuration("PRICE_CACHE_WINDOW", 24*time.Hour),
	}

	cfg.Watchlist = models.DefaultWatchlist
	if cfg.WatchlistFile != "" {
		wl, err := LoadWatchlist(cfg.WatchlistFile)
		if err != nil {
			return nil, err
		}
		cfg.Watchlist = wl
	}

	return cfg, nil
}

// LoadWatchlist reads a YAML list of {symbol, coingeckoId} entries.
// Symbols are upper-cased; duplicates and blank entries are rejected.
func LoadWatchlist(path string) ([]models.WatchAsset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read watchlist: %v", models.ErrConfig, err)
	}
	var list []models.WatchAsset
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: parse watchlist %s: %v", models.ErrConfig, path, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: watchlist %s is empty", models.ErrConfig, path)
	}

	seen := make(map[string]bool, len(list))
	for i := range list {
		list[i].Symbol = strings.ToUpper(strings.TrimSpace(list[i].Symbol))
		list[i].CoinGeckoID = strings.TrimSpace(list[i].CoinGeckoID)
		if list[i].Symbol == "" || list[i].CoinGeckoID == "" {
			return nil, fmt.Errorf("%w: watchlist entry %d needs symbol and coingeckoId", models.ErrConfig, i)
		}
		if seen[list[i].Symbol] {
			return nil, fmt.Errorf("%w: watchlist symbol %s listed twice", models.ErrConfig, list[i].Symbol)
		}
		seen[list[i].Symbol] = true
	}
	return list, nil
}

func (c *Config) Validate() error {
	var errs []string

	switch c.ExecutionVenue {
	case VenuePaper:
	case VenueCoinbase:
		if c.CoinbaseKeyName == "" || c.CoinbasePrivateKey == "" {
			errs = append(errs, "COINBASE_API_KEY_NAME and COINBASE_PRIVATE_KEY are required for the coinbase venue")
		}
	case VenueUniswap:
		if c.EthereumAPIEndpoint == "" {
			errs = append(errs, "ETHEREUM_API_ENDPOINT is required for the uniswap venue")
		}
		if c.PrivateKey == "" {
			errs = append(errs, "PRIVATE_KEY is required for the uniswap venue")
		}
	default:
		errs = append(errs, fmt.Sprintf("EXECUTION_VENUE %q is not one of paper, coinbase, uniswap", c.ExecutionVenue))
	}

	if c.RefreshInterval <= 0 || c.DecisionInterval <= 0 {
		errs = append(errs, "REFRESH_INTERVAL and DECISION_INTERVAL must be positive")
	}
	if c.FetchTimeout <= 0 || c.OracleTimeout <= 0 || c.ExecutionTimeout <= 0 {
		errs = append(errs, "FETCH_TIMEOUT, ORACLE_TIMEOUT and EXECUTION_TIMEOUT must be positive")
	}
	if c.RefreshInterval > 0 && c.FetchTimeout >= c.RefreshInterval {
		errs = append(errs, fmt.Sprintf("FETCH_TIMEOUT (%s) must be shorter than REFRESH_INTERVAL (%s)", c.FetchTimeout, c.RefreshInterval))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT %d is out of range", c.Port))
	}
	if len(c.Watchlist) == 0 {
		errs = append(errs, "watchlist is empty")
	}

	if c.OracleAPIKey == "" {
		fmt.Println("[WARN] ORACLE_API_KEY not set: every decision cycle will report an oracle configuration error")
	}
	if c.StopLossPercent == 0 && c.TakeProfitPercent == 0 {
		fmt.Println("[WARN] STOP_LOSS_PERCENT and TAKE_PROFIT_PERCENT are both 0: no portfolio circuit breakers active")
	}
	if c.MaxDailyTrades == 0 && c.MaxPositionSizeUSD.IsZero() {
		fmt.Println("[WARN] MAX_DAILY_TRADES and MAX_POSITION_SIZE_USD are both 0: no per-trade limits active")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set: REST API has no authentication")
	}
	if c.DBUser == "" {
		fmt.Println("[WARN] DB_USER not set: trade and price journal disabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: config validation failed:\n  %s", models.ErrConfig, strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Nova Trader Configuration ===")

	switch c.ExecutionVenue {
	case VenuePaper:
		fmt.Println("════════════════════════════════════════")
		fmt.Println("  PAPER TRADING MODE")
		fmt.Println("  No real orders will be placed")
		fmt.Println("════════════════════════════════════════")
		fmt.Printf("Paper Initial Cash: %s %s\n", c.PaperInitialCash.StringFixed(2), c.QuoteCurrency)
		fmt.Printf("Paper Slippage: 0-%s%%\n", c.PaperSlippagePercent)
		fmt.Printf("Paper Fee: %s%%\n", c.PaperFeePercent)
	case VenueCoinbase:
		fmt.Println("  LIVE TRADING MODE: Coinbase Advanced Trade")
		fmt.Printf("Key: %s\n", truncKey(c.CoinbaseKeyName))
		if c.CoinbasePortfolioID != "" {
			fmt.Printf("Portfolio: %s\n", c.CoinbasePortfolioID)
		}
	case VenueUniswap:
		fmt.Println("  LIVE TRADING MODE: Uniswap V2")
		fmt.Printf("Chain ID: %d\n", c.ChainID)
		fmt.Printf("Trading Pair: ETH/%s\n", c.QuoteTokenSymbol)
		fmt.Printf("Quote Token: %s (%s...)\n", c.QuoteTokenSymbol, truncKey(c.QuoteTokenAddress))
		fmt.Printf("Slippage Tolerance: %s%%\n", c.SlippageTolerance)
	}

	fmt.Println("--------------------------------------")
	symbols := make([]string, 0, len(c.Watchlist))
	for _, a := range c.Watchlist {
		symbols = append(symbols, a.Symbol)
	}
	fmt.Printf("Watchlist: %s (quote %s)\n", strings.Join(symbols, ", "), c.QuoteCurrency)
	fmt.Printf("Refresh every %s, decide every %s\n", c.RefreshInterval, c.DecisionInterval)
	fmt.Printf("Oracle: %s (%s)\n", c.OracleModel, boolLabel(c.OracleAPIKey != "", "configured", "no API key"))
	fmt.Println("--------------------------------------")
	fmt.Println("Risk:")
	fmt.Printf("  Max daily trades: %s\n", boolLabel(c.MaxDailyTrades > 0, strconv.Itoa(c.MaxDailyTrades), "off"))
	fmt.Printf("  Max position: %s\n", boolLabel(c.MaxPositionSizeUSD.IsPositive(), "$"+c.MaxPositionSizeUSD.StringFixed(0), "off"))
	fmt.Printf("  Stop loss / take profit: %.1f%% / %.1f%%\n", c.StopLossPercent, c.TakeProfitPercent)
	fmt.Println("--------------------------------------")
	fmt.Printf("Journal: %s\n", boolLabel(c.DBUser != "", c.DBHost+"/"+c.DBName, "disabled"))
	fmt.Printf("Price cache: %s\n", boolLabel(c.RedisAddr != "", c.RedisAddr, "disabled"))
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "disabled"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

// envDuration accepts Go duration strings ("30s", "2m") or bare seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}

func truncKey(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
