package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/interastral-2026/novanew/internal/api"
	"github.com/interastral-2026/novanew/internal/cache"
	"github.com/interastral-2026/novanew/internal/config"
	"github.com/interastral-2026/novanew/internal/db"
	"github.com/interastral-2026/novanew/internal/decision"
	"github.com/interastral-2026/novanew/internal/ethereum"
	"github.com/interastral-2026/novanew/internal/eventlog"
	"github.com/interastral-2026/novanew/internal/external"
	"github.com/interastral-2026/novanew/internal/ledger"
	"github.com/interastral-2026/novanew/internal/market"
	"github.com/interastral-2026/novanew/internal/models"
	"github.com/interastral-2026/novanew/internal/notifications"
	"github.com/interastral-2026/novanew/internal/oracle"
	"github.com/interastral-2026/novanew/internal/orchestrator"
	"github.com/interastral-2026/novanew/internal/paper"
	"github.com/interastral-2026/novanew/internal/repository"
	"github.com/interastral-2026/novanew/internal/risk"
)

// venue is one execution backend: it reports the portfolio the store pairs
// with market data and places the orders the cycle approves.
type venue interface {
	market.PortfolioProvider
	decision.Executor
}

// runtime holds every long-lived component of one process.
type runtime struct {
	cfg       *config.Config
	events    *eventlog.Log
	ledger    *ledger.Ledger
	store     *market.Store
	cycle     *decision.Cycle
	ctrl      *orchestrator.Controller
	venue     venue
	sender    *notifications.Sender
	pool      *pgxpool.Pool
	tradeRepo *repository.TradeRepo
	prices    *cache.PriceCache

	closers []func()
}

func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{
		cfg:    cfg,
		events: eventlog.New(cfg.EventLogCapacity),
		ledger: ledger.New(),
		sender: notifications.NewSender(cfg.WebhookURL, cfg.BotName),
	}

	if err := rt.connectJournal(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	rt.connectCache(ctx)

	marks := market.NewMarks()
	exec, err := rt.buildVenue(marks)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.venue = exec

	rt.store = market.NewStore(
		external.NewCoinGeckoClient(cfg.Watchlist, cfg.QuoteCurrency),
		exec,
		rt.events,
		market.StoreConfig{FetchTimeout: cfg.FetchTimeout},
	)
	rt.store.AddSink(marks)
	if rt.pool != nil && cfg.JournalPrices {
		rt.store.AddSink(repository.NewPriceRepo(rt.pool, "coingecko"))
	}
	if rt.prices != nil {
		rt.store.AddSink(rt.prices)
	}

	deps := decision.Deps{
		Snapshots: rt.store,
		Oracle:    rt.buildOracle(ctx),
		Executor:  exec,
		Ledger:    rt.ledger,
		Events:    rt.events,
		Guard: risk.NewGuardian(risk.Limits{
			MaxDailyTrades:     cfg.MaxDailyTrades,
			MaxPositionSizeUSD: cfg.MaxPositionSizeUSD,
			StopLossPercent:    cfg.StopLossPercent,
			TakeProfitPercent:  cfg.TakeProfitPercent,
		}, rt.ledger),
		// The controller is built after the cycle; the flag is read through it.
		Autonomous: func() bool { return rt.ctrl != nil && rt.ctrl.Active() },
	}
	if rt.tradeRepo != nil {
		deps.Journal = rt.tradeRepo
	}
	rt.cycle = decision.New(deps, decision.Config{
		OracleTimeout:    cfg.OracleTimeout,
		ExecutionTimeout: cfg.ExecutionTimeout,
		Venue:            cfg.ExecutionVenue,
	})

	rt.ctrl = orchestrator.NewController(ctx, rt.store, rt.cycle, rt.events, orchestrator.Config{
		RefreshInterval:  cfg.RefreshInterval,
		DecisionInterval: cfg.DecisionInterval,
		Venue:            cfg.ExecutionVenue,
	})

	return rt, nil
}

func (rt *runtime) connectJournal(ctx context.Context) error {
	cfg := rt.cfg
	if cfg.DBUser == "" {
		fmt.Println("[DB] Journal disabled (DB_USER not set)")
		return nil
	}

	fmt.Printf("[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(ctx, cfg.DSN(), db.PoolOptions{
		MaxConns: int32(cfg.DBMaxConns),
		AppName:  "nova-" + cfg.ExecutionVenue,
	})
	if err != nil {
		return fmt.Errorf("[DB] connection failed: %w", err)
	}
	rt.closers = append(rt.closers, func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	})

	if err := db.TestConnection(ctx, pool); err != nil {
		return fmt.Errorf("[DB] test query failed: %w", err)
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("[DB] schema: %w", err)
	}

	rt.pool = pool
	rt.tradeRepo = repository.NewTradeRepo(pool)
	return nil
}

// connectCache is best effort: an unreachable Redis disables the cache.
func (rt *runtime) connectCache(ctx context.Context) {
	cfg := rt.cfg
	if cfg.RedisAddr == "" {
		fmt.Println("[CACHE] Price cache disabled (REDIS_ADDR not set)")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		fmt.Printf("[WARN] Redis at %s unreachable, price cache disabled: %v\n", cfg.RedisAddr, err)
		_ = client.Close()
		return
	}

	rt.prices = cache.NewPriceCache(client, cfg.RedisPrefix+":", cfg.CacheWindow)
	rt.closers = append(rt.closers, func() { _ = client.Close() })
	fmt.Printf("[CACHE] Connected to Redis at %s\n", cfg.RedisAddr)
}

func (rt *runtime) buildVenue(marks *market.Marks) (venue, error) {
	cfg := rt.cfg
	switch cfg.ExecutionVenue {
	case config.VenueCoinbase:
		return external.NewCoinbaseClient(external.CoinbaseConfig{
			KeyName:       cfg.CoinbaseKeyName,
			PrivateKey:    cfg.CoinbasePrivateKey,
			Quote:         cfg.QuoteCurrency,
			RatePerSecond: cfg.CoinbaseRatePerSec,
			PortfolioID:   cfg.CoinbasePortfolioID,
		}, marks)

	case config.VenueUniswap:
		client, err := ethereum.NewClient(cfg.EthereumAPIEndpoint, cfg.PrivateKey,
			int64(cfg.ChainID), cfg.GasLimit, cfg.GasMultiplier)
		if err != nil {
			return nil, fmt.Errorf("%w: ethereum client: %v", models.ErrConfig, err)
		}
		rt.closers = append(rt.closers, client.Close)

		uni, err := ethereum.NewUniswapV2(client, ethereum.UniswapConfig{
			Router:        cfg.UniswapRouterAddress,
			WETH:          cfg.WETHAddress,
			QuoteToken:    cfg.QuoteTokenAddress,
			QuoteSymbol:   cfg.QuoteTokenSymbol,
			QuoteDecimals: int32(cfg.QuoteTokenDecimals),
			SlippagePct:   cfg.SlippageTolerance,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: uniswap: %v", models.ErrConfig, err)
		}
		fmt.Printf("[DEX] Wallet %s on chain %d\n", client.WalletAddress().Hex(), cfg.ChainID)
		return ethereum.NewVenue(uni, marks), nil

	default:
		return paper.NewWallet(paper.Config{
			InitialCash:    cfg.PaperInitialCash,
			MaxSlippagePct: cfg.PaperSlippagePercent,
			FeePct:         cfg.PaperFeePercent,
		}, marks), nil
	}
}

// buildOracle never fails: without a usable model every cycle reports the
// configuration error through the event log instead.
func (rt *runtime) buildOracle(ctx context.Context) decision.Oracle {
	cfg := rt.cfg
	o, err := oracle.New(ctx, oracle.Config{
		APIKey:        cfg.OracleAPIKey,
		BaseURL:       cfg.OracleBaseURL,
		Model:         cfg.OracleModel,
		MaxTokens:     cfg.OracleMaxTokens,
		MinConfidence: cfg.OracleMinConfidence,
	})
	if err != nil {
		fmt.Printf("[ORACLE] Unavailable: %v\n", err)
		return oracle.Unconfigured{Err: err}
	}
	return o
}

// startForwarder relays notable events to the webhook until ctx ends.
func (rt *runtime) startForwarder(ctx context.Context) *notifications.Forwarder {
	if !rt.sender.Enabled() {
		fmt.Println("[CHAT] Webhook not configured, event forwarding disabled")
		return nil
	}
	fw := notifications.NewForwarder(rt.sender)
	rt.events.Subscribe(fw.OnEvent)
	go fw.Run(ctx)
	return fw
}

func (rt *runtime) apiServer() *api.Server {
	deps := api.Deps{
		Market:  rt.store,
		Events:  rt.events,
		Trades:  rt.ledger,
		Control: rt.ctrl,
		Health: map[string]api.HealthCheck{
			"database":   rt.databaseHealth,
			"cache":      rt.cacheHealth,
			"marketData": rt.marketHealth,
		},
	}
	if rt.tradeRepo != nil {
		deps.History = rt.tradeRepo
	}
	if rt.prices != nil {
		deps.Prices = rt.prices
	}
	return api.NewServer(deps, api.Options{
		Port:       rt.cfg.Port,
		APIKey:     rt.cfg.APIKey,
		CORSOrigin: rt.cfg.CORSAllowOrigin,
		StaticDir:  rt.cfg.StaticDir,
	})
}

func (rt *runtime) databaseHealth(ctx context.Context) string {
	if rt.pool == nil {
		return "disabled"
	}
	if err := rt.pool.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

func (rt *runtime) cacheHealth(ctx context.Context) string {
	if rt.prices == nil {
		return "disabled"
	}
	return rt.prices.Ping(ctx)
}

func (rt *runtime) marketHealth(context.Context) string {
	last := rt.store.LastRefresh()
	if last.IsZero() {
		return "waiting for first refresh"
	}
	if age := time.Since(last); age > 3*rt.cfg.RefreshInterval {
		return fmt.Sprintf("stale (%s old)", age.Round(time.Second))
	}
	return "ok"
}

// portfolioLine summarizes the latest pair for the CLI.
func (rt *runtime) portfolioLine() string {
	pair, ok := rt.store.Latest()
	if !ok {
		return "no snapshot"
	}
	return fmt.Sprintf("total %s, cash %s, %d holdings",
		pair.Portfolio.TotalValue.StringFixed(2),
		pair.Portfolio.AvailableCash.StringFixed(2),
		len(pair.Portfolio.Holdings))
}

// printPaperStats reports the simulated account when the paper venue is in use.
func (rt *runtime) printPaperStats(ctx context.Context) {
	w, ok := rt.venue.(*paper.Wallet)
	if !ok {
		return
	}
	st, err := w.Stats(ctx)
	if err != nil {
		fmt.Printf("[PAPER] Stats unavailable: %v\n", err)
		return
	}
	fmt.Printf("[PAPER] Value %s (start %s, P&L %s / %.2f%%), %d fills (%d buy, %d sell), fees %s\n",
		st.CurrentValue.StringFixed(2), st.InitialCash.StringFixed(2),
		st.UnrealizedPnL.StringFixed(2), st.UnrealizedPnLPct,
		st.TotalTrades, st.BuyTrades, st.SellTrades, st.FeesPaid.StringFixed(2))
}

// Close releases connections in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
