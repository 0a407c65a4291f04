package decision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/interastral-2026/novanew/internal/market"
	"github.com/interastral-2026/novanew/internal/models"
)

type Oracle interface {
	Analyze(ctx context.Context, markets []models.MarketSnapshot, portfolio models.PortfolioSnapshot) (*models.Decision, error)
}

type Executor interface {
	Execute(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
}

// RiskGuard vets an order before it reaches the executor.
type RiskGuard interface {
	Check(ctx context.Context, req models.OrderRequest, portfolio models.PortfolioSnapshot) error
}

type SnapshotSource interface {
	Latest() (market.Pair, bool)
}

type EventRecorder interface {
	Info(msg string) models.LogEvent
	Decision(msg string) models.LogEvent
	Error(msg string) models.LogEvent
}

type TradeLedger interface {
	Append(models.Trade)
}

// TradeJournal mirrors executed trades to an external store. Failures are
// reported but never undo the ledger append.
type TradeJournal interface {
	RecordTrade(ctx context.Context, t models.Trade) error
}

// ModeReader reports whether autonomous execution is enabled right now.
type ModeReader func() bool

type Config struct {
	OracleTimeout    time.Duration
	ExecutionTimeout time.Duration
	Venue            string
}

type Deps struct {
	Snapshots  SnapshotSource
	Oracle     Oracle
	Executor   Executor
	Ledger     TradeLedger
	Events     EventRecorder
	Autonomous ModeReader
	Guard      RiskGuard    // optional
	Journal    TradeJournal // optional
}

// Cycle runs the read -> decide -> maybe execute -> log sequence. At most one
// run is in flight; a trigger that arrives while one is running is dropped.
type Cycle struct {
	deps Deps
	cfg  Config
	now  func() time.Time

	busy atomic.Bool

	mu           sync.RWMutex
	lastAnalysis time.Time
	lastOutcome  Outcome
}

func New(deps Deps, cfg Config) *Cycle {
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = 25 * time.Second
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = 15 * time.Second
	}
	return &Cycle{deps: deps, cfg: cfg, now: time.Now}
}

// Busy reports whether a run is currently in flight.
func (c *Cycle) Busy() bool { return c.busy.Load() }

// LastAnalysis is when the last cycle that got past the snapshot check
// finished. Zero if none has.
func (c *Cycle) LastAnalysis() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastAnalysis
}

func (c *Cycle) LastOutcome() Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastOutcome
}

// RunOnce executes one cycle unless another is already running.
func (c *Cycle) RunOnce(ctx context.Context) Outcome {
	if !c.busy.CompareAndSwap(false, true) {
		fmt.Println("[CYCLE] Previous cycle still running, tick dropped")
		return OutcomeSkipped
	}
	defer c.busy.Store(false)
	return c.runHeld(ctx)
}

// TryRunAsync claims the run guard and, if it was free, runs one cycle in the
// background. done, when non-nil, gets the outcome after the guard is released.
// It reports false without side effects when a cycle is already running.
func (c *Cycle) TryRunAsync(ctx context.Context, done func(Outcome)) bool {
	if !c.busy.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		out := c.runHeld(ctx)
		c.busy.Store(false)
		if done != nil {
			done(out)
		}
	}()
	return true
}

// runHeld runs one cycle; the caller holds the busy guard.
func (c *Cycle) runHeld(ctx context.Context) Outcome {
	// The mode is sampled once; toggling during the run has no effect on it.
	autonomous := c.deps.Autonomous != nil && c.deps.Autonomous()

	out := c.run(ctx, autonomous)
	c.mu.Lock()
	c.lastOutcome = out
	if out != OutcomeNoSnapshot {
		c.lastAnalysis = c.now()
	}
	c.mu.Unlock()
	return out
}

func (c *Cycle) run(ctx context.Context, autonomous bool) Outcome {
	pair, ok := c.deps.Snapshots.Latest()
	if !ok || len(pair.Markets) == 0 {
		return OutcomeNoSnapshot
	}

	d, err := c.analyze(ctx, pair)
	if err != nil {
		fmt.Printf("[CYCLE] Oracle error: %v\n", err)
		c.deps.Events.Error(fmt.Sprintf("Decision oracle failed: %v", err))
		return OutcomeOracleFailed
	}
	if d == nil {
		c.deps.Events.Info("No decision produced by the oracle")
		return OutcomeNoDecision
	}

	side, actionable := d.Action.Side()
	if !actionable {
		c.deps.Events.Info("Market analysis complete. No high-probability setups found.")
		return OutcomeHold
	}

	c.deps.Events.Decision(fmt.Sprintf("AI DECISION: %s %s - Reason: %s", d.Action, d.Asset, d.Reasoning))

	if !autonomous {
		return OutcomeSurfaced
	}

	req := models.OrderRequest{
		Asset:      d.Asset,
		Side:       side,
		Amount:     d.Amount,
		EntryPrice: d.EntryPrice,
	}
	res, err := c.execute(ctx, req, pair.Portfolio)
	if err != nil {
		fmt.Printf("[CYCLE] Execution error: %v\n", err)
		c.deps.Events.Error(fmt.Sprintf("Order execution failed: %v", err))
		return OutcomeExecutionFailed
	}

	trade := models.Trade{
		ID:         res.OrderID,
		Asset:      req.Asset,
		Side:       req.Side,
		EntryPrice: req.EntryPrice,
		Amount:     req.Amount,
		CreatedAt:  c.now(),
		Status:     models.TradeOpen,
		Venue:      c.cfg.Venue,
	}
	c.deps.Ledger.Append(trade)
	c.deps.Events.Info(fmt.Sprintf("Order placed successfully: %s", res.OrderID))

	if c.deps.Journal != nil {
		if err := c.deps.Journal.RecordTrade(ctx, trade); err != nil {
			fmt.Printf("[CYCLE] Trade journal write failed: %v\n", err)
		}
	}
	return OutcomeExecuted
}

func (c *Cycle) analyze(ctx context.Context, pair market.Pair) (*models.Decision, error) {
	if c.deps.Oracle == nil {
		return nil, fmt.Errorf("%w: no decision oracle configured", models.ErrConfig)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OracleTimeout)
	defer cancel()

	d, err := c.deps.Oracle.Analyze(ctx, pair.Markets, pair.Portfolio)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timed out after %s", models.ErrOracle, c.cfg.OracleTimeout)
		}
		return nil, err
	}
	return d, nil
}

func (c *Cycle) execute(ctx context.Context, req models.OrderRequest, portfolio models.PortfolioSnapshot) (models.OrderResult, error) {
	if c.deps.Executor == nil {
		return models.OrderResult{}, fmt.Errorf("%w: no execution venue configured", models.ErrConfig)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ExecutionTimeout)
	defer cancel()

	if c.deps.Guard != nil {
		if err := c.deps.Guard.Check(ctx, req, portfolio); err != nil {
			return models.OrderResult{}, fmt.Errorf("%w: %v", models.ErrExecution, err)
		}
	}

	res, err := c.deps.Executor.Execute(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.OrderResult{}, fmt.Errorf("%w: timed out after %s", models.ErrExecution, c.cfg.ExecutionTimeout)
		}
		return models.OrderResult{}, err
	}
	if !res.Success {
		return models.OrderResult{}, fmt.Errorf("%w: venue rejected order", models.ErrExecution)
	}
	if res.OrderID == "" {
		return models.OrderResult{}, fmt.Errorf("%w: venue returned no order id", models.ErrExecution)
	}
	return res, nil
}
