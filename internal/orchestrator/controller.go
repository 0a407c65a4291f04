package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/interastral-2026/novanew/internal/decision"
	"github.com/interastral-2026/novanew/internal/models"
	"github.com/interastral-2026/novanew/internal/scheduler"
)

type Mode string

const (
	ModeStandby Mode = "STANDBY"
	ModeActive  Mode = "ACTIVE"
)

type Refresher interface {
	Refresh(ctx context.Context) error
	LastRefresh() time.Time
}

type CycleRunner interface {
	RunOnce(ctx context.Context) decision.Outcome
	TryRunAsync(ctx context.Context, done func(decision.Outcome)) bool
	Busy() bool
	LastAnalysis() time.Time
	LastOutcome() decision.Outcome
}

type EventRecorder interface {
	Info(msg string) models.LogEvent
	Warning(msg string) models.LogEvent
}

type Config struct {
	RefreshInterval  time.Duration
	DecisionInterval time.Duration
	Venue            string
}

// Controller owns the autonomous-mode flag and both cadences. The refresh
// cadence runs for the controller's lifetime; the decision cadence runs only
// while ACTIVE.
type Controller struct {
	base   context.Context
	cycle  CycleRunner
	store  Refresher
	events EventRecorder
	cfg    Config

	mu      sync.Mutex
	active  atomic.Bool
	refresh *scheduler.Cadence
	decide  *scheduler.Cadence
}

// NewController wires both cadences but starts neither; the refresh cadence
// begins on Start, which serve calls right after wiring.
func NewController(base context.Context, store Refresher, cycle CycleRunner, events EventRecorder, cfg Config) *Controller {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 10 * time.Second
	}
	if cfg.DecisionInterval <= 0 {
		cfg.DecisionInterval = 30 * time.Second
	}
	c := &Controller{base: base, cycle: cycle, store: store, events: events, cfg: cfg}

	c.refresh = scheduler.NewCadence(base, scheduler.CadenceConfig{
		Name:      "snapshot-refresh",
		Interval:  cfg.RefreshInterval,
		Immediate: true,
	}, func(ctx context.Context) {
		// Store reports failures to the event log itself.
		_ = store.Refresh(ctx)
	})

	c.decide = scheduler.NewCadence(base, scheduler.CadenceConfig{
		Name:     "decision-cycle",
		Interval: cfg.DecisionInterval,
	}, func(ctx context.Context) {
		out := cycle.RunOnce(ctx)
		fmt.Printf("[ORCH] Scheduled cycle finished: %s\n", out)
	})
	return c
}

// Start begins the snapshot cadence. The first refresh fires immediately.
func (c *Controller) Start() {
	if c.refresh.Start() {
		fmt.Printf("[ORCH] Controller started in %s (venue=%s)\n", c.Mode(), c.cfg.Venue)
	}
}

// Stop halts both cadences. In-flight work is left to finish.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decide.Stop()
	c.refresh.Stop()
	fmt.Println("[ORCH] Controller stopped")
}

// Active is the single authoritative mode flag the decision cycle reads.
func (c *Controller) Active() bool { return c.active.Load() }

func (c *Controller) Mode() Mode {
	if c.Active() {
		return ModeActive
	}
	return ModeStandby
}

// EnableAutonomy moves STANDBY -> ACTIVE. It reports false when already
// ACTIVE, in which case no event is logged and no timer is started.
func (c *Controller) EnableAutonomy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active.Load() {
		return false
	}
	c.active.Store(true)
	c.events.Warning(fmt.Sprintf("Autonomous mode activated. Cycle interval starts (%s).", c.cfg.DecisionInterval))
	c.decide.Start()
	return true
}

// DisableAutonomy moves ACTIVE -> STANDBY. A cycle already running is not
// cancelled.
func (c *Controller) DisableAutonomy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active.Load() {
		return false
	}
	c.active.Store(false)
	c.events.Info("Returned to standby. Autonomous trading disabled.")
	c.decide.Stop()
	return true
}

func (c *Controller) SetAutonomy(enabled bool) Mode {
	if enabled {
		c.EnableAutonomy()
	} else {
		c.DisableAutonomy()
	}
	return c.Mode()
}

func (c *Controller) Toggle() Mode {
	c.mu.Lock()
	enabled := !c.active.Load()
	c.mu.Unlock()
	return c.SetAutonomy(enabled)
}

// AnalyzeNow runs one cycle synchronously through the same re-entrancy guard
// as the scheduled ticks.
func (c *Controller) AnalyzeNow(ctx context.Context) decision.Outcome {
	return c.cycle.RunOnce(ctx)
}

// TriggerAnalysis dispatches one cycle in the background. The run guard is
// claimed before it returns, so false means nothing was dispatched.
func (c *Controller) TriggerAnalysis() bool {
	return c.cycle.TryRunAsync(c.base, func(out decision.Outcome) {
		fmt.Printf("[ORCH] Manual cycle finished: %s\n", out)
	})
}

// Status is the read-only view the dashboard polls.
type Status struct {
	Mode             Mode       `json:"mode"`
	Venue            string     `json:"venue"`
	CycleRunning     bool       `json:"cycleRunning"`
	LastAnalysis     *time.Time `json:"lastAnalysis"`
	LastOutcome      string     `json:"lastOutcome,omitempty"`
	LastRefresh      *time.Time `json:"lastRefresh"`
	RefreshInterval  string     `json:"refreshInterval"`
	DecisionInterval string     `json:"decisionInterval"`
}

func (c *Controller) Status() Status {
	s := Status{
		Mode:             c.Mode(),
		Venue:            c.cfg.Venue,
		CycleRunning:     c.cycle.Busy(),
		LastAnalysis:     timePtr(c.cycle.LastAnalysis()),
		LastRefresh:      timePtr(c.store.LastRefresh()),
		RefreshInterval:  c.cfg.RefreshInterval.String(),
		DecisionInterval: c.cfg.DecisionInterval.String(),
	}
	if s.LastAnalysis != nil {
		s.LastOutcome = c.cycle.LastOutcome().String()
	}
	return s
}

// DecisionCadenceRunning reports whether the decision timer is live.
func (c *Controller) DecisionCadenceRunning() bool { return c.decide.Running() }

// DecisionCadenceStarts reports how many times the decision timer was launched.
func (c *Controller) DecisionCadenceStarts() int { return c.decide.Starts() }

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
