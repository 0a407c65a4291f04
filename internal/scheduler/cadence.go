package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Task is one unit of periodic work. It receives the cadence's base context,
// which Stop does not cancel.
type Task func(ctx context.Context)

type CadenceConfig struct {
	Name     string
	Interval time.Duration
	// Immediate dispatches one tick as soon as Start is called instead of
	// waiting a full interval.
	Immediate bool
}

// Cadence is a cancellable periodic trigger. Every tick is dispatched on its
// own goroutine so a slow task never stalls the ticker; overlap control is the
// task's own concern.
type Cadence struct {
	cfg  CadenceConfig
	task Task
	base context.Context

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	starts  int
}

func NewCadence(base context.Context, cfg CadenceConfig, task Task) *Cadence {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Name == "" {
		cfg.Name = "cadence"
	}
	return &Cadence{cfg: cfg, task: task, base: base}
}

// Start launches the ticker. It reports false when the cadence was already
// running, in which case nothing changes.
func (c *Cadence) Start() bool {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return false
	}
	c.running = true
	c.starts++
	stopCh := make(chan struct{})
	done := make(chan struct{})
	c.stopCh = stopCh
	c.done = done
	c.mu.Unlock()

	if c.cfg.Immediate {
		go c.task(c.base)
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-c.base.Done():
				return
			case <-ticker.C:
				go c.task(c.base)
			}
		}
	}()

	fmt.Printf("[SCHED] %s started (every %s)\n", c.cfg.Name, c.cfg.Interval)
	return true
}

// Stop halts future ticks. Tasks already dispatched run to completion.
// It reports false when the cadence was not running.
func (c *Cadence) Stop() bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	close(c.stopCh)
	done := c.done
	c.running = false
	c.mu.Unlock()

	<-done
	fmt.Printf("[SCHED] %s stopped\n", c.cfg.Name)
	return true
}

func (c *Cadence) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Starts reports how many times the ticker has actually been launched.
func (c *Cadence) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

func (c *Cadence) Interval() time.Duration { return c.cfg.Interval }
