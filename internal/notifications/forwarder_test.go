package notifications

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interastral-2026/novanew/internal/eventlog"
	"github.com/interastral-2026/novanew/internal/models"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []string
	gate chan struct{}
}

func (r *recordingSender) SendEvent(ctx context.Context, ev models.LogEvent) {
	msg := fmt.Sprintf("%s: %s", ev.Kind, ev.Message)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return
		}
	}
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recordingSender) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestShouldForward(t *testing.T) {
	assert.True(t, ShouldForward(models.LogEvent{Kind: models.EventDecision}))
	assert.True(t, ShouldForward(models.LogEvent{Kind: models.EventWarning}))
	assert.True(t, ShouldForward(models.LogEvent{Kind: models.EventError}))
	assert.True(t, ShouldForward(models.LogEvent{Kind: models.EventInfo, Message: "Order placed successfully: x"}))
	assert.False(t, ShouldForward(models.LogEvent{Kind: models.EventInfo, Message: "Market analysis complete."}))
}

func TestForwarder_RelaysSubscribedEvents(t *testing.T) {
	sender := &recordingSender{}
	f := NewForwarder(sender)
	log := eventlog.New(10)
	log.Subscribe(f.OnEvent)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	log.Info("Market analysis complete. No high-probability setups found.")
	log.Decision("AI DECISION: BUY BTC - Reason: breakout")
	log.Info("Order placed successfully: cb-1")

	require.Eventually(t, func() bool { return len(sender.sent()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{
		"DECISION: AI DECISION: BUY BTC - Reason: breakout",
		"INFO: Order placed successfully: cb-1",
	}, sender.sent())

	cancel()
	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after cancel")
	}
}

func TestForwarder_NeverBlocksRecorder(t *testing.T) {
	sender := &recordingSender{gate: make(chan struct{})}
	f := NewForwarder(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	start := time.Now()
	for i := 0; i < forwardQueueSize*2; i++ {
		f.OnEvent(models.LogEvent{ID: uint64(i), Kind: models.EventError, Message: "boom"})
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Positive(t, f.Dropped())
}
