package notifications

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/interastral-2026/novanew/internal/models"
)

const forwardQueueSize = 64

// Forwarder relays selected event log entries to a Sender on its own
// goroutine. OnEvent never blocks; when the queue is full the event is
// dropped.
type Forwarder struct {
	sender eventSender
	queue  chan models.LogEvent
	once   sync.Once
	done   chan struct{}

	mu      sync.Mutex
	dropped int
}

type eventSender interface {
	SendEvent(ctx context.Context, ev models.LogEvent)
}

func NewForwarder(sender eventSender) *Forwarder {
	return &Forwarder{
		sender: sender,
		queue:  make(chan models.LogEvent, forwardQueueSize),
		done:   make(chan struct{}),
	}
}

// ShouldForward reports whether an event is worth a chat message: decisions,
// warnings, errors and order confirmations.
func ShouldForward(ev models.LogEvent) bool {
	switch ev.Kind {
	case models.EventDecision, models.EventWarning, models.EventError:
		return true
	case models.EventInfo:
		return strings.HasPrefix(ev.Message, "Order placed")
	default:
		return false
	}
}

// OnEvent matches eventlog.Listener.
func (f *Forwarder) OnEvent(ev models.LogEvent) {
	if !ShouldForward(ev) {
		return
	}
	select {
	case f.queue <- ev:
	default:
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
		fmt.Printf("[CHAT] Queue full, dropped event %d\n", ev.ID)
	}
}

// Run delivers queued events until ctx is cancelled. Events still queued at
// that point are discarded.
func (f *Forwarder) Run(ctx context.Context) {
	defer f.once.Do(func() { close(f.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-f.queue:
			f.sender.SendEvent(ctx, ev)
		}
	}
}

// Done is closed when Run returns.
func (f *Forwarder) Done() <-chan struct{} { return f.done }

func (f *Forwarder) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
