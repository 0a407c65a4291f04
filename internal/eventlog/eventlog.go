package eventlog

import (
	"sync"
	"time"

	"github.com/interastral-2026/novanew/internal/models"
)

const DefaultCapacity = 50

// Listener is called after an event has been appended, outside the lock.
type Listener func(models.LogEvent)

// Log is a bounded ring of operational events. When full, the oldest event
// is overwritten. Reads come back newest first.
type Log struct {
	mu        sync.Mutex
	events    []models.LogEvent
	head      int // next write position
	size      int
	nextID    uint64
	now       func() time.Time
	listeners []Listener
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		events: make([]models.LogEvent, capacity),
		now:    time.Now,
	}
}

// Subscribe registers a listener for every subsequently recorded event.
func (l *Log) Subscribe(fn Listener) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

func (l *Log) Record(message string, kind models.EventKind) models.LogEvent {
	l.mu.Lock()
	l.nextID++
	ev := models.LogEvent{
		ID:        l.nextID,
		Timestamp: l.now(),
		Message:   message,
		Kind:      kind,
	}
	l.events[l.head] = ev
	l.head = (l.head + 1) % len(l.events)
	if l.size < len(l.events) {
		l.size++
	}
	listeners := l.listeners
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
	return ev
}

func (l *Log) Info(msg string) models.LogEvent     { return l.Record(msg, models.EventInfo) }
func (l *Log) Decision(msg string) models.LogEvent { return l.Record(msg, models.EventDecision) }
func (l *Log) Warning(msg string) models.LogEvent  { return l.Record(msg, models.EventWarning) }
func (l *Log) Error(msg string) models.LogEvent    { return l.Record(msg, models.EventError) }

// Snapshot returns a copy of the retained events, most recent first.
func (l *Log) Snapshot() []models.LogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.LogEvent, 0, l.size)
	for i := 1; i <= l.size; i++ {
		idx := (l.head - i + len(l.events)) % len(l.events)
		out = append(out, l.events[idx])
	}
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

func (l *Log) Capacity() int { return len(l.events) }
