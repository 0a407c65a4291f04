package models

import "time"

type EventKind string

const (
	EventInfo     EventKind = "INFO"
	EventDecision EventKind = "DECISION"
	EventWarning  EventKind = "WARNING"
	EventError    EventKind = "ERROR"
)

type LogEvent struct {
	ID        uint64    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Kind      EventKind `json:"type"`
}
