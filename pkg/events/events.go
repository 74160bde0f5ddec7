package events

import (
	"time"
)

type EventType string

const (
	EventTypeTurnCompleted EventType = "turn-completed"
)

// Event is something the turn pipeline wants to tell the outside world about.
type Event interface {
	Type() EventType
}

// TurnCompleted is published after a turn has been fully persisted.
type TurnCompleted struct {
	UserID         string        `json:"user_id"`
	ConversationID string        `json:"conversation_id"`
	MessageCount   int           `json:"message_count"`
	Model          string        `json:"model"`
	Duration       time.Duration `json:"duration"`
}

func (TurnCompleted) Type() EventType {
	return EventTypeTurnCompleted
}

// EventSink receives pipeline events. Publishing is best-effort; a failing
// sink never fails the turn that produced the event.
type EventSink interface {
	PublishEvent(event Event) error
}

// NullSink discards all events.
type NullSink struct{}

func (NullSink) PublishEvent(Event) error {
	return nil
}

var _ EventSink = NullSink{}
