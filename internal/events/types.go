// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Session lifecycle
	SessionChanged EventType = "session.changed"

	// Subaccount events
	SubaccountsRefreshed EventType = "subaccount.refreshed"
	SubaccountSwitched   EventType = "subaccount.switched"

	// Position events
	PositionsUpdated EventType = "positions.updated"

	// User-facing notifications (toasts)
	NotificationRaised EventType = "notification.raised"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// SessionChangedEvent is emitted after every session state transition.
type SessionChangedEvent struct {
	BaseEvent
	Phase         string
	Authority     string
	SubAccountID  uint16
	IsInitialized bool
	IsSubscribed  bool
	IsLoading     bool
	Err           error
}

// SubaccountsRefreshedEvent is emitted when discovery rebuilds the subaccount set.
type SubaccountsRefreshedEvent struct {
	BaseEvent
	Authority string
	Indexes   []uint16
}

// SubaccountSwitchedEvent is emitted when a switch request completes.
type SubaccountSwitchedEvent struct {
	BaseEvent
	From    uint16
	To      uint16
	Epoch   uint64
	Success bool
}

// PositionsUpdatedEvent is emitted after a refresh of the active subaccount's positions.
type PositionsUpdatedEvent struct {
	BaseEvent
	SubAccountID uint16
	Exists       bool
	Partial      bool // хотя бы одно поле не удалось получить
}

// NotificationLevel classifies user-facing messages.
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
	LevelWarning NotificationLevel = "warning"
	LevelInfo    NotificationLevel = "info"
)

// NotificationEvent carries a toast for the presentation layer.
type NotificationEvent struct {
	BaseEvent
	Level   NotificationLevel
	Title   string
	Message string
}

// Notify builds a notification event.
func Notify(level NotificationLevel, title, message string) NotificationEvent {
	return NotificationEvent{
		BaseEvent: NewBase(NotificationRaised),
		Level:     level,
		Title:     title,
		Message:   message,
	}
}
