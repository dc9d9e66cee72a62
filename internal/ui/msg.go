package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/position"
)

// Tea message types for UI communication

// RouterMsg represents navigation between screens
type RouterMsg struct {
	To Route
}

// DomainEventMsg wraps bus events for the UI
type DomainEventMsg struct {
	Event events.Event
}

// SubaccountBalancesMsg carries per-subaccount balance text ("$X.XX" or "N/A").
type SubaccountBalancesMsg struct {
	Balances map[uint16]string
}

// SwitchResultMsg is returned by the switch command.
type SwitchResultMsg struct {
	Index   uint16
	Success bool
}

// RefreshResultMsg is returned by a synchronous positions refresh.
type RefreshResultMsg struct {
	Snapshot position.Snapshot
	OK       bool
}

// ErrorMsg represents error conditions
type ErrorMsg struct {
	Error error
	Title string
}

// SuccessMsg represents success conditions
type SuccessMsg struct {
	Message string
	Title   string
}

// Event Bus for UI communication
var (
	// Bus is the global event bus for UI communication
	Bus = make(chan tea.Msg, 1024)
)

// PublishEvent publishes a domain event to the UI bus
func PublishEvent(event events.Event) {
	select {
	case Bus <- DomainEventMsg{Event: event}:
	default:
		// Bus is full, drop the event
	}
}

// PublishError publishes an error message to the UI bus
func PublishError(err error, title string) {
	select {
	case Bus <- ErrorMsg{Error: err, Title: title}:
	default:
	}
}

// PublishSuccess publishes a success message to the UI bus
func PublishSuccess(message, title string) {
	select {
	case Bus <- SuccessMsg{Message: message, Title: title}:
	default:
	}
}

// BusMsg wraps a message read from Bus so the root model knows to re-arm ListenBus.
type BusMsg struct {
	Msg tea.Msg
}

// TickMsg is the once-per-second heartbeat the root model fans out to screens.
type TickMsg time.Time

// ListenBus returns a tea.Cmd that listens to the event bus.
// Only the root model re-arms it, screens never do.
func ListenBus() tea.Cmd {
	return func() tea.Msg {
		return BusMsg{Msg: <-Bus}
	}
}

// Tick schedules the next TickMsg.
func Tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Route represents different screens in the application
type Route int

const (
	RouteDashboard Route = iota
	RouteSubaccounts
	RouteLogs
)

// String returns the string representation of the route
func (r Route) String() string {
	switch r {
	case RouteDashboard:
		return "dashboard"
	case RouteSubaccounts:
		return "subaccounts"
	case RouteLogs:
		return "logs"
	default:
		return "unknown"
	}
}
