package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for the application
type KeyMap struct {
	// Global navigation
	Quit key.Binding
	Back key.Binding
	Help key.Binding

	// Navigation
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Tab   key.Binding

	// Session
	Connect    key.Binding
	Disconnect key.Binding
	Refresh    key.Binding

	// Screens
	Subaccounts key.Binding
	Logs        key.Binding
	ToggleLogs  key.Binding

	// Dashboard
	Chart      key.Binding
	ExportJSON key.Binding
	ExportCSV  key.Binding

	// Subaccounts
	QuickSwitch key.Binding
	Copy        key.Binding

	// Logs
	FilterInfo  key.Binding
	FilterWarn  key.Binding
	FilterError key.Binding
	ClearFilter key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "switch"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next panel"),
		),

		Connect: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "connect"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "disconnect"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "f5"),
			key.WithHelp("r/F5", "refresh"),
		),

		Subaccounts: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "subaccounts"),
		),
		Logs: key.NewBinding(
			key.WithKeys("l", "f12"),
			key.WithHelp("l/F12", "logs"),
		),
		ToggleLogs: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "toggle logs"),
		),

		Chart: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "pnl chart"),
		),
		ExportJSON: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export json"),
		),
		ExportCSV: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "export csv"),
		),

		QuickSwitch: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "switch to #"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy address"),
		),

		FilterInfo: key.NewBinding(
			key.WithKeys("f1", "1"),
			key.WithHelp("1/F1", "info"),
		),
		FilterWarn: key.NewBinding(
			key.WithKeys("f2", "2"),
			key.WithHelp("2/F2", "warn"),
		),
		FilterError: key.NewBinding(
			key.WithKeys("f3", "3"),
			key.WithHelp("3/F3", "error"),
		),
		ClearFilter: key.NewBinding(
			key.WithKeys("f4", "0"),
			key.WithHelp("0/F4", "all"),
		),
	}
}

// ShortHelp returns key help text for the current context
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns extended help text for the current context
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Tab},
		{k.Connect, k.Disconnect, k.Refresh},
		{k.Subaccounts, k.Logs, k.Chart, k.ExportJSON, k.ExportCSV},
		{k.Help, k.Back, k.Quit},
	}
}

// ContextualHelp returns help text based on the current route
func (k KeyMap) ContextualHelp(route Route) []key.Binding {
	switch route {
	case RouteDashboard:
		return []key.Binding{k.Connect, k.Disconnect, k.Refresh, k.Subaccounts, k.Chart, k.ExportJSON, k.ExportCSV, k.Logs, k.Quit}
	case RouteSubaccounts:
		return []key.Binding{k.Up, k.Down, k.Enter, k.QuickSwitch, k.Copy, k.Refresh, k.Back, k.Quit}
	case RouteLogs:
		return []key.Binding{k.FilterInfo, k.FilterWarn, k.FilterError, k.ClearFilter, k.Back, k.Quit}
	default:
		return k.ShortHelp()
	}
}
