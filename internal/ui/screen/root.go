package screen

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/driftoor/internal/logger"
	"github.com/rovshanmuradov/driftoor/internal/monitor"
	"github.com/rovshanmuradov/driftoor/internal/ui"
	"github.com/rovshanmuradov/driftoor/internal/ui/router"
	"github.com/rovshanmuradov/driftoor/internal/ui/state"
)

const tickInterval = time.Second

// RootModel represents the main TUI application model.
// It owns the bus listener and the ticker, and keeps the dashboard up to date
// even while another screen is on top of it.
type RootModel struct {
	router    *router.Router
	dashboard *DashboardScreen
	services  ui.ServiceProvider
	logBuffer *logger.LogBuffer
	width     int
	height    int
}

// NewRootModel creates a new application model with the dashboard as the first screen
func NewRootModel(services ui.ServiceProvider, logBuffer *logger.LogBuffer, cache *state.SnapshotCache) *RootModel {
	dashboard := NewDashboardScreen(services, logBuffer, cache)
	return &RootModel{
		router:    router.New(dashboard),
		dashboard: dashboard,
		services:  services,
		logBuffer: logBuffer,
	}
}

// Init initializes the application
func (m *RootModel) Init() tea.Cmd {
	return tea.Batch(
		m.router.Init(),
		ui.ListenBus(),
		ui.Tick(tickInterval),
	)
}

// Update handles application-level updates
func (m *RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case ui.BusMsg:
		// слушатель шины один: перевзводим только после сообщения из шины
		cmds = append(cmds, ui.ListenBus())
		_, cmd := m.Update(msg.Msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		cmds = append(cmds, m.forward(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		cmds = append(cmds, m.forward(msg))

	case ui.RouterMsg:
		cmds = append(cmds, m.handleNavigation(msg.To))

	case ui.TickMsg:
		cmds = append(cmds, m.broadcast(msg), ui.Tick(tickInterval))

	case monitor.SnapshotMsg, ui.DomainEventMsg:
		cmds = append(cmds, m.broadcast(msg))

	default:
		cmds = append(cmds, m.forward(msg))
	}

	return m, tea.Batch(cmds...)
}

// forward sends a message to the current screen only
func (m *RootModel) forward(msg tea.Msg) tea.Cmd {
	_, cmd := m.router.Update(msg)
	return cmd
}

// broadcast sends a message to the current screen and to the dashboard below it
func (m *RootModel) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	if m.router.Current() != router.Screen(m.dashboard) {
		_, cmd := m.dashboard.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.forward(msg))
	return tea.Batch(cmds...)
}

// handleNavigation handles navigation to different screens
func (m *RootModel) handleNavigation(route ui.Route) tea.Cmd {
	var next router.Screen

	switch route {
	case ui.RouteDashboard:
		return m.router.Clear()

	case ui.RouteSubaccounts:
		if _, ok := m.router.Current().(*SubaccountsScreen); ok {
			return nil
		}
		next = NewSubaccountsScreen(m.services)

	case ui.RouteLogs:
		if _, ok := m.router.Current().(*LogsScreen); ok {
			return nil
		}
		next = NewLogsScreen(m.logBuffer)

	default:
		// Unknown route, stay on current screen
		return nil
	}

	// над дашбордом держим не больше одного экрана
	if m.router.Depth() > 1 {
		return m.router.Replace(next)
	}
	return m.router.Push(next)
}

// View renders the application
func (m *RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	return m.router.View()
}
