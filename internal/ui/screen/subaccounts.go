package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/events"
	"github.com/rovshanmuradov/driftoor/internal/format"
	"github.com/rovshanmuradov/driftoor/internal/subaccount"
	"github.com/rovshanmuradov/driftoor/internal/ui"
	"github.com/rovshanmuradov/driftoor/internal/ui/component"
	"github.com/rovshanmuradov/driftoor/internal/ui/router"
	"github.com/rovshanmuradov/driftoor/internal/ui/style"
)

// copyToClipboard подменяется в тестах.
var copyToClipboard = clipboard.WriteAll

type subaccountsRescannedMsg struct {
	err error
}

// SubaccountsScreen lists discovered subaccounts and switches between them
type SubaccountsScreen struct {
	width  int
	height int
	keyMap ui.KeyMap

	services ui.ServiceProvider
	logger   *zap.Logger

	// UI components
	helpBar *component.HelpBar
	table   *component.Table

	// State
	records    []subaccount.Record
	balances   map[uint16]string
	active     uint16
	switching  bool
	pending    uint16
	loading    bool
	status     string
	statusErr  bool
	lastUpdate time.Time

	// Styling
	titleStyle   lipgloss.Style
	statusStyle  lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	infoStyle    lipgloss.Style
}

// NewSubaccountsScreen creates a new subaccounts screen
func NewSubaccountsScreen(services ui.ServiceProvider) *SubaccountsScreen {
	palette := style.DefaultPalette()
	keyMap := ui.DefaultKeyMap()

	s := &SubaccountsScreen{
		keyMap:   keyMap,
		services: services,
		logger:   services.Logger().Named("subaccounts"),
		balances: make(map[uint16]string),

		titleStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Margin(1, 0).
			Align(lipgloss.Center),

		statusStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 2),

		errorStyle: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true).
			Padding(0, 2),

		successStyle: lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true).
			Padding(0, 2),

		infoStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Italic(true).
			Padding(0, 2),
	}

	s.table = component.NewTable().
		AddColumn("#", 5, lipgloss.Right).
		AddColumn("Account", 16, lipgloss.Left).
		AddColumn("Balance", 16, lipgloss.Right).
		AddColumn("Active", 8, lipgloss.Center).
		SetEmptyText("No subaccounts found. Press 'r' to scan again.")

	s.helpBar = component.NewHelpBar().
		SetKeyBindings(keyMap.ContextualHelp(ui.RouteSubaccounts)).
		SetCompact(false)

	s.reload()
	return s
}

// Init loads balances of the known subaccounts
func (s *SubaccountsScreen) Init() tea.Cmd {
	s.reload()
	if len(s.records) == 0 {
		return nil
	}
	s.loading = true
	return s.loadBalancesCmd()
}

// Update handles screen updates
func (s *SubaccountsScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, s.handleKey(msg))

	case ui.SubaccountBalancesMsg:
		s.loading = false
		s.lastUpdate = time.Now()
		for idx, text := range msg.Balances {
			s.balances[idx] = text
		}
		s.updateTable()

	case ui.SwitchResultMsg:
		s.switching = false
		if msg.Success {
			s.active = msg.Index
			s.setStatus(fmt.Sprintf("Switched to subaccount #%d", msg.Index), false)
			s.updateTable()
			cmds = append(cmds, navigate(ui.RouteDashboard))
		} else {
			s.setStatus(fmt.Sprintf("Switch to subaccount #%d failed", msg.Index), true)
		}

	case subaccountsRescannedMsg:
		s.loading = false
		if msg.err != nil {
			// подробности уже показаны уведомлением сервиса
			s.setStatus("Failed to refresh subaccounts", true)
			break
		}
		s.reload()
		if len(s.records) > 0 {
			s.loading = true
			cmds = append(cmds, s.loadBalancesCmd())
		}

	case ui.DomainEventMsg:
		switch e := msg.Event.(type) {
		case events.SubaccountsRefreshedEvent:
			// сканирование, запущенное не с этого экрана
			if !s.loading {
				s.reload()
			}
		case events.SubaccountSwitchedEvent:
			if e.Success {
				s.active = e.To
				s.updateTable()
			}
		}

	case ui.ErrorMsg:
		if msg.Error != nil {
			s.setStatus(msg.Title+": "+msg.Error.Error(), true)
		}

	case ui.SuccessMsg:
		s.setStatus(msg.Message, false)
	}

	return s, tea.Batch(cmds...)
}

func (s *SubaccountsScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.keyMap.Quit):
		return tea.Quit

	case key.Matches(msg, s.keyMap.Help):
		s.helpBar.ToggleFull()

	case key.Matches(msg, s.keyMap.Up):
		s.table.MoveUp()

	case key.Matches(msg, s.keyMap.Down):
		s.table.MoveDown()

	case key.Matches(msg, s.keyMap.Enter):
		if rec, ok := s.selected(); ok {
			return s.switchTo(rec.Index)
		}

	case key.Matches(msg, s.keyMap.QuickSwitch):
		idx, ok := digit(msg)
		if !ok {
			return nil
		}
		if !s.known(idx) {
			s.setStatus(fmt.Sprintf("Subaccount #%d not found", idx), true)
			return nil
		}
		return s.switchTo(idx)

	case key.Matches(msg, s.keyMap.Copy):
		rec, ok := s.selected()
		if !ok {
			return nil
		}
		if err := copyToClipboard(rec.PublicKey.String()); err != nil {
			s.logger.Debug("Clipboard unavailable", zap.Error(err))
			s.setStatus("Failed to copy to clipboard", true)
			return nil
		}
		s.setStatus("Address copied to clipboard", false)

	case key.Matches(msg, s.keyMap.Refresh):
		if s.loading {
			return nil
		}
		s.loading = true
		return s.refreshCmd()
	}
	return nil
}

func (s *SubaccountsScreen) switchTo(idx uint16) tea.Cmd {
	if s.switching {
		return nil
	}
	if idx == s.active {
		s.setStatus(fmt.Sprintf("Subaccount #%d is already active", idx), false)
		return nil
	}
	s.switching = true
	s.pending = idx
	s.setStatus(fmt.Sprintf("Switching to subaccount #%d...", idx), false)
	return switchCmd(s.services, idx)
}

// reload копирует список субаккаунтов из сервиса.
func (s *SubaccountsScreen) reload() {
	s.records = s.services.Subaccounts()
	s.active = s.services.ActiveSubaccount()
	s.updateTable()
}

func (s *SubaccountsScreen) known(idx uint16) bool {
	for _, r := range s.records {
		if r.Index == idx {
			return true
		}
	}
	return false
}

func (s *SubaccountsScreen) selected() (subaccount.Record, bool) {
	i := s.table.GetSelectedRow()
	if i < 0 || i >= len(s.records) {
		return subaccount.Record{}, false
	}
	return s.records[i], true
}

func (s *SubaccountsScreen) setStatus(text string, isErr bool) {
	s.status = text
	s.statusErr = isErr
}

// updateTable updates the table with current subaccount data
func (s *SubaccountsScreen) updateTable() {
	rows := make([][]string, 0, len(s.records))
	activeRow := -1
	for i, r := range s.records {
		balance, ok := s.balances[r.Index]
		if !ok {
			balance = "..."
		}
		mark := ""
		if r.Index == s.active {
			mark = "✓"
			activeRow = i
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Index),
			format.ShortenAddress(r.PublicKey.String()),
			balance,
			mark,
		})
	}
	s.table.SetRows(rows)
	if activeRow >= 0 {
		s.table.SetCellStyle(activeRow, 3, style.LongStyle)
	}
}

// Commands

func (s *SubaccountsScreen) loadBalancesCmd() tea.Cmd {
	services := s.services
	return func() tea.Msg {
		return ui.SubaccountBalancesMsg{Balances: services.SubaccountBalances(services.Context())}
	}
}

func (s *SubaccountsScreen) refreshCmd() tea.Cmd {
	services := s.services
	return func() tea.Msg {
		return subaccountsRescannedMsg{err: services.RefreshSubaccounts(services.Context())}
	}
}

// View renders the subaccounts screen
func (s *SubaccountsScreen) View() string {
	if s.width == 0 || s.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	content.WriteString(s.titleStyle.Width(s.width).Render("Drift Subaccounts"))
	content.WriteString("\n")

	summary := fmt.Sprintf("Found: %d • Active: #%d", len(s.records), s.active)
	if !s.lastUpdate.IsZero() {
		summary += " • Balances: " + s.lastUpdate.Format("15:04:05")
	}
	content.WriteString(s.statusStyle.Render(summary))
	content.WriteString("\n\n")

	content.WriteString(s.table.View())
	content.WriteString("\n")

	switch {
	case s.switching:
		content.WriteString(s.infoStyle.Render(fmt.Sprintf("Switching to subaccount #%d...", s.pending)))
	case s.loading:
		content.WriteString(s.infoStyle.Render("Loading balances..."))
	case s.status != "" && s.statusErr:
		content.WriteString(s.errorStyle.Render("✗ " + s.status))
	case s.status != "":
		content.WriteString(s.successStyle.Render("✓ " + s.status))
	}
	content.WriteString("\n")

	content.WriteString(s.helpBar.SetWidth(s.width).View(s.keyMap))
	return content.String()
}

// SetSize sets the screen dimensions
func (s *SubaccountsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.helpBar.SetWidth(width)
	s.table.SetSize(width-4, height-10)
}
