package screen

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/driftoor/internal/logger"
	"github.com/rovshanmuradov/driftoor/internal/ui"
	"github.com/rovshanmuradov/driftoor/internal/ui/component"
	"github.com/rovshanmuradov/driftoor/internal/ui/router"
	"github.com/rovshanmuradov/driftoor/internal/ui/style"
)

const logsScreenLimit = 1000

// LogsScreen shows the in-memory log buffer with level filters
type LogsScreen struct {
	width  int
	height int
	keyMap ui.KeyMap

	buffer *logger.LogBuffer

	// UI components
	helpBar *component.HelpBar
	table   *component.Table

	// State
	logs         []logger.LogEntry
	filteredLogs []logger.LogEntry
	filter       component.LogFilter
	filterName   string
	tailMode     bool // Follow new logs
	lastUpdate   time.Time

	// Styling
	titleStyle  lipgloss.Style
	headerStyle lipgloss.Style
	statusStyle lipgloss.Style
	logStyles   style.LogStyles
}

// NewLogsScreen creates a new logs screen. buffer may be nil.
func NewLogsScreen(buffer *logger.LogBuffer) *LogsScreen {
	palette := style.DefaultPalette()
	keyMap := ui.DefaultKeyMap()

	s := &LogsScreen{
		keyMap:     keyMap,
		buffer:     buffer,
		filter:     component.DefaultLogFilter(),
		filterName: "all",
		tailMode:   true,
		logStyles:  style.NewLogStyles(palette),

		titleStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Margin(1, 0).
			Align(lipgloss.Center),

		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 2),

		statusStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 2),
	}

	s.table = component.NewTable().
		AddColumn("Time", 10, lipgloss.Left).
		AddColumn("Level", 7, lipgloss.Center).
		AddColumn("Message", 0, lipgloss.Left).
		SetShowBorder(true).
		SetSelectable(true).
		SetEmptyText("No log entries match the current filter")

	s.helpBar = component.NewHelpBar().
		SetKeyBindings(keyMap.ContextualHelp(ui.RouteLogs)).
		SetCompact(false)

	return s
}

// Init loads the buffer contents
func (s *LogsScreen) Init() tea.Cmd {
	s.reload()
	return nil
}

// Update handles screen updates
func (s *LogsScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keyMap.Quit):
			return s, tea.Quit

		case key.Matches(msg, s.keyMap.Help):
			s.helpBar.ToggleFull()

		case key.Matches(msg, s.keyMap.Up):
			s.table.MoveUp()
			s.tailMode = false // ручная прокрутка отключает слежение

		case key.Matches(msg, s.keyMap.Down):
			s.table.MoveDown()
			if s.table.GetSelectedRow() == len(s.filteredLogs)-1 {
				s.tailMode = true
			}

		case key.Matches(msg, s.keyMap.Refresh):
			s.reload()

		case key.Matches(msg, s.keyMap.FilterInfo):
			s.setFilter("info", component.LogFilter{ShowInfo: true, ShowWarning: true, ShowError: true})

		case key.Matches(msg, s.keyMap.FilterWarn):
			s.setFilter("warn", component.LogFilter{ShowWarning: true, ShowError: true})

		case key.Matches(msg, s.keyMap.FilterError):
			s.setFilter("error", component.LogFilter{ShowError: true})

		case key.Matches(msg, s.keyMap.ClearFilter):
			s.setFilter("all", component.DefaultLogFilter())

		case msg.String() == "D":
			s.filter.ShowDebug = !s.filter.ShowDebug
			s.applyFilter()

		case msg.String() == "t":
			s.tailMode = !s.tailMode
			if s.tailMode {
				s.scrollToBottom()
			}
		}

	case ui.TickMsg:
		s.reload()
	}

	return s, nil
}

func (s *LogsScreen) setFilter(name string, f component.LogFilter) {
	f.ShowDebug = s.filter.ShowDebug
	s.filter = f
	s.filterName = name
	s.applyFilter()
}

// reload перечитывает буфер логов.
func (s *LogsScreen) reload() {
	if s.buffer == nil {
		return
	}
	s.logs = s.buffer.GetRecentLogs(logsScreenLimit)
	s.lastUpdate = time.Now()
	s.applyFilter()
}

func (s *LogsScreen) applyFilter() {
	s.filteredLogs = s.filteredLogs[:0]
	for _, e := range s.logs {
		if s.filter.Allows(e.Level) {
			s.filteredLogs = append(s.filteredLogs, e)
		}
	}
	s.updateTableDisplay()
	if s.tailMode {
		s.scrollToBottom()
	}
}

// updateTableDisplay updates the table with current log data
func (s *LogsScreen) updateTableDisplay() {
	rows := make([][]string, 0, len(s.filteredLogs))
	for _, e := range s.filteredLogs {
		rows = append(rows, []string{
			e.Timestamp.Format("15:04:05"),
			strings.ToUpper(e.Level),
			e.Message + formatFields(e.Fields),
		})
	}
	s.table.SetRows(rows)

	for i, e := range s.filteredLogs {
		s.table.SetCellStyle(i, 1, component.LevelStyle(s.logStyles, e.Level))
	}
}

func (s *LogsScreen) scrollToBottom() {
	if n := len(s.filteredLogs); n > 0 {
		s.table.SetSelectedRow(n - 1)
	}
}

// formatFields renders structured fields as " k=v" pairs in stable order
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

// View renders the logs screen
func (s *LogsScreen) View() string {
	if s.width == 0 || s.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	title := "Application Logs"
	if s.tailMode {
		title += " (tail)"
	}
	content.WriteString(s.titleStyle.Width(s.width).Render(title))
	content.WriteString("\n")
	content.WriteString(s.renderStatusBar())
	content.WriteString("\n\n")

	if s.buffer == nil {
		content.WriteString(s.statusStyle.Render("Log buffer is not available"))
	} else {
		content.WriteString(s.table.View())
	}
	content.WriteString("\n")

	content.WriteString(s.helpBar.SetWidth(s.width).View(s.keyMap))
	return content.String()
}

// renderStatusBar renders the status information
func (s *LogsScreen) renderStatusBar() string {
	parts := []string{
		fmt.Sprintf("Total: %d", len(s.logs)),
		fmt.Sprintf("Shown: %d", len(s.filteredLogs)),
		"Filter: " + s.filterName,
	}
	if s.filter.ShowDebug {
		parts = append(parts, "debug on")
	}
	if s.buffer != nil {
		total, spilled := s.buffer.GetStats()
		parts = append(parts, fmt.Sprintf("Logged: %d (spilled %d)", total, spilled))
	}
	if !s.lastUpdate.IsZero() {
		parts = append(parts, "Updated: "+s.lastUpdate.Format("15:04:05"))
	}
	return s.headerStyle.Render(strings.Join(parts, " • "))
}

// SetSize sets the screen dimensions
func (s *LogsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.helpBar.SetWidth(width)
	s.table.SetSize(width-4, height-9)
}
