package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/driftoor/internal/logger"
	"github.com/rovshanmuradov/driftoor/internal/ui/style"
)

const compactLogLimit = 50

// LogFilter defines what log levels to show
type LogFilter struct {
	ShowError   bool
	ShowWarning bool
	ShowInfo    bool
	ShowDebug   bool
}

// DefaultLogFilter hides debug entries.
func DefaultLogFilter() LogFilter {
	return LogFilter{ShowError: true, ShowWarning: true, ShowInfo: true}
}

// Allows reports whether an entry with the given level passes the filter.
func (f LogFilter) Allows(level string) bool {
	switch strings.ToLower(level) {
	case "error", "dpanic", "panic", "fatal":
		return f.ShowError
	case "warning", "warn":
		return f.ShowWarning
	case "debug":
		return f.ShowDebug
	default:
		return f.ShowInfo
	}
}

// CompactLogViewer shows the tail of the in-memory log buffer under the dashboard
type CompactLogViewer struct {
	buffer   *logger.LogBuffer
	viewport viewport.Model
	filter   LogFilter
	styles   style.LogStyles
	width    int
	height   int
	visible  bool
	title    string
}

// NewCompactLogViewer creates a new compact log viewer
func NewCompactLogViewer(logBuffer *logger.LogBuffer) *CompactLogViewer {
	return &CompactLogViewer{
		buffer:   logBuffer,
		visible:  false,
		title:    "Recent Logs",
		filter:   DefaultLogFilter(),
		styles:   style.NewLogStyles(style.DefaultPalette()),
		viewport: viewport.New(50, 4),
	}
}

// SetSize sets the component dimensions
func (clv *CompactLogViewer) SetSize(width, height int) {
	clv.width = width
	clv.height = height
	if width > 4 {
		clv.styles.Container = clv.styles.Container.Width(width - 4)
	}

	viewportHeight := height - 4 // Border + title + padding
	if viewportHeight < 2 {
		viewportHeight = 2
	}
	clv.viewport.Width = width - 6
	clv.viewport.Height = viewportHeight
}

// Toggle flips the visibility of the log viewer
func (clv *CompactLogViewer) Toggle() {
	clv.visible = !clv.visible
}

// IsVisible returns whether the log viewer is visible
func (clv *CompactLogViewer) IsVisible() bool {
	return clv.visible
}

// SetFilter updates the log filter
func (clv *CompactLogViewer) SetFilter(filter LogFilter) {
	clv.filter = filter
	clv.updateViewport()
}

// Update handles viewport scrolling
func (clv *CompactLogViewer) Update(msg tea.Msg) tea.Cmd {
	if !clv.visible {
		return nil
	}
	var cmd tea.Cmd
	clv.viewport, cmd = clv.viewport.Update(msg)
	return cmd
}

// View renders the compact log viewer
func (clv *CompactLogViewer) View() string {
	if !clv.visible {
		return ""
	}

	clv.updateViewport()

	title := fmt.Sprintf("%s [ctrl+l] hide", clv.title)
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		clv.styles.Title.Render(title),
		clv.viewport.View(),
	)

	return clv.styles.Container.Render(content)
}

// updateViewport refreshes the viewport content from log buffer
func (clv *CompactLogViewer) updateViewport() {
	if clv.buffer == nil {
		clv.viewport.SetContent("No log buffer available")
		return
	}

	entries := clv.buffer.GetRecentLogs(compactLogLimit)

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		if clv.filter.Allows(entry.Level) {
			lines = append(lines, clv.formatLogEntry(entry))
		}
	}

	if len(lines) == 0 {
		clv.viewport.SetContent("No logs match current filter")
		return
	}

	clv.viewport.SetContent(strings.Join(lines, "\n"))
	clv.viewport.GotoBottom()
}

// formatLogEntry formats a log entry for display
func (clv *CompactLogViewer) formatLogEntry(entry logger.LogEntry) string {
	timestamp := clv.styles.Timestamp.Render(entry.Timestamp.Format("15:04:05"))
	return timestamp + " " + LevelStyle(clv.styles, entry.Level).Render(entry.Message)
}

// LevelStyle picks the log style for a zap level name.
func LevelStyle(styles style.LogStyles, level string) lipgloss.Style {
	switch strings.ToLower(level) {
	case "error", "dpanic", "panic", "fatal":
		return styles.Error
	case "warning", "warn":
		return styles.Warning
	case "info":
		return styles.Info
	case "debug":
		return styles.Debug
	default:
		return styles.Entry
	}
}

// GetHeight returns the component height for layout calculations
func (clv *CompactLogViewer) GetHeight() int {
	if !clv.visible {
		return 0
	}
	return clv.height
}
