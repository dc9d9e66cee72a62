package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/driftoor/internal/ui/style"
)

// HelpBar represents a help bar component showing keyboard shortcuts
type HelpBar struct {
	keyBindings []key.Binding
	width       int

	// полная справка по "?"
	full     help.Model
	showFull bool

	// Styling
	keyStyle       lipgloss.Style
	descStyle      lipgloss.Style
	sepStyle       lipgloss.Style
	containerStyle lipgloss.Style

	compact bool
}

// NewHelpBar creates a new help bar component
func NewHelpBar() *HelpBar {
	palette := style.DefaultPalette()

	full := help.New()
	full.ShowAll = true
	full.Styles.FullKey = lipgloss.NewStyle().Foreground(palette.Primary).Bold(true)
	full.Styles.FullDesc = lipgloss.NewStyle().Foreground(palette.TextMuted)
	full.Styles.FullSeparator = lipgloss.NewStyle().Foreground(palette.TextMuted)

	return &HelpBar{
		keyBindings: make([]key.Binding, 0),
		width:       80,
		full:        full,

		keyStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),

		descStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		sepStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		containerStyle: lipgloss.NewStyle().
			Padding(0, 1).
			Margin(1, 0, 0, 0),
	}
}

// SetKeyBindings sets the key bindings to display
func (h *HelpBar) SetKeyBindings(bindings []key.Binding) *HelpBar {
	h.keyBindings = bindings
	return h
}

// SetWidth sets the help bar width
func (h *HelpBar) SetWidth(width int) *HelpBar {
	h.width = width
	h.full.Width = width
	return h
}

// SetCompact enables/disables compact mode
func (h *HelpBar) SetCompact(compact bool) *HelpBar {
	h.compact = compact
	return h
}

// ToggleFull switches between the contextual bar and the full key reference.
func (h *HelpBar) ToggleFull() {
	h.showFull = !h.showFull
}

// ShowingFull reports whether the full reference is shown.
func (h *HelpBar) ShowingFull() bool { return h.showFull }

// View renders the help bar; km is used for the full reference.
func (h *HelpBar) View(km help.KeyMap) string {
	if h.showFull && km != nil {
		return h.containerStyle.Width(h.width).Render(h.full.View(km))
	}
	if len(h.keyBindings) == 0 {
		return ""
	}

	availableWidth := h.width - 4 // Account for padding

	var helpItems []string
	if h.compact {
		helpItems = h.renderItems(availableWidth, false)
	} else {
		helpItems = h.renderItems(availableWidth, true)
	}

	separator := h.sepStyle.Render(" • ")
	content := strings.Join(helpItems, separator)

	if lipgloss.Width(content) > availableWidth {
		content = h.wrapContent(helpItems, availableWidth, separator)
	}

	return h.containerStyle.Width(h.width).Render(content)
}

// renderItems renders enabled bindings as "key desc" (or only keys in compact mode)
func (h *HelpBar) renderItems(maxWidth int, withDesc bool) []string {
	items := make([]string, 0, len(h.keyBindings))
	currentWidth := 0

	for _, binding := range h.keyBindings {
		if !binding.Enabled() {
			continue
		}

		hk := binding.Help()
		if hk.Key == "" {
			continue
		}

		item := h.keyStyle.Render(hk.Key)
		if withDesc {
			if hk.Desc == "" {
				continue
			}
			item += " " + h.descStyle.Render(hk.Desc)
		}

		itemWidth := lipgloss.Width(item) + 3 // 3 for separator
		if h.compact && currentWidth+itemWidth > maxWidth && len(items) > 0 {
			break
		}

		items = append(items, item)
		currentWidth += itemWidth
	}

	return items
}

// wrapContent wraps content to fit within the available width
func (h *HelpBar) wrapContent(items []string, maxWidth int, separator string) string {
	var lines []string
	var currentLine []string
	currentWidth := 0
	sepWidth := lipgloss.Width(separator)

	for _, item := range items {
		itemWidth := lipgloss.Width(item) + sepWidth

		if currentWidth+itemWidth > maxWidth && len(currentLine) > 0 {
			lines = append(lines, strings.Join(currentLine, separator))
			currentLine = []string{item}
			currentWidth = itemWidth
		} else {
			currentLine = append(currentLine, item)
			currentWidth += itemWidth
		}
	}

	if len(currentLine) > 0 {
		lines = append(lines, strings.Join(currentLine, separator))
	}

	return strings.Join(lines, "\n")
}
