package style

import (
	"github.com/charmbracelet/lipgloss"
)

// Enhanced styles for new UI components

// HeaderStyles provides styling for the status header
type HeaderStyles struct {
	Container   lipgloss.Style
	Title       lipgloss.Style
	Wallet      lipgloss.Style
	Phase       lipgloss.Style
	RPCGood     lipgloss.Style
	RPCBad      lipgloss.Style
	PnLPositive lipgloss.Style
	PnLNegative lipgloss.Style
	PnLNeutral  lipgloss.Style
}

// NewHeaderStyles creates header styles with the given palette
func NewHeaderStyles(palette Palette) HeaderStyles {
	return HeaderStyles{
		Container: lipgloss.NewStyle().
			Background(palette.Background).
			Foreground(palette.Text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(0, 2).
			MarginBottom(1),

		Title: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),

		Wallet: lipgloss.NewStyle().
			Foreground(palette.TextSecondary).
			Bold(false),

		Phase: lipgloss.NewStyle().
			Foreground(palette.Info),

		RPCGood: lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true),

		RPCBad: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true),

		PnLPositive: lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true),

		PnLNegative: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true),

		PnLNeutral: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Bold(false),
	}
}

// CardStyles – карточка баланса и заголовки панелей дашборда.
type CardStyles struct {
	Container      lipgloss.Style
	ActiveBorder   lipgloss.Style
	Title          lipgloss.Style
	Label          lipgloss.Style
	Value          lipgloss.Style
	Muted          lipgloss.Style
	PartialWarning lipgloss.Style
}

// NewCardStyles creates balance card styles
func NewCardStyles(palette Palette) CardStyles {
	return CardStyles{
		Container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 2),

		ActiveBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(0, 2),

		Title: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(palette.TextSecondary),

		Value: lipgloss.NewStyle().
			Foreground(palette.Text).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Italic(true),

		PartialWarning: lipgloss.NewStyle().
			Foreground(palette.Warning),
	}
}

// LogStyles provides styling for the compact log viewer
type LogStyles struct {
	Container lipgloss.Style
	Title     lipgloss.Style
	Entry     lipgloss.Style
	Timestamp lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Info      lipgloss.Style
	Debug     lipgloss.Style
}

// NewLogStyles creates compact log viewer styles
func NewLogStyles(palette Palette) LogStyles {
	return LogStyles{
		Container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Info).
			Padding(1, 2).
			MarginTop(1),

		Title: lipgloss.NewStyle().
			Foreground(palette.Info).
			Bold(true),

		Entry: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1),

		Timestamp: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		Error: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(palette.Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(palette.Info),

		Debug: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
	}
}

// DashboardStyles combines all enhanced styles for the dashboard screen
type DashboardStyles struct {
	Header HeaderStyles
	Card   CardStyles
	Logs   LogStyles
}

// NewDashboardStyles creates all enhanced styles for the dashboard
func NewDashboardStyles() DashboardStyles {
	palette := DefaultPalette()

	return DashboardStyles{
		Header: NewHeaderStyles(palette),
		Card:   NewCardStyles(palette),
		Logs:   NewLogStyles(palette),
	}
}
