package component

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/driftoor/internal/ui/style"
)

// PnLGauge renders a PnL percentage as a bar plus a signed label.
type PnLGauge struct {
	value    float64 // PnL percentage
	width    int
	maxScale float64 // |value| при котором шкала заполнена

	// Thresholds for the strong arrows
	profitThreshold float64
	lossThreshold   float64
}

// NewPnLGauge creates a new PnL gauge component
func NewPnLGauge(width int) *PnLGauge {
	return &PnLGauge{
		width:           width,
		maxScale:        20.0,
		profitThreshold: 5.0,
		lossThreshold:   -5.0,
	}
}

// SetValue sets the PnL percentage value
func (p *PnLGauge) SetValue(value float64) *PnLGauge {
	p.value = value
	return p
}

// SetWidth sets the gauge width
func (p *PnLGauge) SetWidth(width int) *PnLGauge {
	p.width = width
	return p
}

// Color returns the color for the current value
func (p *PnLGauge) Color() lipgloss.Color {
	palette := style.DefaultPalette()
	switch {
	case p.value > 0:
		return palette.Success
	case p.value < 0:
		return palette.Error
	default:
		return palette.TextMuted
	}
}

// Arrow returns the trend arrow for the current value
func (p *PnLGauge) Arrow() string {
	switch {
	case p.value >= p.profitThreshold:
		return "↗"
	case p.value <= p.lossThreshold:
		return "↘"
	case p.value > 0:
		return "↑"
	case p.value < 0:
		return "↓"
	default:
		return "→"
	}
}

// Label renders "+5.00% ↑" without styling; table cells color it themselves.
func (p *PnLGauge) Label() string {
	prefix := ""
	if p.value > 0 {
		prefix = "+"
	} else if p.value < 0 {
		prefix = "-"
	}
	return fmt.Sprintf("%s%.2f%% %s", prefix, math.Abs(p.value), p.Arrow())
}

// Bar returns the unstyled gauge bar
func (p *PnLGauge) Bar() string {
	if p.width <= 0 {
		return ""
	}

	chars := []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

	absValue := math.Abs(p.value)
	intensity := math.Min(absValue/p.maxScale, 1.0)

	charIndex := int(intensity * float64(len(chars)-1))
	filledWidth := int(intensity * float64(p.width))
	if filledWidth < 1 && absValue > 0 {
		filledWidth = 1
	}

	var result strings.Builder
	for i := 0; i < p.width; i++ {
		if i < filledWidth {
			result.WriteString(chars[charIndex])
		} else {
			result.WriteString("▁")
		}
	}
	return result.String()
}

// View renders the colored bar and label
func (p *PnLGauge) View() string {
	st := lipgloss.NewStyle().Foreground(p.Color())
	return st.Render(p.Bar()) + " " + st.Bold(true).Render(p.Label())
}
