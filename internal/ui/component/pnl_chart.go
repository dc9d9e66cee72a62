package component

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/rovshanmuradov/driftoor/internal/format"
	"github.com/rovshanmuradov/driftoor/internal/ui/style"
)

const (
	minChartHeight = 3
	chartMargin    = 10 // подписи оси Y
)

// PnLChart – график истории суммарного PnL активного субаккаунта.
type PnLChart struct {
	data    []float64
	width   int
	height  int
	caption string

	containerStyle lipgloss.Style
	emptyStyle     lipgloss.Style
}

// NewPnLChart creates a chart of the given size
func NewPnLChart(width, height int) *PnLChart {
	palette := style.DefaultPalette()
	return &PnLChart{
		width:  width,
		height: height,
		containerStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 1),
		emptyStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Italic(true),
	}
}

// SetData replaces the series; the slice is copied.
func (c *PnLChart) SetData(data []float64) *PnLChart {
	c.data = append(c.data[:0], data...)
	return c
}

// SetCaption sets the text under the chart
func (c *PnLChart) SetCaption(caption string) *PnLChart {
	c.caption = caption
	return c
}

// SetSize sets the outer chart size
func (c *PnLChart) SetSize(width, height int) *PnLChart {
	c.width = width
	c.height = height
	return c
}

// Len returns the number of points
func (c *PnLChart) Len() int { return len(c.data) }

// View renders the chart
func (c *PnLChart) View() string {
	if len(c.data) == 0 {
		return c.containerStyle.Render(c.emptyStyle.Render("No PnL history yet"))
	}

	series := c.data
	if len(series) == 1 {
		// asciigraph нужен хотя бы отрезок
		series = []float64{series[0], series[0]}
	}

	height := c.height - 3 // border + caption
	if height < minChartHeight {
		height = minChartHeight
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(c.seriesColor()),
	}
	if w := c.width - chartMargin - 4; w > 0 {
		opts = append(opts, asciigraph.Width(w))
	}
	caption := c.caption
	if caption == "" {
		caption = fmt.Sprintf("PnL, last %d samples (now %s)", len(c.data), format.FormatUSD(c.data[len(c.data)-1]))
	}
	opts = append(opts, asciigraph.Caption(caption))

	return c.containerStyle.Render(asciigraph.Plot(series, opts...))
}

func (c *PnLChart) seriesColor() asciigraph.AnsiColor {
	last := c.data[len(c.data)-1]
	switch {
	case last > 0:
		return asciigraph.Green
	case last < 0:
		return asciigraph.Red
	default:
		return asciigraph.Default
	}
}
