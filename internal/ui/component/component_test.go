package component

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/rovshanmuradov/driftoor/internal/blockchain/solbc"
)

func TestTableSelectionClampedOnShrink(t *testing.T) {
	tbl := NewTable().AddColumn("#", 3, lipgloss.Left)
	tbl.SetRows([][]string{{"0"}, {"1"}, {"2"}})
	tbl.MoveDown().MoveDown()
	assert.Equal(t, 2, tbl.GetSelectedRow())

	tbl.SetRows([][]string{{"0"}})
	assert.Equal(t, 0, tbl.GetSelectedRow())
	assert.Equal(t, []string{"0"}, tbl.GetSelectedRowData())

	tbl.SetRows(nil)
	assert.Nil(t, tbl.GetSelectedRowData())
}

func TestTableScrollsToSelection(t *testing.T) {
	tbl := NewTable().
		AddColumn("Row", 8, lipgloss.Left).
		SetShowBorder(false).
		SetShowHeaders(false)
	tbl.SetSize(20, 3)

	rows := make([][]string, 10)
	for i := range rows {
		rows[i] = []string{"row-" + string(rune('a'+i))}
	}
	tbl.SetRows(rows)

	view := tbl.View()
	assert.Contains(t, view, "row-a")
	assert.NotContains(t, view, "row-d")

	for i := 0; i < 6; i++ {
		tbl.MoveDown()
	}
	view = tbl.View()
	assert.Contains(t, view, "row-g")
	assert.NotContains(t, view, "row-a")
	assert.Len(t, strings.Split(view, "\n"), 3)
}

func TestTableEmptyText(t *testing.T) {
	tbl := NewTable().AddColumn("Market", 10, lipgloss.Left).SetEmptyText("No perp positions")
	assert.Contains(t, tbl.View(), "No perp positions")
}

func TestTableTruncatesRunes(t *testing.T) {
	tbl := NewTable().AddColumn("Name", 6, lipgloss.Left).SetShowBorder(false).SetShowHeaders(false)
	tbl.SetRows([][]string{{"→→→→→→→→→"}})
	assert.Contains(t, tbl.View(), "→...")
	assert.NotContains(t, tbl.View(), "→→")
}

func TestPnLGaugeLabel(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{5, "+5.00% ↗"},
		{1.5, "+1.50% ↑"},
		{0, "0.00% →"},
		{-2.25, "-2.25% ↓"},
		{-12, "-12.00% ↘"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewPnLGauge(10).SetValue(tt.value).Label())
	}
}

func TestPnLGaugeBar(t *testing.T) {
	g := NewPnLGauge(10)
	assert.Equal(t, strings.Repeat("▁", 10), g.Bar())

	g.SetValue(40) // за пределами шкалы
	assert.Equal(t, strings.Repeat("█", 10), g.Bar())

	g.SetValue(0.1)
	assert.Equal(t, 10, len([]rune(g.Bar())))
}

func TestRPCStatusFromStats(t *testing.T) {
	assert.False(t, RPCStatusFromStats(nil).Known)

	st := RPCStatusFromStats([]solbc.NodeStats{
		{URL: "a", SuccessCount: 0, ErrorCount: 3, Latency: 5 * time.Millisecond},
		{URL: "b", SuccessCount: 10, ErrorCount: 1, Latency: 80 * time.Millisecond},
		{URL: "c", SuccessCount: 4, Latency: 40 * time.Millisecond},
	})
	assert.True(t, st.Known)
	assert.True(t, st.Connected)
	assert.Equal(t, 40*time.Millisecond, st.Latency)
	assert.Equal(t, uint64(4), st.Errors)

	down := RPCStatusFromStats([]solbc.NodeStats{{URL: "a", ErrorCount: 2}})
	assert.True(t, down.Known)
	assert.False(t, down.Connected)
}

func TestStatusHeaderView(t *testing.T) {
	h := NewStatusHeader()
	assert.Contains(t, h.View(), "not connected")

	h.SetWallet("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	h.SetPhase("subscribed")
	h.SetSubAccount("#1 Main")
	h.SetTotalPnL(-12.5)

	view := h.View()
	assert.Contains(t, view, "9xQe...VFin")
	assert.Contains(t, view, "subscribed")
	assert.Contains(t, view, "#1 Main")
	assert.Contains(t, view, "-$12.50")
}

func TestPnLChart(t *testing.T) {
	c := NewPnLChart(60, 10)
	assert.Contains(t, c.View(), "No PnL history yet")

	c.SetData([]float64{1, 2, 3})
	assert.Equal(t, 3, c.Len())
	view := c.View()
	assert.Contains(t, view, "last 3 samples")
	assert.Contains(t, view, "$3.00")

	c.SetData([]float64{4})
	assert.NotPanics(t, func() { _ = c.View() })
}

func TestLogFilterAllows(t *testing.T) {
	f := DefaultLogFilter()
	assert.True(t, f.Allows("ERROR"))
	assert.True(t, f.Allows("warn"))
	assert.True(t, f.Allows("info"))
	assert.False(t, f.Allows("debug"))

	f = LogFilter{ShowError: true}
	assert.False(t, f.Allows("info"))
	assert.True(t, f.Allows("fatal"))
}
