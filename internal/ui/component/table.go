package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/driftoor/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow represents a row of data
type TableRow struct {
	Data  []string
	Style lipgloss.Style
	// CellStyles переопределяет стиль отдельных ячеек (например, цвет PnL).
	CellStyles map[int]lipgloss.Style
}

// Table represents a data table component
type Table struct {
	columns     []TableColumn
	rows        []TableRow
	width       int
	height      int
	selectedRow int
	offset      int
	emptyText   string

	// Styling
	headerStyle      lipgloss.Style
	rowStyle         lipgloss.Style
	selectedRowStyle lipgloss.Style
	borderStyle      lipgloss.Style
	emptyStyle       lipgloss.Style

	// Configuration
	showBorder  bool
	showHeaders bool
	selectable  bool
	zebra       bool // Alternating row colors
}

// NewTable creates a new table component
func NewTable() *Table {
	palette := style.DefaultPalette()

	return &Table{
		columns:   make([]TableColumn, 0),
		rows:      make([]TableRow, 0),
		emptyText: "No data",

		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 1),

		rowStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1),

		selectedRowStyle: lipgloss.NewStyle().
			Foreground(palette.Background).
			Background(palette.Primary).
			Padding(0, 1),

		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted),

		emptyStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Italic(true).
			Padding(0, 1),

		showBorder:  true,
		showHeaders: true,
		selectable:  true,
	}
}

// AddColumn adds a column to the table
func (t *Table) AddColumn(header string, width int, align lipgloss.Position) *Table {
	t.columns = append(t.columns, TableColumn{
		Header: header,
		Width:  width,
		Align:  align,
	})
	return t
}

// SetEmptyText sets the text rendered when the table has no rows.
func (t *Table) SetEmptyText(text string) *Table {
	t.emptyText = text
	return t
}

// SetRows sets all table rows. The selection is kept and clamped to the new row count.
func (t *Table) SetRows(rows [][]string) *Table {
	t.rows = make([]TableRow, len(rows))
	for i, rowData := range rows {
		t.rows[i] = TableRow{
			Data:  rowData,
			Style: t.rowStyle,
		}
	}
	t.clampSelection()
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(data []string) *Table {
	t.rows = append(t.rows, TableRow{
		Data:  data,
		Style: t.rowStyle,
	})
	return t
}

// SetRowStyle sets a custom style for a specific row
func (t *Table) SetRowStyle(rowIndex int, style lipgloss.Style) *Table {
	if rowIndex >= 0 && rowIndex < len(t.rows) {
		t.rows[rowIndex].Style = style
	}
	return t
}

// SetCellStyle overrides the style of one cell. Selected rows ignore cell styles.
func (t *Table) SetCellStyle(rowIndex, colIndex int, style lipgloss.Style) *Table {
	if rowIndex < 0 || rowIndex >= len(t.rows) {
		return t
	}
	if t.rows[rowIndex].CellStyles == nil {
		t.rows[rowIndex].CellStyles = make(map[int]lipgloss.Style)
	}
	t.rows[rowIndex].CellStyles[colIndex] = style
	return t
}

// SetSize sets the table dimensions
func (t *Table) SetSize(width, height int) *Table {
	t.width = width
	t.height = height
	return t
}

// SetSelectedRow sets the currently selected row
func (t *Table) SetSelectedRow(index int) *Table {
	if index >= 0 && index < len(t.rows) {
		t.selectedRow = index
	}
	return t
}

// GetSelectedRow returns the currently selected row index
func (t *Table) GetSelectedRow() int {
	return t.selectedRow
}

// MoveUp moves selection up
func (t *Table) MoveUp() *Table {
	if t.selectable && t.selectedRow > 0 {
		t.selectedRow--
	}
	return t
}

// MoveDown moves selection down
func (t *Table) MoveDown() *Table {
	if t.selectable && t.selectedRow < len(t.rows)-1 {
		t.selectedRow++
	}
	return t
}

// SetSelectable enables/disables row selection
func (t *Table) SetSelectable(selectable bool) *Table {
	t.selectable = selectable
	return t
}

// SetShowBorder enables/disables table border
func (t *Table) SetShowBorder(show bool) *Table {
	t.showBorder = show
	return t
}

// SetShowHeaders enables/disables column headers
func (t *Table) SetShowHeaders(show bool) *Table {
	t.showHeaders = show
	return t
}

// SetZebra enables/disables alternating row colors
func (t *Table) SetZebra(zebra bool) *Table {
	t.zebra = zebra
	return t
}

// View renders the table
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return "No columns defined"
	}

	var content strings.Builder

	t.calculateColumnWidths()

	if t.showHeaders {
		var headerRow strings.Builder
		for i, col := range t.columns {
			headerRow.WriteString(t.renderCell(col.Header, col.Width, col.Align, t.headerStyle))
			if i < len(t.columns)-1 {
				headerRow.WriteString("│")
			}
		}
		content.WriteString(headerRow.String())
		content.WriteString("\n")

		var separator strings.Builder
		for i, col := range t.columns {
			separator.WriteString(strings.Repeat("─", col.Width))
			if i < len(t.columns)-1 {
				separator.WriteString("┼")
			}
		}
		content.WriteString(separator.String())
		content.WriteString("\n")
	}

	if len(t.rows) == 0 {
		content.WriteString(t.emptyStyle.Render(t.emptyText))
	}

	start, end := t.visibleRange()
	for rowIndex := start; rowIndex < end; rowIndex++ {
		row := t.rows[rowIndex]
		selected := t.selectable && rowIndex == t.selectedRow

		rowStyle := row.Style
		if selected {
			rowStyle = t.selectedRowStyle
		} else if t.zebra && rowIndex%2 == 1 {
			rowStyle = rowStyle.Background(style.DefaultPalette().BackgroundAlt)
		}

		var rowStr strings.Builder
		for i, col := range t.columns {
			cellData := ""
			if i < len(row.Data) {
				cellData = row.Data[i]
			}

			cellStyle := rowStyle
			if cs, ok := row.CellStyles[i]; ok && !selected {
				cellStyle = cs.Inherit(rowStyle)
			}
			rowStr.WriteString(t.renderCell(cellData, col.Width, col.Align, cellStyle))

			if i < len(t.columns)-1 {
				rowStr.WriteString("│")
			}
		}

		content.WriteString(rowStr.String())
		if rowIndex < end-1 {
			content.WriteString("\n")
		}
	}

	result := content.String()
	if t.showBorder {
		result = t.borderStyle.Render(result)
	}
	return result
}

// visibleRange returns the window of rows that fits into the table height,
// scrolled so that the selected row stays visible.
func (t *Table) visibleRange() (int, int) {
	capacity := t.rowCapacity()
	if capacity <= 0 || len(t.rows) <= capacity {
		t.offset = 0
		return 0, len(t.rows)
	}

	if t.selectedRow < t.offset {
		t.offset = t.selectedRow
	}
	if t.selectedRow >= t.offset+capacity {
		t.offset = t.selectedRow - capacity + 1
	}
	if t.offset > len(t.rows)-capacity {
		t.offset = len(t.rows) - capacity
	}
	return t.offset, t.offset + capacity
}

func (t *Table) rowCapacity() int {
	if t.height <= 0 {
		return 0
	}
	capacity := t.height
	if t.showHeaders {
		capacity -= 2
	}
	if t.showBorder {
		capacity -= 2
	}
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

func (t *Table) clampSelection() {
	if t.selectedRow >= len(t.rows) {
		t.selectedRow = len(t.rows) - 1
	}
	if t.selectedRow < 0 {
		t.selectedRow = 0
	}
}

// renderCell renders a single table cell
func (t *Table) renderCell(content string, width int, align lipgloss.Position, style lipgloss.Style) string {
	inner := width - style.GetHorizontalPadding()
	if inner < 1 {
		inner = 1
	}
	if r := []rune(content); len(r) > inner {
		if inner > 3 {
			content = string(r[:inner-3]) + "..."
		} else {
			content = string(r[:inner])
		}
	}

	return style.Width(width).Align(align).Render(content)
}

// calculateColumnWidths calculates column widths if not explicitly set
func (t *Table) calculateColumnWidths() {
	if t.width <= 0 {
		return
	}

	totalExplicitWidth := 0
	autoWidthColumns := 0

	for _, col := range t.columns {
		if col.Width > 0 {
			totalExplicitWidth += col.Width
		} else {
			autoWidthColumns++
		}
	}

	separatorWidth := len(t.columns) - 1
	availableWidth := t.width - totalExplicitWidth - separatorWidth

	if autoWidthColumns > 0 && availableWidth > 0 {
		autoWidth := availableWidth / autoWidthColumns
		for i := range t.columns {
			if t.columns[i].Width <= 0 {
				t.columns[i].Width = autoWidth
			}
		}
	}
}

// GetRowCount returns the number of rows
func (t *Table) GetRowCount() int {
	return len(t.rows)
}

// GetSelectedRowData returns the data of the currently selected row
func (t *Table) GetSelectedRowData() []string {
	if t.selectedRow >= 0 && t.selectedRow < len(t.rows) {
		return t.rows[t.selectedRow].Data
	}
	return nil
}

// Clear removes all rows from the table
func (t *Table) Clear() *Table {
	t.rows = make([]TableRow, 0)
	t.selectedRow = 0
	t.offset = 0
	return t
}
