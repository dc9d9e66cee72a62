package screen

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/logger"
	"github.com/rovshanmuradov/driftoor/internal/ui"
)

func newLogBuffer(t *testing.T) *logger.LogBuffer {
	t.Helper()
	buf, err := logger.NewLogBuffer(100, filepath.Join(t.TempDir(), "spill.log"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = buf.Close() })

	require.NoError(t, buf.Add("info", "Positions refreshed", map[string]interface{}{"sub_account": 0}))
	require.NoError(t, buf.Add("warn", "Slow RPC node", nil))
	require.NoError(t, buf.Add("error", "Subscribe failed", nil))
	require.NoError(t, buf.Add("debug", "Tick", nil))
	return buf
}

func TestLogsScreenFilters(t *testing.T) {
	s := NewLogsScreen(newLogBuffer(t))
	s.SetSize(120, 40)
	s.Init()

	// debug скрыт по умолчанию
	assert.Len(t, s.filteredLogs, 3)
	view := s.View()
	assert.Contains(t, view, "sub_account=0")
	assert.NotContains(t, view, "Tick")

	s.Update(keyRunes("3"))
	require.Len(t, s.filteredLogs, 1)
	assert.Equal(t, "Subscribe failed", s.filteredLogs[0].Message)
	assert.Contains(t, s.View(), "Filter: error")

	s.Update(keyRunes("2"))
	assert.Len(t, s.filteredLogs, 2)

	s.Update(keyRunes("D"))
	s.Update(keyRunes("0"))
	assert.Len(t, s.filteredLogs, 4)
}

func TestLogsScreenTailMode(t *testing.T) {
	buf := newLogBuffer(t)
	s := NewLogsScreen(buf)
	s.SetSize(120, 40)
	s.Init()
	assert.Equal(t, len(s.filteredLogs)-1, s.table.GetSelectedRow())

	s.Update(keyRunes("k"))
	assert.False(t, s.tailMode)

	require.NoError(t, buf.Add("info", "New entry", nil))
	s.Update(ui.TickMsg{})
	assert.Len(t, s.filteredLogs, 4)
	assert.NotEqual(t, 3, s.table.GetSelectedRow())

	s.Update(keyRunes("t"))
	assert.True(t, s.tailMode)
	assert.Equal(t, 3, s.table.GetSelectedRow())
}

func TestLogsScreenWithoutBuffer(t *testing.T) {
	s := NewLogsScreen(nil)
	s.SetSize(80, 20)
	s.Init()
	assert.Contains(t, s.View(), "Log buffer is not available")
}

func TestFormatFields(t *testing.T) {
	assert.Equal(t, "", formatFields(nil))
	assert.Equal(t, " a=1 b=x", formatFields(map[string]interface{}{"b": "x", "a": 1}))
}
