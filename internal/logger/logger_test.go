package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogBufferWriteParsesZapJSON(t *testing.T) {
	buffer, err := NewLogBuffer(10, filepath.Join(t.TempDir(), "spill.log"), zap.NewNop())
	require.NoError(t, err)
	defer buffer.Close()

	n, err := buffer.Write([]byte(`{"level":"warn","time":"2026-01-02T03:04:05.000Z","msg":"subaccount missing","index":3}` + "\n"))
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	logs := buffer.GetRecentLogs(5)
	require.Len(t, logs, 1)
	assert.Equal(t, "warn", logs[0].Level)
	assert.Equal(t, "subaccount missing", logs[0].Message)
	assert.Equal(t, 2026, logs[0].Timestamp.Year())
	assert.EqualValues(t, 3, logs[0].Fields["index"])
}

func TestLogBufferWriteKeepsPlainText(t *testing.T) {
	buffer, err := NewLogBuffer(10, filepath.Join(t.TempDir(), "spill.log"), zap.NewNop())
	require.NoError(t, err)
	defer buffer.Close()

	_, err = buffer.Write([]byte("plain line\n"))
	require.NoError(t, err)

	logs := buffer.GetRecentLogs(5)
	require.Len(t, logs, 1)
	assert.Equal(t, "plain line", logs[0].Message)
}

func TestTUILoggerWritesToBufferAndFile(t *testing.T) {
	dir := t.TempDir()
	buffer, err := NewLogBuffer(50, filepath.Join(dir, "spill.log"), zap.NewNop())
	require.NoError(t, err)
	defer buffer.Close()

	logFile := filepath.Join(dir, "logs", "driftoor.log")
	log, err := CreateTUILoggerWithBuffer(false, buffer, DefaultFileConfig(logFile))
	require.NoError(t, err)

	log.Info("Connected", zap.String("authority", "abc"))
	log.Debug("hidden")
	require.NoError(t, log.Sync())

	logs := buffer.GetRecentLogs(10)
	require.Len(t, logs, 1)
	assert.Equal(t, "Connected", logs[0].Message)
	assert.Equal(t, "abc", logs[0].Fields["authority"])

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Connected"`)
}

func TestTUILoggerRequiresBuffer(t *testing.T) {
	_, err := CreateTUILoggerWithBuffer(true, nil, nil)
	assert.Error(t, err)
}

func TestConsoleLoggerFiltersFieldsUnlessDebug(t *testing.T) {
	var out bytes.Buffer
	log, err := New(Options{Console: &out})
	require.NoError(t, err)
	log.Info("Snapshot exported", zap.String("path", "/tmp/x.json"))
	require.NoError(t, log.Sync())
	assert.Contains(t, out.String(), "Snapshot exported")
	assert.NotContains(t, out.String(), "/tmp/x.json")

	out.Reset()
	log, err = New(Options{Console: &out, Debug: true})
	require.NoError(t, err)
	log.Debug("Snapshot exported", zap.String("path", "/tmp/x.json"))
	require.NoError(t, log.Sync())
	assert.True(t, strings.Contains(out.String(), "/tmp/x.json"))
}

func TestNewWithoutSinksIsNop(t *testing.T) {
	log, err := New(Options{})
	require.NoError(t, err)
	assert.NotNil(t, log)
	log.Info("dropped")
}

func TestWithOperationAddsCorrelation(t *testing.T) {
	buffer, err := NewLogBuffer(10, filepath.Join(t.TempDir(), "spill.log"), zap.NewNop())
	require.NoError(t, err)
	defer buffer.Close()

	log, err := New(Options{Buffer: buffer})
	require.NoError(t, err)
	WithOperation(log, "connect").Info("start")

	logs := buffer.GetRecentLogs(1)
	require.Len(t, logs, 1)
	assert.Equal(t, "connect", logs[0].Fields["operation"])
	assert.NotEmpty(t, logs[0].Fields["correlation_id"])
}
