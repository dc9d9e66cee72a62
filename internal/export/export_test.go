package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/position"
)

func okField(v float64) position.Field { return position.Field{Status: position.StatusOK, Value: v} }

func testSnapshot() position.Snapshot {
	return position.Snapshot{
		SubAccount:  2,
		Exists:      true,
		FetchedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Balance:     okField(1500),
		BalanceText: "$1500.00",
		Spot: []position.SpotView{{
			Symbol:             "USDC",
			Balance:            okField(1500),
			CumulativeDeposits: okField(2000),
		}},
		Perps: []position.PerpView{{
			Market:            "SOL-PERP",
			Direction:         "long",
			TotalDeposit:      okField(2000),
			CostBasis:         okField(-1000),
			PositionSizeBase:  okField(10),
			PositionSizeQuote: okField(1050),
			EntryPrice:        okField(100),
			CurrentPrice:      okField(105),
			PnL:               okField(50),
			PnLPercent:        okField(5),
		}},
		Orders: []position.OrderView{{
			OrderID: 7, Market: "SOL-PERP", MarketType: "perp", Direction: "short",
			OrderType: "limit", Size: 2, Price: 99.5, Status: "open",
		}},
	}
}

func TestSnapshotExportJSON(t *testing.T) {
	exporter := NewSnapshotExporter(zap.NewNop())
	dir := t.TempDir()

	path, err := exporter.Export(testSnapshot(), ExportOptions{Format: FormatJSON, OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "snapshot_sub2_20240501_120000.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, uint16(2), doc.SubAccount)
	assert.Equal(t, 50.0, doc.TotalPnL)
	require.Len(t, doc.Perps, 1)
	require.NotNil(t, doc.Perps[0].PnLPercent.Value)
	assert.Equal(t, 5.0, *doc.Perps[0].PnLPercent.Value)
	require.Len(t, doc.Orders, 1)
	assert.Equal(t, 99.5, doc.Orders[0].Price)
}

func TestSnapshotExportCSV(t *testing.T) {
	exporter := NewSnapshotExporter(zap.NewNop())
	out := filepath.Join(t.TempDir(), "nested", "snap.csv")

	path, err := exporter.Export(testSnapshot(), ExportOptions{Format: FormatCSV, Path: out})
	require.NoError(t, err)
	assert.Equal(t, out, path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 5) // header, balance, spot, perp, order
	assert.Equal(t, CSVHeaders(), rows[0])
	assert.Equal(t, "perp", rows[3][0])
	assert.Equal(t, "50", rows[3][7])
	assert.Equal(t, "order", rows[4][0])
	assert.Equal(t, "99.50", rows[4][12])
}

func TestWriteFailedFields(t *testing.T) {
	snap := testSnapshot()
	snap.Perps[0].PnL = position.Field{Status: position.StatusFailed, Err: errors.New("oracle stale")}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap, FormatCSV))
	assert.Contains(t, buf.String(), "N/A")

	buf.Reset()
	require.NoError(t, Write(&buf, snap, FormatJSON))
	assert.Contains(t, buf.String(), `"error": "oracle stale"`)
	assert.Contains(t, buf.String(), `"partial": true`)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
	assert.Error(t, Write(&bytes.Buffer{}, testSnapshot(), "xml"))
}

func TestJournal(t *testing.T) {
	dir := t.TempDir()
	j, err := NewJournal(dir, time.Second, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, j.Write(testSnapshot()))
	require.NoError(t, j.Write(testSnapshot()))
	require.NoError(t, j.Close())

	data, err := os.ReadFile(filepath.Join(dir, "snapshots.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &doc))
	assert.Equal(t, "$1500.00", doc.BalanceText)
}
