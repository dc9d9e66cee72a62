package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/position"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat принимает "json" или "csv".
func ParseFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case FormatCSV, FormatJSON:
		return ExportFormat(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format    ExportFormat
	OutputDir string
	// Path overrides the generated file name when set.
	Path string
}

// SnapshotExporter writes dashboard snapshots to files
type SnapshotExporter struct {
	logger *zap.Logger
}

// NewSnapshotExporter creates a new snapshot exporter
func NewSnapshotExporter(logger *zap.Logger) *SnapshotExporter {
	return &SnapshotExporter{logger: logger}
}

// Export writes the snapshot and returns the output path.
func (se *SnapshotExporter) Export(snap position.Snapshot, options ExportOptions) (string, error) {
	outputPath := options.Path
	if outputPath == "" {
		outputPath = filepath.Join(options.OutputDir, se.generateFilename(snap, options))
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := Write(file, snap, options.Format); err != nil {
		return "", err
	}

	se.logger.Info("Snapshot exported",
		zap.String("file", outputPath),
		zap.Uint16("subaccount", snap.SubAccount),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// Write encodes the snapshot to w in the given format.
func Write(w io.Writer, snap position.Snapshot, format ExportFormat) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, snap)
	case FormatJSON:
		return writeJSON(w, snap)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// generateFilename creates a filename based on snapshot and options
func (se *SnapshotExporter) generateFilename(snap position.Snapshot, options ExportOptions) string {
	timestamp := snap.FetchedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	return fmt.Sprintf("snapshot_sub%d_%s.%s", snap.SubAccount, timestamp.Format("20060102_150405"), options.Format)
}

func writeJSON(w io.Writer, snap position.Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(NewDocument(snap)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// CSVHeaders returns CSV headers for snapshot rows
func CSVHeaders() []string {
	return []string{
		"kind", "market", "direction", "size", "notional", "entry_price",
		"current_price", "pnl", "pnl_percent", "balance", "order_id", "order_type", "price", "status",
	}
}

func writeCSV(w io.Writer, snap position.Snapshot) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	rows := [][]string{{"balance", "USDC", "", "", "", "", "", "", "", cell(snap.Balance), "", "", "", status(snap.Balance)}}
	for _, s := range snap.Spot {
		direction := "deposit"
		if s.IsBorrow {
			direction = "borrow"
		}
		rows = append(rows, []string{"spot", s.Symbol, direction, "", "", "", "", "", "", cell(s.Balance), "", "", "", status(s.Balance)})
	}
	for _, p := range snap.Perps {
		rows = append(rows, []string{
			"perp", p.Market, p.Direction,
			cell(p.PositionSizeBase), cell(p.PositionSizeQuote), cell(p.EntryPrice),
			cell(p.CurrentPrice), cell(p.PnL), cell(p.PnLPercent), cell(p.TotalDeposit),
			"", "", "", status(p.PnL),
		})
	}
	for _, o := range snap.Orders {
		rows = append(rows, []string{
			"order", o.Market, o.Direction, num(o.Size, 3), "", "", "", "", "", "",
			strconv.FormatUint(uint64(o.OrderID), 10), o.OrderType, num(o.Price, 2), o.Status,
		})
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

func num(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func cell(f position.Field) string {
	switch f.Status {
	case position.StatusOK:
		return strconv.FormatFloat(f.Value, 'f', -1, 64)
	case position.StatusFailed:
		return "N/A"
	default:
		return ""
	}
}

func status(f position.Field) string { return f.Status.String() }
