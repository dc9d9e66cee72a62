package monitor

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/logger"
	"github.com/rovshanmuradov/driftoor/internal/position"
)

// Sample – одна точка истории PnL.
type Sample struct {
	Timestamp  time.Time
	SubAccount uint16
	Balance    float64
	TotalPnL   float64
	Partial    bool
}

// ToCSV converts sample to CSV record
func (s Sample) ToCSV() []string {
	return []string{
		s.Timestamp.Format(time.RFC3339),
		strconv.FormatUint(uint64(s.SubAccount), 10),
		strconv.FormatFloat(s.Balance, 'f', 2, 64),
		strconv.FormatFloat(s.TotalPnL, 'f', 2, 64),
		strconv.FormatBool(s.Partial),
	}
}

// CSVHeaders returns CSV headers for history samples
func CSVHeaders() []string {
	return []string{"timestamp", "subaccount", "balance", "total_pnl", "partial"}
}

// PnLHistory keeps recent PnL samples per subaccount and optionally mirrors them to CSV.
type PnLHistory struct {
	mu         sync.RWMutex
	csvWriter  *logger.CSVWriter
	samples    map[uint16][]Sample
	maxSamples int
	logger     *zap.Logger

	totalSamples int
}

// NewPnLHistory создаёт историю. Пустой logDir отключает CSV.
func NewPnLHistory(logDir string, maxSamples int, zapLogger *zap.Logger) (*PnLHistory, error) {
	if maxSamples <= 0 {
		maxSamples = 120
	}
	h := &PnLHistory{
		samples:    make(map[uint16][]Sample),
		maxSamples: maxSamples,
		logger:     zapLogger,
	}
	if logDir == "" {
		return h, nil
	}

	filename := fmt.Sprintf("pnl_%s.csv", time.Now().Format("20060102_150405"))
	csvPath := filepath.Join(logDir, "history", filename)

	csvWriter, err := logger.NewCSVWriter(csvPath, CSVHeaders(), 30*time.Second, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}
	h.csvWriter = csvWriter

	zapLogger.Info("PnL history initialized",
		zap.String("csv_file", csvPath),
		zap.Int("max_memory_samples", maxSamples))
	return h, nil
}

// Record добавляет точку из снимка. Снимки несуществующих аккаунтов пропускаются.
func (h *PnLHistory) Record(snap position.Snapshot) {
	if !snap.Exists {
		return
	}
	s := Sample{
		Timestamp:  snap.FetchedAt,
		SubAccount: snap.SubAccount,
		Balance:    snap.Balance.Value,
		TotalPnL:   snap.TotalPnL(),
		Partial:    snap.Partial(),
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	samples := h.samples[s.SubAccount]
	if len(samples) >= h.maxSamples {
		samples = samples[1:]
	}
	h.samples[s.SubAccount] = append(samples, s)
	h.totalSamples++

	if h.csvWriter != nil {
		if err := h.csvWriter.WriteRecord(s.ToCSV()); err != nil {
			h.logger.Error("Failed to write PnL sample", zap.Error(err))
		}
	}
}

// Samples returns recent samples for the subaccount, oldest first.
func (h *PnLHistory) Samples(subAccount uint16, limit int) []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	samples := h.samples[subAccount]
	if limit <= 0 || limit > len(samples) {
		limit = len(samples)
	}
	out := make([]Sample, limit)
	copy(out, samples[len(samples)-limit:])
	return out
}

// PnLSeries – значения PnL для графика.
func (h *PnLHistory) PnLSeries(subAccount uint16, limit int) []float64 {
	samples := h.Samples(subAccount, limit)
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.TotalPnL
	}
	return out
}

// Flush forces a write of any buffered samples
func (h *PnLHistory) Flush() error {
	if h.csvWriter == nil {
		return nil
	}
	return h.csvWriter.Flush()
}

// Close closes the history and ensures all data is written
func (h *PnLHistory) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Info("Closing PnL history", zap.Int("total_samples", h.totalSamples))
	if h.csvWriter == nil {
		return nil
	}
	return h.csvWriter.Close()
}
