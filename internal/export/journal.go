package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/logger"
	"github.com/rovshanmuradov/driftoor/internal/position"
)

// Journal appends every snapshot as one JSON line.
type Journal struct {
	writer *logger.LineWriter
}

// NewJournal opens <dir>/snapshots.jsonl for appending.
func NewJournal(dir string, flushInterval time.Duration, zapLogger *zap.Logger) (*Journal, error) {
	w, err := logger.NewLineWriter(filepath.Join(dir, "snapshots.jsonl"), flushInterval, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("open snapshot journal: %w", err)
	}
	return &Journal{writer: w}, nil
}

func (j *Journal) Write(snap position.Snapshot) error {
	line, err := json.Marshal(NewDocument(snap))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return j.writer.WriteLine(string(line))
}

func (j *Journal) Close() error { return j.writer.Close() }
