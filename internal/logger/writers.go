package logger

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// appendFile – файл в режиме дозаписи, буфер сбрасывается по таймеру и на Close.
// flushLocked задаёт конкретный писатель, вызывается под mu.
type appendFile struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	logger      *zap.Logger
	flushLocked func() error
	closed      bool
	written     uint64

	done chan struct{}
	wg   sync.WaitGroup
}

func openAppendFile(path string, logger *zap.Logger) (*appendFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &appendFile{
		file:   f,
		path:   path,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

func (a *appendFile) startFlushLoop(interval time.Duration) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := a.Flush(); err != nil {
					a.logger.Warn("Periodic flush failed", zap.String("file", a.path), zap.Error(err))
				}
			case <-a.done:
				return
			}
		}
	}()
}

// Flush пишет буфер на диск. После Close ничего не делает.
func (a *appendFile) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	if err := a.flushLocked(); err != nil {
		return err
	}
	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", a.path, err)
	}
	return nil
}

// Close останавливает таймер, сбрасывает остаток и закрывает файл.
func (a *appendFile) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.done)
	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	flushErr := a.flushLocked()
	closeErr := a.file.Close()
	a.logger.Debug("Append file closed", zap.String("file", a.path), zap.Uint64("written", a.written))
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", a.path, closeErr)
	}
	return nil
}

// LineWriter appends newline-terminated records, safe for concurrent use.
// Used for the JSON-lines snapshot journal.
type LineWriter struct {
	*appendFile
	buf *bufio.Writer
}

func NewLineWriter(path string, flushInterval time.Duration, logger *zap.Logger) (*LineWriter, error) {
	af, err := openAppendFile(path, logger)
	if err != nil {
		return nil, err
	}
	w := &LineWriter{appendFile: af, buf: bufio.NewWriter(af.file)}
	af.flushLocked = func() error {
		if err := w.buf.Flush(); err != nil {
			return fmt.Errorf("flush %s: %w", path, err)
		}
		return nil
	}
	af.startFlushLoop(flushInterval)
	return w, nil
}

// WriteLine дописывает строку и перевод строки.
func (w *LineWriter) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return os.ErrClosed
	}
	if _, err := w.buf.WriteString(line); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	w.written++
	return nil
}

// CSVWriter appends CSV rows. The header goes in only when the file is new or empty.
type CSVWriter struct {
	*appendFile
	csv *csv.Writer
}

func NewCSVWriter(path string, header []string, flushInterval time.Duration, logger *zap.Logger) (*CSVWriter, error) {
	af, err := openAppendFile(path, logger)
	if err != nil {
		return nil, err
	}
	stat, err := af.file.Stat()
	if err != nil {
		af.file.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	w := &CSVWriter{appendFile: af, csv: csv.NewWriter(af.file)}
	af.flushLocked = func() error {
		w.csv.Flush()
		if err := w.csv.Error(); err != nil {
			return fmt.Errorf("flush %s: %w", path, err)
		}
		return nil
	}

	if stat.Size() == 0 && len(header) > 0 {
		// заголовок не считается записью
		if err := w.csv.Write(header); err != nil {
			af.file.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := af.flushLocked(); err != nil {
			af.file.Close()
			return nil, err
		}
	}

	af.startFlushLoop(flushInterval)
	return w, nil
}

func (w *CSVWriter) WriteRecord(record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return os.ErrClosed
	}
	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.written++
	return nil
}
