// internal/logger/pretty.go
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// Options собирает ядра логгера. Пустое поле отключает соответствующий вывод.
type Options struct {
	Debug   bool
	Console io.Writer   // человекочитаемый вывод
	Buffer  *LogBuffer  // кольцевой буфер для экрана логов TUI
	File    *FileConfig // JSON-файл с ротацией
}

func prettyEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   customCallerEncoder,
	}
}

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(prettyEncoderConfig())
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

// customTimeEncoder formats time in a readable way
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// customCallerEncoder hides caller information for cleaner logs
func customCallerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
}

// New строит логгер из набора ядер.
func New(opts Options) (*zap.Logger, error) {
	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}

	var cores []zapcore.Core
	if opts.Console != nil {
		var console zapcore.Core = zapcore.NewCore(
			PrettyEncoder(),
			zapcore.AddSync(zapcore.Lock(zapcore.AddSync(opts.Console))),
			level,
		)
		// в обычном режиме поля скрыты, в debug – видны
		if !opts.Debug {
			console = &FieldFilterCore{core: console}
		}
		cores = append(cores, console)
	}
	if opts.Buffer != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(bufferEncoderConfig()),
			zapcore.AddSync(opts.Buffer),
			level,
		))
	}
	if opts.File != nil {
		core, err := newFileCore(opts.File, level)
		if err != nil {
			return nil, err
		}
		cores = append(cores, core)
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.FatalLevel)), nil
}

// CreatePrettyLogger creates a logger with user-friendly output on stderr
func CreatePrettyLogger(debug bool) (*zap.Logger, error) {
	return New(Options{Debug: debug, Console: os.Stderr})
}

// FieldFilterCore wraps a zapcore.Core to filter out unwanted fields
type FieldFilterCore struct {
	core zapcore.Core
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &FieldFilterCore{core: c.core.With(nil)}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	// только сообщение, без полей
	return c.core.Write(entry, nil)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}

func bufferEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// CreateTUILoggerWithBuffer creates a TUI-compatible logger: buffer plus optional file, never stdout.
func CreateTUILoggerWithBuffer(debug bool, buffer *LogBuffer, file *FileConfig) (*zap.Logger, error) {
	if buffer == nil {
		return nil, fmt.Errorf("buffer is required for TUI logger")
	}
	return New(Options{Debug: debug, Buffer: buffer, File: file})
}

// WithOperation создает логгер для конкретной операции
func WithOperation(l *zap.Logger, operation string) *zap.Logger {
	return l.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.New().String()),
	)
}
