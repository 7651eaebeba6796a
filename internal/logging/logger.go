package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/cartographer/internal/config"
)

// Logger appends structured JSON lines to .cartographer/logs/cartographer.log
// so a mission can be inspected after the run, and optionally mirrors them to
// a console writer.
type Logger struct {
	file  *os.File
	sugar *zap.SugaredLogger
}

// Option customizes logger construction.
type Option func(*options)

type options struct {
	console      io.Writer
	consoleLevel zapcore.Level
}

// WithConsole mirrors entries at or above level to w in a human format.
func WithConsole(w io.Writer, level zapcore.Level) Option {
	return func(o *options) {
		o.console = w
		o.consoleLevel = level
	}
}

// New creates (or reuses) the log file for the current project directory.
func New(projectDir string, opts ...Option) (*Logger, error) {
	o := options{consoleLevel: zapcore.InfoLevel}
	for _, opt := range opts {
		opt(&o)
	}
	logDir := filepath.Join(projectDir, config.CartographerDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "cartographer.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), zapcore.DebugLevel),
	}
	if o.console != nil {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(o.console), o.consoleLevel))
	}
	logger := zap.New(zapcore.NewTee(cores...))
	return &Logger{file: f, sugar: logger.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Sugar exposes the structured logger for packages that take one.
func (l *Logger) Sugar() *zap.SugaredLogger {
	if l == nil || l.sugar == nil {
		return zap.NewNop().Sugar()
	}
	return l.sugar
}

// Close flushes buffered entries and releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = l.sugar.Sync()
	return l.file.Close()
}

// Printf writes a single informational line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Info(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}
