package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the logging interface used throughout the application
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	SetLevel(level zapcore.Level)
	GetLevel() zapcore.Level
	EnableHTTPLogging()
	DisableHTTPLogging()
	IsHTTPLoggingEnabled() bool
}

// Format selects the encoder used for log lines
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ZapLogger wraps a zap SugaredLogger to implement our Logger interface.
// Args are alternating key/value pairs, as with zap's Infow family.
type ZapLogger struct {
	sugar       *zap.SugaredLogger
	level       zap.AtomicLevel
	httpLogging atomic.Bool
}

// New creates a new ZapLogger writing console lines to stdout at info level
func New() *ZapLogger {
	return NewWithLevel(zapcore.InfoLevel)
}

// NewWithLevel creates a new console ZapLogger with a specific level
func NewWithLevel(level zapcore.Level) *ZapLogger {
	return NewWithWriter(os.Stdout, level, FormatConsole)
}

// NewWithWriter creates a ZapLogger writing to w with the given level and format
func NewWithWriter(w io.Writer, level zapcore.Level, format Format) *ZapLogger {
	atomicLevel := zap.NewAtomicLevelAt(level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if format == FormatJSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), atomicLevel)
	return &ZapLogger{
		sugar: zap.New(core).Sugar(),
		level: atomicLevel,
	}
}

// ParseLevel converts a string log level to a zap level.
// Accepts: debug, info, warn, error (case-insensitive).
// Returns zapcore.InfoLevel if the level is not recognized.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseFormat converts a string to a Format, defaulting to console
func ParseFormat(format string) Format {
	if strings.EqualFold(format, string(FormatJSON)) {
		return FormatJSON
	}
	return FormatConsole
}

func (l *ZapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *ZapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *ZapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *ZapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

// Sync flushes buffered log entries
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// SetLevel changes the logging level dynamically
func (l *ZapLogger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

// GetLevel returns the current logging level
func (l *ZapLogger) GetLevel() zapcore.Level {
	return l.level.Level()
}

// EnableHTTPLogging enables HTTP request logging
func (l *ZapLogger) EnableHTTPLogging() {
	l.httpLogging.Store(true)
}

// DisableHTTPLogging disables HTTP request logging
func (l *ZapLogger) DisableHTTPLogging() {
	l.httpLogging.Store(false)
}

// IsHTTPLoggingEnabled returns whether HTTP logging is enabled
func (l *ZapLogger) IsHTTPLoggingEnabled() bool {
	return l.httpLogging.Load()
}

// Nop returns a logger that discards everything, for tests
func Nop() *ZapLogger {
	return NewWithWriter(io.Discard, zapcore.ErrorLevel+1, FormatConsole)
}
