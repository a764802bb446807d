package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceNameWidth is the fixed column width for service names.
const ServiceNameWidth = 20

// LogEntry represents a single log entry
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]string
}

// Logger provides leveled service logging with streaming support.
// Messages are printf-formatted when arguments are given.
type Logger struct {
	serviceName string
	version     string

	zl    *zap.Logger
	level zap.AtomicLevel

	mu          sync.RWMutex
	subscribers []chan LogEntry
}

// New creates a logger writing colored console lines to stderr.
func New(serviceName, version string) *Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encCfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + formatServiceName(name) + "]")
	}
	if isTerminal() {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)
	zl := zap.New(core).Named(serviceName)
	if version != "" {
		zl = zl.With(zap.String("version", version))
	}

	return &Logger{
		serviceName: serviceName,
		version:     version,
		zl:          zl,
		level:       level,
	}
}

// NewWithZap wraps an existing zap logger, e.g. an observer core in tests.
func NewWithZap(serviceName string, zl *zap.Logger) *Logger {
	return &Logger{
		serviceName: serviceName,
		zl:          zl.Named(serviceName),
		level:       zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// NewNop returns a logger that discards everything but still feeds subscribers.
func NewNop() *Logger {
	return &Logger{
		zl:    zap.NewNop(),
		level: zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// isTerminal checks if we're outputting to a terminal (for color support)
func isTerminal() bool {
	if os.Getenv("TERM") == "dumb" || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fileInfo, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// formatServiceName truncates and pads service name for consistent column width
func formatServiceName(serviceName string) string {
	if len(serviceName) > ServiceNameWidth {
		return serviceName[:ServiceNameWidth-1] + "…"
	}
	return fmt.Sprintf("%-*s", ServiceNameWidth, serviceName)
}

// SetLevel changes the minimum level; accepts debug, info, warn, error.
func (l *Logger) SetLevel(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.level.SetLevel(lvl)
	return nil
}

// Subscribe returns a channel to receive log entries
func (l *Logger) Subscribe() <-chan LogEntry {
	ch := make(chan LogEntry, 100)

	l.mu.Lock()
	l.subscribers = append(l.subscribers, ch)
	l.mu.Unlock()

	return ch
}

// Sync flushes buffered output.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func (l *Logger) log(level zapcore.Level, message string, fields map[string]string) {
	if l == nil {
		return
	}

	if l.level.Enabled(level) {
		if ce := l.zl.Check(level, message); ce != nil {
			zf := make([]zap.Field, 0, len(fields))
			for k, v := range fields {
				zf = append(zf, zap.String(k, v))
			}
			ce.Write(zf...)
		}
	}

	entry := LogEntry{
		Time:    time.Now(),
		Level:   level.CapitalString(),
		Message: message,
		Fields:  fields,
	}

	l.mu.RLock()
	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
			// Skip if channel is full
		}
	}
	l.mu.RUnlock()
}

func format(message string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

// Debug logs a debug message with optional formatting
func (l *Logger) Debug(message string, args ...interface{}) {
	l.log(zapcore.DebugLevel, format(message, args), nil)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(zapcore.DebugLevel, fmt.Sprintf(format, args...), nil)
}

// Info logs an info message with optional formatting
func (l *Logger) Info(message string, args ...interface{}) {
	l.log(zapcore.InfoLevel, format(message, args), nil)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(zapcore.InfoLevel, fmt.Sprintf(format, args...), nil)
}

// Warn logs a warning message with optional formatting
func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(zapcore.WarnLevel, format(message, args), nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(zapcore.WarnLevel, fmt.Sprintf(format, args...), nil)
}

// Error logs an error message with optional formatting
func (l *Logger) Error(message string, args ...interface{}) {
	l.log(zapcore.ErrorLevel, format(message, args), nil)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(zapcore.ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string) {
	l.log(zapcore.ErrorLevel, message, nil)
	_ = l.Sync()
	os.Exit(1)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.Fatal(fmt.Sprintf(format, args...))
}

// WithFields logs a message with additional fields
func (l *Logger) WithFields(fields map[string]string) *LogContext {
	return &LogContext{
		logger: l,
		fields: fields,
	}
}

// LogContext provides field-based logging
type LogContext struct {
	logger *Logger
	fields map[string]string
}

func (c *LogContext) Debug(message string) {
	c.logger.log(zapcore.DebugLevel, message, c.fields)
}

func (c *LogContext) Info(message string) {
	c.logger.log(zapcore.InfoLevel, message, c.fields)
}

func (c *LogContext) Warn(message string) {
	c.logger.log(zapcore.WarnLevel, message, c.fields)
}

func (c *LogContext) Error(message string) {
	c.logger.log(zapcore.ErrorLevel, message, c.fields)
}
