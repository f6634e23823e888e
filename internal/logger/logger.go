package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message.
// The order here defines their numerical value (TRACE=0, DEBUG=1, etc.)
// A logger set to INFO will show INFO, WARN, ERROR, SUCCESS, but NOT DEBUG.
// A logger set to TRACE will show ALL levels.
type LogLevel int

const (
	TRACE   LogLevel = iota // 0 - Most verbose, for things like every rendered batch document
	DEBUG                   // 1 - Detailed debugging information
	INFO                    // 2 - General information
	WARN                    // 3 - Warnings
	ERROR                   // 4 - Errors
	SUCCESS                 // 5 - Success messages (e.g., a match on an aliased result)
)

// traceLevel sits below zap's DebugLevel so trace lines can be told apart in the output.
const traceLevel = zapcore.DebugLevel - 1

// Logger wraps a zap logger behind the level-named, printf-style API used across the tool.
type Logger struct {
	base     *zap.Logger
	success  *zap.Logger
	mu       sync.Mutex // Guards minLevel.
	minLevel LogLevel
}

// NewLogger creates a Logger writing TRACE..INFO and SUCCESS to stdout and WARN/ERROR to stderr.
func NewLogger(minLevel LogLevel) *Logger {
	return New(os.Stdout, os.Stderr, minLevel)
}

// New creates a Logger with explicit writers for regular and error output.
func New(out, errOut io.Writer, minLevel LogLevel) *Logger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05"),
		EncodeLevel:      encodeLevel,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       encodeName,
		ConsoleSeparator: " ",
	}

	lowPriority := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= traceLevel && l < zapcore.WarnLevel
	})
	highPriority := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.WarnLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(out), lowPriority),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(errOut), highPriority),
	)
	base := zap.New(core)

	return &Logger{
		base:     base,
		success:  base.Named("SUCCESS"),
		minLevel: minLevel,
	}
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == traceLevel {
		enc.AppendString("[TRACE]")
		return
	}
	enc.AppendString("[" + l.CapitalString() + "]")
}

func encodeName(name string, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + name + "]")
}

// log emits a message if its level is greater than or equal to the logger's minLevel.
func (l *Logger) log(level LogLevel, target *zap.Logger, zl zapcore.Level, format string, v ...interface{}) {
	l.mu.Lock()
	enabled := level >= l.minLevel
	l.mu.Unlock()
	if !enabled {
		return
	}
	if ce := target.Check(zl, fmt.Sprintf(format, v...)); ce != nil {
		ce.Write()
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, v ...interface{}) {
	l.log(INFO, l.base, zapcore.InfoLevel, format, v...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, v ...interface{}) {
	l.log(WARN, l.base, zapcore.WarnLevel, format, v...)
}

// Error logs an error message.
func (l *Logger) Error(format string, v ...interface{}) {
	l.log(ERROR, l.base, zapcore.ErrorLevel, format, v...)
}

// Debug logs a debug message. Only active if minLevel is DEBUG or lower.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log(DEBUG, l.base, zapcore.DebugLevel, format, v...)
}

// Trace logs a trace message. Only active if minLevel is TRACE.
func (l *Logger) Trace(format string, v ...interface{}) {
	l.log(TRACE, l.base, traceLevel, format, v...)
}

// Success logs a success message, typically for a matched operation result.
func (l *Logger) Success(format string, v ...interface{}) {
	l.log(SUCCESS, l.success, zapcore.InfoLevel, format, v...)
}

// SetMinLevel sets the minimum logging level.
func (l *Logger) SetMinLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// Nop returns a Logger that discards everything. Handy in tests.
func Nop() *Logger {
	return New(io.Discard, io.Discard, SUCCESS+1)
}
