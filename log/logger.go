// Package log is the kernel's structured logger, a thin layer over zap.
//
// Entries are JSON on stderr; stdout stays free for the REPL. Every entry
// carries kernel_id and session, channel loops add a component, and
// request handlers add the parent msg_type and msg_id. Ad-hoc fields are
// passed as a map and written as top-level keys.
//
// Sugar gives printf-style logging for the CLI.
package log

import (
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Context identifies the kernel instance on every log entry.
type Context struct {
	KernelID string // from the connection file name
	Session  string // the kernel's message session id
}

func (c Context) fields() []zap.Field {
	var fs []zap.Field
	if c.KernelID != "" {
		fs = append(fs, zap.String("kernel_id", c.KernelID))
	}
	if c.Session != "" {
		fs = append(fs, zap.String("session", c.Session))
	}
	return fs
}

// Logger writes structured entries.
type Logger struct {
	zap *zap.Logger
}

// ParseLevel accepts debug, info, warn and error. The empty string is info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", s)
	}
	return lvl, nil
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:     "timestamp",
	LevelKey:    "level",
	MessageKey:  "message",
	EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
	EncodeLevel: zapcore.LowercaseLevelEncoder,
}

// NewLogger logs to stderr.
func NewLogger(kc Context, level zapcore.Level) *Logger {
	return NewLoggerWithWriter(kc, level, os.Stderr)
}

// NewLoggerWithWriter logs to w.
func NewLoggerWithWriter(kc Context, level zapcore.Level, w io.Writer) *Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(w), level)
	return &Logger{zap: zap.New(core).With(kc.fields()...)}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Named tags entries with a component (shell, control, heartbeat, iopub,
// notifier, cli).
func (l *Logger) Named(component string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("component", component))}
}

// ForRequest tags entries with the request being handled.
func (l *Logger) ForRequest(msgType, msgID string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("msg_type", msgType), zap.String("msg_id", msgID))}
}

// Debug, Info, Warn and Error log message with fields as top-level keys,
// in key order.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.log(zapcore.DebugLevel, message, fields)
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.log(zapcore.InfoLevel, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]any) {
	l.log(zapcore.WarnLevel, message, fields)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.log(zapcore.ErrorLevel, message, fields)
}

func (l *Logger) log(level zapcore.Level, message string, fields map[string]any) {
	ce := l.zap.Check(level, message)
	if ce == nil {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	zf := make([]zap.Field, len(keys))
	for i, k := range keys {
		zf[i] = zap.Any(k, fields[k])
	}
	ce.Write(zf...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// SugaredLogger logs printf-style.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// Sugar returns a printf-style view of l.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// With adds loosely typed key-value pairs.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
