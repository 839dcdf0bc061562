package companycam

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the minimal leveled logging interface the client writes debug
// output through. Key/value pairs alternate like slog's variadic form.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// SimpleLogger writes human-readable lines to stderr. Useful for examples and
// local debugging; production callers usually plug in NewZerologLogger.
type SimpleLogger struct {
	logger *log.Logger
}

// NewSimpleLogger creates a console logger writing to stderr.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{logger: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *SimpleLogger) Debug(msg string, keysAndValues ...any) { l.print("DEBUG", msg, keysAndValues) }
func (l *SimpleLogger) Info(msg string, keysAndValues ...any)  { l.print("INFO", msg, keysAndValues) }
func (l *SimpleLogger) Warn(msg string, keysAndValues ...any)  { l.print("WARN", msg, keysAndValues) }
func (l *SimpleLogger) Error(msg string, keysAndValues ...any) { l.print("ERROR", msg, keysAndValues) }

func (l *SimpleLogger) print(level, msg string, keysAndValues []any) {
	var builder strings.Builder
	builder.WriteString(level)
	builder.WriteString(" ")
	builder.WriteString(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		builder.WriteString(fmt.Sprintf(" %v=%v", keysAndValues[i], keysAndValues[i+1]))
	}
	l.logger.Println(builder.String())
}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps a zerolog.Logger so it can be passed to WithLogger.
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, keysAndValues ...any) {
	emit(l.zl.Debug(), msg, keysAndValues)
}

func (l *zerologLogger) Info(msg string, keysAndValues ...any) {
	emit(l.zl.Info(), msg, keysAndValues)
}

func (l *zerologLogger) Warn(msg string, keysAndValues ...any) {
	emit(l.zl.Warn(), msg, keysAndValues)
}

func (l *zerologLogger) Error(msg string, keysAndValues ...any) {
	emit(l.zl.Error(), msg, keysAndValues)
}

func emit(e *zerolog.Event, msg string, keysAndValues []any) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		e = e.Interface(key, keysAndValues[i+1])
	}
	e.Msg(msg)
}

// DebugConfig gates the client's debug output per concern.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRetries   bool
	LogRateLimit bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a config with all concerns enabled but debug
// output off until WithDebug switches it on.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRetries:   true,
		LogRateLimit: true,
		RequestIDGen: defaultRequestID,
	}
}

func defaultRequestID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "req-unknown"
	}
	return "req-" + hex.EncodeToString(buf[:])
}
