package common

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
)

// Logger provides leveled logging for routine and coordinator operations
type Logger interface {
	Log(level, message string, metadata map[string]interface{})
}

// Context keys for passing logger through context
type contextKey int

const (
	loggerKey contextKey = iota
)

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext extracts the logger from context, or returns a no-op
// logger if not found
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return &noOpLogger{}
}

// noOpLogger is a logger that does nothing (fallback when no logger in context)
type noOpLogger struct{}

func (l *noOpLogger) Log(level, message string, metadata map[string]interface{}) {
}

// StdLogger writes to the process log with an optional scope prefix
type StdLogger struct {
	Scope string
}

func NewStdLogger(scope string) *StdLogger {
	return &StdLogger{Scope: scope}
}

func (l *StdLogger) Log(level, message string, metadata map[string]interface{}) {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(level))
	if l.Scope != "" {
		sb.WriteString(" [")
		sb.WriteString(l.Scope)
		sb.WriteString("]")
	}
	sb.WriteString(" ")
	sb.WriteString(message)
	if len(metadata) > 0 {
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, metadata[k]))
		}
	}
	log.Print(sb.String())
}
