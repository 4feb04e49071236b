package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	ShareURI  string    // Share object being operated on
	Task      string    // Background task or dispatch handler name
	Username  string    // Authenticated user (HTTP requests)
	ClientIP  string    // Client IP address (without port)
	RequestID string    // HTTP request ID
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a share operation
func NewLogContext(shareURI string) *LogContext {
	return &LogContext{
		ShareURI:  shareURI,
		StartTime: time.Now(),
	}
}

// DurationMs returns elapsed time since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}
