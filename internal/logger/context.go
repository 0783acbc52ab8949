package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type ctxKey struct{}

type eventKey struct{}

// event collects fields for a log line written after the handler returns.
type event struct {
	mu     sync.Mutex
	fields []zap.Field
}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Lookup returns the logger stored in ctx, if any.
func Lookup(ctx context.Context) (*zap.Logger, bool) {
	l, ok := ctx.Value(ctxKey{}).(*zap.Logger)
	return l, ok
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := Lookup(ctx); ok {
		return l
	}
	return zap.NewNop()
}

// WithFields returns a context whose logger carries the extra fields.
// The fields are also added to the request event, if one is open.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if ev, ok := ctx.Value(eventKey{}).(*event); ok {
		ev.mu.Lock()
		ev.fields = append(ev.fields, fields...)
		ev.mu.Unlock()
	}
	return ContextWithLogger(ctx, FromContext(ctx).With(fields...))
}

// WithEvent opens a request event. Fields added downstream through WithFields
// are collected and returned by EventFields.
func WithEvent(ctx context.Context) context.Context {
	return context.WithValue(ctx, eventKey{}, &event{})
}

// EventFields returns a copy of the fields collected for the request event.
func EventFields(ctx context.Context) []zap.Field {
	ev, ok := ctx.Value(eventKey{}).(*event)
	if !ok {
		return nil
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return append([]zap.Field(nil), ev.fields...)
}
