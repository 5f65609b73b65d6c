// Package context carries request-scoped tracing data through counter operations.
package context

import (
	"context"

	"github.com/google/uuid"
)

// Origin names the surface that started an operation.
type Origin string

const (
	OriginHTTP Origin = "http"
	OriginCLI  Origin = "cli"
	OriginLib  Origin = "lib"
)

// TraceContext contains request tracing information.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
	Origin    Origin
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// NewTraceContext creates a new TraceContext with generated IDs.
func NewTraceContext(origin Origin) *TraceContext {
	return &TraceContext{
		TraceID:   uuid.New().String(),
		SpanID:    uuid.New().String()[:16],
		RequestID: uuid.New().String(),
		Origin:    origin,
	}
}

// EnsureTrace returns ctx unchanged if it already carries a trace,
// otherwise attaches a fresh one for origin.
func EnsureTrace(ctx context.Context, origin Origin) context.Context {
	if GetTrace(ctx) != nil {
		return ctx
	}
	return WithTrace(ctx, NewTraceContext(origin))
}
