// Package logging carries a per-iteration correlation ID through context
// so every log line from one loop pass can be tied together.
package logging

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// NewCorrelationID returns a fresh correlation ID.
func NewCorrelationID() string {
	return uuid.New().String()
}

// CorrelationID retrieves the correlation ID from context, or generates a
// new one if not present.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		return id
	}
	return NewCorrelationID()
}

// Field returns the correlation ID as a zap field for attaching to a logger.
func Field(ctx context.Context) zap.Field {
	return zap.String("correlation_id", CorrelationID(ctx))
}
