package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type to prevent collisions in the context map.
type contextKey struct{}

// WithContext returns a context carrying the provided logger, used by the
// request middleware to inject a request-scoped logger.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext retrieves the logger from the context. It never returns nil:
// without a logger in the context it falls back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
