package repository

import (
	"context"
	"time"
)

// DefaultWriteTimeout bounds a single INSERT.
const DefaultWriteTimeout = 5 * time.Second

// WithWriteTimeout returns a context with the default write timeout.
// A caller deadline that is already sooner wins.
func WithWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, DefaultWriteTimeout)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
