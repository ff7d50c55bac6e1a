package utils

import (
	"context"
	"time"
)

const (
	// ShortTimeout bounds quick store reads such as the health check
	ShortTimeout = 5 * time.Second

	// LongTimeout bounds an upload, which may embed and write many batches
	LongTimeout = 10 * time.Minute
)

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}

// WithLongTimeout creates a context with long timeout for operations that may take longer
func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}
