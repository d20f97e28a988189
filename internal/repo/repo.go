package repo

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidID = errors.New("invalid object id")
	ErrNotFound  = errors.New("document not found")
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second
)

// ensureTimeout caps the context with a default deadline when the caller
// did not set one.
func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
