// Package capability runs calls to external capabilities (embedding,
// answer and mail providers) under a deadline and classifies their errors.
package capability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/lexsy/internal/models"
)

// Call runs fn with a context bounded by timeout (no bound when timeout <= 0).
// Deadline failures become models.KindTimeout; errors that are already
// classified pass through; anything else becomes models.KindProvider.
func Call[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	v, err := fn(ctx)
	if err == nil {
		return v, nil
	}
	var zero T
	return zero, Classify(ctx, op, timeout, err)
}

// Classify maps err from a capability call named op onto the error taxonomy.
func Classify(ctx context.Context, op string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		msg := op + " timed out"
		if timeout > 0 {
			msg = fmt.Sprintf("%s timed out after %s", op, timeout)
		}
		return models.Wrap(models.KindTimeout, msg, err)
	}
	var classified *models.Error
	if errors.As(err, &classified) {
		return err
	}
	return models.Wrap(models.KindProvider, op+" failed", err)
}
