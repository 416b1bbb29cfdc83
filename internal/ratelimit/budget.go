package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExceeded is wrapped into ErrRetriesExhausted when a Do call ran
// out of its time budget before a retry could succeed.
var ErrBudgetExceeded = errors.New("retry budget exceeded")

type budgetKey struct{}

// WithBudget bounds the total time Retrier.Do may spend on ctx, attempts and
// waits included. A non-positive d leaves ctx unbounded.
func WithBudget(ctx context.Context, d time.Duration) context.Context {
	if d <= 0 {
		return ctx
	}
	return context.WithValue(ctx, budgetKey{}, d)
}

func budgetFrom(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(budgetKey{}).(time.Duration)
	return d, ok && d > 0
}
