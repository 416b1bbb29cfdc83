package ratelimit

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/prudvi9160/smart-ai-content-creator/internal/upstream"
)

const (
	minFallbackDelay = 20 * time.Second
	fallbackUnit     = 5 * time.Second
)

// RetryDelay returns how long to wait before retry number retryCount
// (0-based). A provider hint wins: whole seconds of the hint plus one.
// Otherwise the wait is max(20s, 2^(retryCount+1) * 5s).
func RetryDelay(err error, retryCount int) time.Duration {
	var ce *upstream.CallError
	if errors.As(err, &ce) && ce.HasRetryHint() {
		return ce.RetryDelay.Truncate(time.Second) + time.Second
	}
	d := time.Duration(1<<uint(retryCount+1)) * fallbackUnit
	if d < minFallbackDelay {
		d = minFallbackDelay
	}
	return d
}

// isRateLimit reports whether err should be retried after a wait.
func isRateLimit(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || upstream.IsRateLimited(err)
}

// retrySchedule is a backoff.BackOff that yields RetryDelay for the most
// recent failure. It stops after max retries, or when a non-zero deadline
// would be reached before the wait ends.
type retrySchedule struct {
	max      int
	n        int
	last     error
	clock    clockwork.Clock
	deadline time.Time

	overBudget bool
}

func (s *retrySchedule) NextBackOff() time.Duration {
	if s.n >= s.max {
		return backoff.Stop
	}
	d := RetryDelay(s.last, s.n)
	if !s.deadline.IsZero() && !s.clock.Now().Add(d).Before(s.deadline) {
		s.overBudget = true
		return backoff.Stop
	}
	s.n++
	return d
}

func (s *retrySchedule) Reset() {
	s.n = 0
	s.last = nil
	s.overBudget = false
}

// clockTimer adapts a clockwork.Clock to backoff.Timer.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = t.clock.NewTimer(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time { return t.timer.Chan() }
