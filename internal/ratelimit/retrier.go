package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ErrRetriesExhausted wraps the last rate-limit failure once every retry has
// been spent.
var ErrRetriesExhausted = errors.New("retries exhausted")

// State is the retrier's position in a single Do call.
type State int

const (
	StateIdle State = iota
	StateInFlight
	StateWaiting
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInFlight:
		return "in_flight"
	case StateWaiting:
		return "waiting"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Call is one upstream attempt.
type Call func(ctx context.Context) (string, error)

// Retrier runs calls through a Limiter and retries rate-limit failures.
//
// Transitions: Idle -> InFlight -> (Waiting -> InFlight)* -> Idle | Exhausted.
// Any non rate-limit failure returns to Idle immediately without retrying.
type Retrier struct {
	Limiter    *Limiter
	MaxRetries int
	Clock      clockwork.Clock
	Logger     zerolog.Logger

	// OnStateChange, when set, observes every transition.
	OnStateChange func(from, to State)

	mu    sync.Mutex
	state State
}

// NewRetrier returns a Retrier sharing the limiter's clock.
func NewRetrier(l *Limiter, maxRetries int, log zerolog.Logger) *Retrier {
	return &Retrier{Limiter: l, MaxRetries: maxRetries, Clock: l.clock, Logger: log}
}

// State returns the current state. With concurrent Do calls it reflects the
// most recent transition.
func (r *Retrier) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Retrier) set(to State) {
	r.mu.Lock()
	from := r.state
	r.state = to
	hook := r.OnStateChange
	r.mu.Unlock()
	if hook != nil && from != to {
		hook(from, to)
	}
}

// Do runs call, acquiring a limiter slot before every attempt. A local quota
// rejection counts as a rate-limit failure. After MaxRetries retries the last
// failure is returned wrapped in ErrRetriesExhausted.
//
// When ctx carries a budget (WithBudget) a retry whose wait would end past
// the budget is not attempted, and an attempt still running when the budget
// ends is cancelled. Both surface as ErrRetriesExhausted wrapping
// ErrBudgetExceeded.
func (r *Retrier) Do(ctx context.Context, call Call) (string, error) {
	clk := r.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	sched := &retrySchedule{max: r.MaxRetries, clock: clk}

	parent := ctx
	if budget, ok := budgetFrom(ctx); ok {
		sched.deadline = clk.Now().Add(budget)
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		expiry := clk.AfterFunc(budget, cancel)
		defer func() {
			expiry.Stop()
			cancel()
		}()
	}
	overBudget := func() bool { return ctx.Err() != nil && parent.Err() == nil }

	var out string
	op := func() error {
		r.set(StateInFlight)
		err := r.Limiter.Acquire(ctx)
		if err == nil {
			out, err = call(ctx)
		}
		if err == nil {
			return nil
		}
		if overBudget() {
			return backoff.Permanent(fmt.Errorf("%w: %w", ErrBudgetExceeded, err))
		}
		if ctx.Err() != nil || !isRateLimit(err) {
			return backoff.Permanent(err)
		}
		sched.last = err
		return err
	}
	notify := func(err error, next time.Duration) {
		r.set(StateWaiting)
		retries.WithLabelValues(retryReason(err)).Inc()
		r.Logger.Warn().Err(err).Int("retry", sched.n).Dur("delay", next).Msg("upstream rate limited, backing off")
	}

	err := backoff.RetryNotifyWithTimer(op, backoff.WithContext(sched, ctx), notify, &clockTimer{clock: clk})
	if err == nil {
		r.set(StateIdle)
		return out, nil
	}
	if !errors.Is(err, ErrBudgetExceeded) && (sched.overBudget || overBudget()) {
		if sched.last != nil {
			err = sched.last
		}
		err = fmt.Errorf("%w: %w", ErrBudgetExceeded, err)
	}
	if parent.Err() == nil && (isRateLimit(err) || errors.Is(err, ErrBudgetExceeded)) {
		r.set(StateExhausted)
		exhausted.Inc()
		return "", fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
	}
	r.set(StateIdle)
	return "", err
}

func retryReason(err error) string {
	if errors.Is(err, ErrQuotaExceeded) {
		return "local_quota"
	}
	return "provider_429"
}
