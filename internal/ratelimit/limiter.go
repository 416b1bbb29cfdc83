// Package ratelimit guards calls to the upstream chat model. It keeps the
// caller under the provider's published quota (a minimum spacing between
// calls and a per-window call budget) and retries calls the provider rejects
// for quota reasons, honoring the provider's retry hint when one is sent.
//
// All timing goes through an injected clockwork.Clock so the behavior can be
// driven deterministically in tests.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ErrQuotaExceeded is returned by Acquire when the current window has no
// budget left. It is treated like a provider rate-limit response.
var ErrQuotaExceeded = errors.New("rate limit exceeded. please try again later")

// RateState is the limiter's view of recent upstream traffic.
type RateState struct {
	LastRequest  time.Time
	RequestCount int
	WindowStart  time.Time
}

// Decision is the outcome of Admit.
type Decision struct {
	Allowed bool
	Wait    time.Duration // how long to hold the call before sending it
	Count   int           // calls in the current window after this decision
}

// Options configures a Limiter. MinInterval zero disables spacing; the other
// zero values fall back to defaults.
type Options struct {
	MinInterval  time.Duration
	MaxPerWindow int           // default 10
	WindowReset  time.Duration // default 1m
	Clock        clockwork.Clock
	Stats        StatsStore
	Logger       zerolog.Logger
}

// Limiter enforces spacing and a per-window budget for one upstream.
// It is safe for concurrent use.
type Limiter struct {
	minInterval  time.Duration
	maxPerWindow int
	windowReset  time.Duration
	clock        clockwork.Clock
	stats        StatsStore
	log          zerolog.Logger

	mu    sync.Mutex
	state RateState
}

// NewLimiter builds a Limiter. Call Start to enable the window reset.
func NewLimiter(opts Options) *Limiter {
	if opts.MinInterval < 0 {
		opts.MinInterval = 0
	}
	if opts.MaxPerWindow <= 0 {
		opts.MaxPerWindow = 10
	}
	if opts.WindowReset <= 0 {
		opts.WindowReset = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Stats == nil {
		opts.Stats = NopStats{}
	}
	return &Limiter{
		minInterval:  opts.MinInterval,
		maxPerWindow: opts.MaxPerWindow,
		windowReset:  opts.WindowReset,
		clock:        opts.Clock,
		stats:        opts.Stats,
		log:          opts.Logger,
		state:        RateState{WindowStart: opts.Clock.Now()},
	}
}

// Admit reserves a slot for one upstream call. A rejected decision leaves the
// state untouched. An allowed decision counts the call and moves LastRequest
// to the moment the call will go out (now + Wait), so concurrent callers are
// spaced from each other rather than from the same instant.
func (l *Limiter) Admit() Decision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.RequestCount >= l.maxPerWindow {
		return Decision{Allowed: false, Count: l.state.RequestCount}
	}

	var wait time.Duration
	if !l.state.LastRequest.IsZero() {
		if elapsed := now.Sub(l.state.LastRequest); elapsed < l.minInterval {
			wait = l.minInterval - elapsed
		}
	}
	l.state.LastRequest = now.Add(wait)
	l.state.RequestCount++
	return Decision{Allowed: true, Wait: wait, Count: l.state.RequestCount}
}

// Acquire admits one call and suspends until it may be sent.
func (l *Limiter) Acquire(ctx context.Context) error {
	d := l.Admit()
	l.observe(ctx, d)
	if !d.Allowed {
		l.log.Warn().Int("window_count", d.Count).Msg("chat quota exhausted for current window")
		return ErrQuotaExceeded
	}
	if d.Wait > 0 {
		l.log.Debug().Dur("wait", d.Wait).Msg("spacing upstream call")
	}
	return Sleep(ctx, l.clock, d.Wait)
}

// Start launches the window reset loop. The count is zeroed every
// WindowReset regardless of traffic until ctx is cancelled.
func (l *Limiter) Start(ctx context.Context) {
	ticker := l.clock.NewTicker(l.windowReset)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				l.Reset()
			}
		}
	}()
}

// Decisions returns the cumulative decision counters when the stats store
// keeps them in process (MemoryStatsStore).
func (l *Limiter) Decisions() (Counters, bool) {
	if t, ok := l.stats.(interface{ Total() Counters }); ok {
		return t.Total(), true
	}
	return Counters{}, false
}

// Reset zeroes the window count and starts a new window.
func (l *Limiter) Reset() {
	now := l.clock.Now()
	l.mu.Lock()
	prev := l.state.RequestCount
	l.state.RequestCount = 0
	l.state.WindowStart = now
	l.mu.Unlock()

	windowCount.Set(0)
	if prev > 0 {
		l.log.Debug().Int("previous_count", prev).Msg("chat quota window reset")
	}
}

// Snapshot returns a copy of the current state.
func (l *Limiter) Snapshot() RateState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Limiter) observe(ctx context.Context, d Decision) {
	outcome := "admitted"
	if !d.Allowed {
		outcome = "rejected"
	}
	decisions.WithLabelValues(outcome).Inc()
	windowCount.Set(float64(d.Count))

	ev := StatsEvent{At: l.clock.Now(), Allowed: d.Allowed, Wait: d.Wait}
	if err := l.stats.Record(ctx, ev); err != nil {
		l.log.Debug().Err(err).Msg("record limiter stats")
	}
}

// Sleep suspends for d on clk, returning early with ctx.Err() if ctx ends.
func Sleep(ctx context.Context, clk clockwork.Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := clk.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}
