// Package queue serializes chat requests in front of the upstream model.
//
// At most one request is processed at a time and consecutive requests are
// spaced by a fixed interval. Requests that arrive while the queue is busy
// (or too soon after the previous one) wait in a small bounded FIFO and are
// drained one at a time by a timer; when the FIFO is full new requests are
// rejected with a CapacityError. Nothing is persisted: pending requests are
// lost on restart.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/prudvi9160/smart-ai-content-creator/internal/domain"
)

// ErrQueueClosed resolves requests still pending when the queue shuts down.
var ErrQueueClosed = errors.New("chat queue closed")

// CapacityError is returned by Submit when the FIFO is full.
type CapacityError struct {
	QueueLength   int
	EstimatedWait time.Duration
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("chat queue at capacity (%d pending)", e.QueueLength)
}

// Result is the outcome of processing one request.
type Result struct {
	Message domain.ChatMessage
	Err     error
}

// Processor handles one message. It runs with the request context for inline
// processing and with the queue's base context for drained items.
type Processor func(ctx context.Context, message string) Result

// Ticket describes an accepted request. Done yields exactly one Result.
type Ticket struct {
	ID            string
	Queued        bool
	Position      int           // 1-based position at enqueue time
	EstimatedWait time.Duration // zero for inline processing
	Done          <-chan Result
}

// Options configures a Queue.
type Options struct {
	MaxSize  int           // default 3
	Interval time.Duration // spacing between processed items
	Clock    clockwork.Clock
	Logger   zerolog.Logger
	// Results, when set, keeps outcomes of queued items for polling.
	Results *ResultStore
}

type item struct {
	id         string
	message    string
	enqueuedAt time.Time
	reply      chan Result
}

// Queue is a single-consumer bounded FIFO with interval-spaced draining.
type Queue struct {
	base     context.Context
	process  Processor
	maxSize  int
	interval time.Duration
	clock    clockwork.Clock
	log      zerolog.Logger
	results  *ResultStore

	mu            sync.Mutex
	pending       []*item
	processing    bool
	lastProcessed time.Time
	timer         clockwork.Timer
	closed        bool
}

// New returns a Queue. Drained items are processed with base.
func New(base context.Context, process Processor, opts Options) *Queue {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 3
	}
	if opts.Interval < 0 {
		opts.Interval = 0
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Queue{
		base:     base,
		process:  process,
		maxSize:  opts.MaxSize,
		interval: opts.Interval,
		clock:    opts.Clock,
		log:      opts.Logger,
		results:  opts.Results,
	}
}

// Submit processes message inline when the queue is idle and the interval
// has elapsed; otherwise it enqueues it or rejects it with *CapacityError.
func (q *Queue) Submit(ctx context.Context, message string) (Ticket, error) {
	now := q.clock.Now()
	it := &item{id: uuid.NewString(), message: message, enqueuedAt: now, reply: make(chan Result, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return Ticket{}, ErrQueueClosed
	}

	if q.processing || len(q.pending) > 0 {
		if len(q.pending) >= q.maxSize {
			n := len(q.pending)
			q.mu.Unlock()
			rejected.Inc()
			q.log.Warn().Int("queue_len", n).Msg("chat queue full, rejecting")
			return Ticket{}, &CapacityError{QueueLength: n, EstimatedWait: time.Duration(n+1) * q.interval}
		}
		pos := q.enqueueLocked(it)
		if !q.processing {
			q.scheduleLocked(q.untilReadyLocked(now))
		}
		q.mu.Unlock()
		q.log.Debug().Str("ticket", it.id).Int("position", pos).Msg("chat request queued")
		return Ticket{ID: it.id, Queued: true, Position: pos, EstimatedWait: time.Duration(pos) * q.interval, Done: it.reply}, nil
	}

	if wait := q.untilReadyLocked(now); wait > 0 {
		pos := q.enqueueLocked(it)
		q.scheduleLocked(wait)
		q.mu.Unlock()
		q.log.Debug().Str("ticket", it.id).Dur("wait", wait).Msg("chat request deferred")
		return Ticket{ID: it.id, Queued: true, Position: pos, EstimatedWait: q.interval, Done: it.reply}, nil
	}

	q.processing = true
	q.lastProcessed = now
	q.setGaugesLocked()
	q.mu.Unlock()

	res := q.run(ctx, it)
	it.reply <- res
	return Ticket{ID: it.id, Done: it.reply}, nil
}

// run processes it and releases the processing flag, scheduling the next
// drain before returning the result.
func (q *Queue) run(ctx context.Context, it *item) Result {
	res := q.safeProcess(ctx, it.message)

	q.mu.Lock()
	q.processing = false
	if len(q.pending) > 0 && !q.closed {
		q.scheduleLocked(q.interval)
	}
	q.setGaugesLocked()
	q.mu.Unlock()

	outcome := "ok"
	if res.Err != nil {
		outcome = "error"
	}
	processed.WithLabelValues(outcome).Inc()
	return res
}

func (q *Queue) safeProcess(ctx context.Context, message string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Interface("panic", r).Msg("chat processor panicked")
			res = Result{Err: fmt.Errorf("chat processor panic: %v", r)}
		}
	}()
	return q.process(ctx, message)
}

// drain runs on the timer and processes exactly one pending item.
func (q *Queue) drain() {
	q.mu.Lock()
	q.timer = nil
	if q.closed || q.processing || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	now := q.clock.Now()
	if wait := q.untilReadyLocked(now); wait > 0 {
		q.scheduleLocked(wait)
		q.mu.Unlock()
		return
	}
	it := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.processing = true
	q.lastProcessed = now
	q.setGaugesLocked()
	q.mu.Unlock()

	q.log.Debug().Str("ticket", it.id).Dur("queued_for", now.Sub(it.enqueuedAt)).Msg("processing queued chat request")
	res := q.run(q.base, it)
	q.deliver(it, res)
}

func (q *Queue) deliver(it *item, res Result) {
	if q.results != nil {
		q.results.Complete(it.id, res)
	}
	it.reply <- res
}

func (q *Queue) enqueueLocked(it *item) int {
	q.pending = append(q.pending, it)
	if q.results != nil {
		q.results.MarkPending(it.id)
	}
	q.setGaugesLocked()
	return len(q.pending)
}

func (q *Queue) untilReadyLocked(now time.Time) time.Duration {
	if q.lastProcessed.IsZero() {
		return 0
	}
	if since := now.Sub(q.lastProcessed); since < q.interval {
		return q.interval - since
	}
	return 0
}

// scheduleLocked arms the drain timer unless one is already armed.
func (q *Queue) scheduleLocked(d time.Duration) {
	if q.timer != nil {
		return
	}
	q.timer = q.clock.AfterFunc(d, q.drain)
}

func (q *Queue) setGaugesLocked() {
	queueLength.Set(float64(len(q.pending)))
	if q.processing {
		inProgress.Set(1)
	} else {
		inProgress.Set(0)
	}
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Processing reports whether an item is being processed.
func (q *Queue) Processing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing
}

// Close stops the drain timer and resolves pending items with ErrQueueClosed.
// An item already being processed completes normally.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	pending := q.pending
	q.pending = nil
	q.setGaugesLocked()
	q.mu.Unlock()

	for _, it := range pending {
		q.deliver(it, Result{Err: ErrQueueClosed})
	}
}
