package queue

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Status of a ticket in the ResultStore.
type Status int

const (
	StatusUnknown Status = iota // never seen or expired
	StatusPending
	StatusDone
)

type entry struct {
	status  Status
	result  Result
	expires time.Time
}

// ResultStore keeps outcomes of queued requests so clients that received a
// 202 can fetch the reply later. Entries expire after the TTL.
type ResultStore struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]entry
}

// NewResultStore returns a store whose entries live for ttl.
func NewResultStore(ttl time.Duration, clk clockwork.Clock) *ResultStore {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ResultStore{ttl: ttl, clock: clk, entries: make(map[string]entry)}
}

// MarkPending records that id was accepted but not yet processed.
func (s *ResultStore) MarkPending(id string) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)
	s.entries[id] = entry{status: StatusPending, expires: now.Add(s.ttl)}
}

// Complete stores the outcome for id.
func (s *ResultStore) Complete(id string, res Result) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)
	s.entries[id] = entry{status: StatusDone, result: res, expires: now.Add(s.ttl)}
}

// Get returns the stored outcome and status for id.
func (s *ResultStore) Get(id string) (Result, Status) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || !now.Before(e.expires) {
		delete(s.entries, id)
		return Result{}, StatusUnknown
	}
	return e.result, e.status
}

func (s *ResultStore) purgeLocked(now time.Time) {
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, id)
		}
	}
}
