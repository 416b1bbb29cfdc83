package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsEvent describes one limiter decision.
type StatsEvent struct {
	At      time.Time
	Allowed bool
	Wait    time.Duration
}

// StatsStore records limiter decisions. Recording is best effort: an error is
// logged by the caller and never fails the guarded call.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// NopStats discards every event.
type NopStats struct{}

func (NopStats) Record(context.Context, StatsEvent) error { return nil }

// Counters aggregates decisions.
type Counters struct {
	Admitted int64 `json:"admitted"`
	Rejected int64 `json:"rejected"`
	Delayed  int64 `json:"delayed"` // admitted calls that had to wait for spacing
}

// MemoryStatsStore keeps cumulative counters in process memory.
type MemoryStatsStore struct {
	mu    sync.Mutex
	total Counters
}

func NewMemoryStatsStore() *MemoryStatsStore { return &MemoryStatsStore{} }

func (s *MemoryStatsStore) Record(_ context.Context, ev StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ev.Allowed {
		s.total.Rejected++
		return nil
	}
	s.total.Admitted++
	if ev.Wait > 0 {
		s.total.Delayed++
	}
	return nil
}

// Total returns a copy of the counters.
func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// RedisStatsStore keeps cumulative and per-minute counters in Redis hashes so
// several instances can be observed together. It does not coordinate the
// limiters themselves.
type RedisStatsStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration // applies to per-minute buckets only
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "chat:limiter:stats",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "rejected"
	if ev.Allowed {
		field = "admitted"
	}

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if ev.Allowed && ev.Wait > 0 {
		pipe.HIncrBy(ctx, s.prefix+":total", "delayed", 1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
