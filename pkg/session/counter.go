package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"locallibrary/pkg/circuitbreaker"
	"locallibrary/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TTL is how long an idle session's visit count is kept.
const TTL = 14 * 24 * time.Hour

// Counter counts visits per session.
type Counter interface {
	// Incr adds one visit to the session and returns the new total.
	Incr(ctx context.Context, sessionID string) (int64, error)
}

// sweepInterval bounds how often MemoryCounter scans for expired sessions.
const sweepInterval = time.Hour

type memoryEntry struct {
	visits    int64
	expiresAt time.Time
}

// MemoryCounter keeps counts in process. Counts are lost on restart.
// Expired sessions are dropped by a sweep run from Incr at most once per
// sweepInterval.
type MemoryCounter struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]memoryEntry),
		ttl:     TTL,
		now:     time.Now,
	}
}

func (m *MemoryCounter) Incr(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}
	e := m.entries[sessionID]
	if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
		e.visits = 0
	}
	e.visits++
	e.expiresAt = now.Add(m.ttl)
	m.entries[sessionID] = e
	return e.visits, nil
}

func (m *MemoryCounter) sweep(now time.Time) {
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, id)
		}
	}
	m.lastSweep = now
}

// Len returns the number of sessions currently held.
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisCounter stores counts under keyPrefix+sessionID with a sliding TTL.
type RedisCounter struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCounter connects to redis and verifies the connection.
func NewRedisCounter(cfg config.RedisConfig) (*RedisCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCounterWithClient(client, ""), nil
}

func NewRedisCounterWithClient(client redis.UniversalClient, keyPrefix string) *RedisCounter {
	if keyPrefix == "" {
		keyPrefix = "catalog:visits:"
	}
	return &RedisCounter{client: client, keyPrefix: keyPrefix, ttl: TTL}
}

func (r *RedisCounter) Incr(ctx context.Context, sessionID string) (int64, error) {
	key := r.keyPrefix + sessionID
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count visit: %w", err)
	}
	return incr.Val(), nil
}

func (r *RedisCounter) Close() error {
	return r.client.Close()
}

// GuardedCounter sends visits to primary through a circuit breaker and
// counts them in fallback while primary is failing or the breaker is open.
type GuardedCounter struct {
	primary  Counter
	fallback Counter
	breaker  *circuitbreaker.CircuitBreaker
	log      *zap.Logger
}

func NewGuardedCounter(primary, fallback Counter, breaker *circuitbreaker.CircuitBreaker, log *zap.Logger) *GuardedCounter {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(5, 30*time.Second)
	}
	return &GuardedCounter{primary: primary, fallback: fallback, breaker: breaker, log: log}
}

func (g *GuardedCounter) Incr(ctx context.Context, sessionID string) (int64, error) {
	var visits int64
	err := g.breaker.Execute(func() error {
		n, err := g.primary.Incr(ctx, sessionID)
		visits = n
		return err
	})
	if err == nil {
		return visits, nil
	}
	if !errors.Is(err, circuitbreaker.ErrOpen) {
		g.log.Warn("Session counter unavailable, using fallback", zap.Error(err))
	}
	return g.fallback.Incr(ctx, sessionID)
}

// Close releases the primary counter if it holds a connection.
func (g *GuardedCounter) Close() error {
	if c, ok := g.primary.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewCounter returns a redis backed counter with an in-memory fallback when
// redis is enabled and reachable, otherwise a plain MemoryCounter.
func NewCounter(cfg config.RedisConfig, log *zap.Logger) Counter {
	if !cfg.Enabled {
		return NewMemoryCounter()
	}
	rc, err := NewRedisCounter(cfg)
	if err != nil {
		log.Warn("Redis unavailable, session counts kept in memory", zap.String("addr", cfg.Addr()), zap.Error(err))
		return NewMemoryCounter()
	}
	log.Info("Session counter using Redis", zap.String("addr", cfg.Addr()))
	return NewGuardedCounter(rc, NewMemoryCounter(), nil, log)
}
