package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// AttemptLimiter throttles failed sign-in attempts per key.
type AttemptLimiter interface {
	// Allow reports whether another attempt may be made for key.
	Allow(ctx context.Context, key string) (bool, error)
	// Fail records a failed attempt for key.
	Fail(ctx context.Context, key string) error
	// Reset forgets the failures recorded for key.
	Reset(ctx context.Context, key string) error
}

// RedisLimiter counts failures in a fixed window shared by every instance.
type RedisLimiter struct {
	client      redis.UniversalClient
	prefix      string
	maxFailures int
	window      time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, maxFailures int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		prefix:      "signin:failures:",
		maxFailures: maxFailures,
		window:      window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.client.Get(ctx, l.prefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("identity: reading failure count: %w", err)
	}
	return count < l.maxFailures, nil
}

// Fail counts the failure and starts the window if none is running. Both run
// in one MULTI/EXEC so a counter never outlives its window.
func (l *RedisLimiter) Fail(ctx context.Context, key string) error {
	k := l.prefix + key
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("identity: recording failure: %w", err)
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("identity: clearing failures: %w", err)
	}
	return nil
}

// MemoryLimiter keeps a token bucket per key in process memory. Each failure
// spends a token; buckets refill at maxFailures per window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func NewMemoryLimiter(maxFailures int, window time.Duration) *MemoryLimiter {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &MemoryLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Every(window / time.Duration(maxFailures)),
		burst:   maxFailures,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok {
		return true, nil
	}
	return bucket.Tokens() >= 1, nil
}

func (l *MemoryLimiter) Fail(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = bucket
	}
	bucket.Allow()
	return nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
	return nil
}

// Prune drops buckets that have fully refilled and returns how many were removed.
func (l *MemoryLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, bucket := range l.buckets {
		if bucket.Tokens() >= float64(l.burst) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
