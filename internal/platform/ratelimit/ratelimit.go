// Package ratelimit provides fixed-window request counters keyed by caller
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gamevault-settlement/internal/config"
)

// Limiter decides whether one more request for key fits in the current window
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New builds the limiter selected by cfg.Backend. client is only used by the redis backend.
func New(cfg config.RateLimitConfig, client *redis.Client) (Limiter, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryLimiter(cfg.Limit, cfg.Window, cfg.MaxEntries), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis rate limiter requires a redis client")
		}
		return NewRedisLimiter(client, cfg.Limit, cfg.Window), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s", cfg.Backend)
	}
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter keeps counters in process memory. Counters reset on restart and at most
// maxEntries keys are tracked; expired windows are evicted first, then the oldest.
type MemoryLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	maxEntries int
	windows    map[string]*window
	now        func() time.Time
}

// NewMemoryLimiter creates a process-local limiter
func NewMemoryLimiter(limit int, period time.Duration, maxEntries int) *MemoryLimiter {
	return &MemoryLimiter{
		limit:      limit,
		window:     period,
		maxEntries: maxEntries,
		windows:    make(map[string]*window),
		now:        time.Now,
	}
}

// Allow implements Limiter
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if ok && now.Sub(w.start) >= l.window {
		delete(l.windows, key)
		ok = false
	}
	if !ok {
		if len(l.windows) >= l.maxEntries {
			l.evict(now)
		}
		w = &window{start: now}
		l.windows[key] = w
	}

	w.count++
	return w.count <= l.limit, nil
}

// Len reports how many keys are tracked
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *MemoryLimiter) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, k)
			continue
		}
		if oldestKey == "" || w.start.Before(oldest) {
			oldestKey, oldest = k, w.start
		}
	}
	if len(l.windows) >= l.maxEntries && oldestKey != "" {
		delete(l.windows, oldestKey)
	}
}

// RedisLimiter shares counters between instances. INCR and EXPIRE NX run in one MULTI
// block, so every counter carries a TTL even if an earlier EXPIRE was lost.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter backed by client
func NewRedisLimiter(client redis.Cmdable, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: period}
}

// Allow implements Limiter
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "rate_limit:" + key

	var count *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to update rate counter: %w", err)
	}
	return count.Val() <= int64(l.limit), nil
}
