package ratelimit

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Window is the period API_RATE_LIMIT_MAX applies to.
const Window = time.Minute

const idleTTL = 3 * Window

// RateLimitInfo captures limiter response metadata.
type RateLimitInfo struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter defines common interface.
type Limiter interface {
	Allow(ctx context.Context, key string) (RateLimitInfo, error)
}

// MemoryLimiter keeps one token bucket per key, refilled at limit per Window.
type MemoryLimiter struct {
	limit     int
	burst     int
	mu        sync.Mutex
	store     map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter builds RAM limiter. burst is headroom above limit.
func NewMemoryLimiter(limit, burst int) *MemoryLimiter {
	return &MemoryLimiter{
		limit: limit,
		burst: burst,
		store: make(map[string]*visitor),
		now:   time.Now,
	}
}

// Allow implements limiter.
func (m *MemoryLimiter) Allow(ctx context.Context, key string) (RateLimitInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)

	v, ok := m.store[key]
	if !ok {
		perSecond := rate.Limit(float64(m.limit) / Window.Seconds())
		v = &visitor{limiter: rate.NewLimiter(perSecond, m.limit+m.burst)}
		m.store[key] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	tokens := v.limiter.TokensAt(now)
	info := RateLimitInfo{Allowed: allowed, Limit: m.limit, Remaining: max(int(tokens), 0), Reset: now.Add(Window)}
	if !allowed {
		deficit := 1 - tokens
		info.Reset = now.Add(time.Duration(deficit / float64(m.limit) * float64(Window)))
	}
	return info, nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < Window {
		return
	}
	m.lastSweep = now
	for key, v := range m.store {
		if now.Sub(v.lastSeen) > idleTTL {
			delete(m.store, key)
		}
	}
}

// RedisLimiter coordinates distributed throttling with a fixed window counter.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	prefix string
}

// NewRedisLimiter builds redis limiter.
func NewRedisLimiter(client *redis.Client, limit int, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, prefix: prefix}
}

// Allow implements limiter.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (RateLimitInfo, error) {
	redisKey := r.prefix + ":" + key
	now := time.Now()

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitInfo{}, err
	}

	count := incr.Val()
	remainingTTL := ttl.Val()
	if count == 1 || remainingTTL < 0 {
		if err := r.client.PExpire(ctx, redisKey, Window).Err(); err != nil {
			return RateLimitInfo{}, err
		}
		remainingTTL = Window
	}

	info := RateLimitInfo{
		Allowed:   count <= int64(r.limit),
		Limit:     r.limit,
		Remaining: max(r.limit-int(count), 0),
		Reset:     now.Add(remainingTTL),
	}
	return info, nil
}
