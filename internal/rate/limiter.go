package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	// Prefix namespaces every counter key.
	Prefix string
	// MaxAttempts is the number of attempts allowed per window.
	MaxAttempts int
	// Window is the fixed window length; the counter expires with it.
	Window time.Duration
}

// Limiter counts attempts per scope and identifier in Redis fixed windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records one attempt for scope+id and returns ErrRateLimited once the
// window budget is exceeded. Denied attempts still count.
func (l *Limiter) Allow(ctx context.Context, scope, id string) error {
	count, err := l.incrementWithTTL(ctx, l.key(scope, id), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Remaining returns how many attempts are left in the current window.
// Missing keys report the full budget.
func (l *Limiter) Remaining(ctx context.Context, scope, id string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(scope, id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return l.config.MaxAttempts, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	left := int64(l.config.MaxAttempts) - count
	if left < 0 {
		return 0, nil
	}
	return int(left), nil
}

// Reset clears the counter for scope+id.
func (l *Limiter) Reset(ctx context.Context, scope, id string) error {
	if err := l.redis.Del(ctx, l.key(scope, id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(scope, id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if l.config.Prefix == "" {
		return "rl:" + scope + ":" + id
	}
	return l.config.Prefix + ":rl:" + scope + ":" + id
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
