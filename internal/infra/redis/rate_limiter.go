package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter counts hits per caller in fixed, clock-aligned windows; one key per window.
type RateLimiter struct {
	client RedisClient
	prefix string
	now    func() time.Time
}

func NewRateLimiter(client RedisClient, prefix string) *RateLimiter {
	if prefix == "" {
		prefix = "rate_limit"
	}
	return &RateLimiter{client: client, prefix: prefix, now: time.Now}
}

func (r *RateLimiter) windowKey(key string, window time.Duration) string {
	if window <= 0 {
		window = time.Minute
	}
	return fmt.Sprintf("%s:%s:%d", r.prefix, key, r.now().UnixNano()/int64(window))
}

// Allow records one hit for key and reports whether it is within limit for the current window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := r.windowKey(key, window)
	count, err := r.client.Incr(ctx, k)
	if err != nil {
		return false, err
	}
	if count == 1 {
		// outlive the window to tolerate clock skew between replicas
		if err := r.client.Expire(ctx, k, 2*window); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}
