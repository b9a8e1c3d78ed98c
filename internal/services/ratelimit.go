package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/clearlane/inspection-backend/internal/logger"
)

// RateLimiter bounds intake attempts per inspection. It is explicit, injected
// state rather than an ambient package-level map.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

type redisRateLimiter struct {
	log    *logger.Logger
	rdb    *goredis.Client
	limit  int
	window time.Duration
}

// NewRedisRateLimiter builds a fixed-window limiter over redis. When
// REDIS_ADDR is unset it returns a limiter that always allows: the intake path
// must never depend on redis availability, so absence and errors both fail
// open.
func NewRedisRateLimiter(baseLog *logger.Logger, limitPerWindow int, window time.Duration) RateLimiter {
	serviceLog := baseLog.With("service", "RateLimiter")

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		serviceLog.Info("REDIS_ADDR not set, intake rate limiting disabled")
		return &redisRateLimiter{log: serviceLog}
	}
	if limitPerWindow <= 0 {
		limitPerWindow = 60
	}
	if window <= 0 {
		window = time.Minute
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	return &redisRateLimiter{
		log:    serviceLog,
		rdb:    rdb,
		limit:  limitPerWindow,
		window: window,
	}
}

func (rl *redisRateLimiter) Allow(ctx context.Context, key string) bool {
	if rl.rdb == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	redisKey := fmt.Sprintf("intake_rate:%s", key)
	count, err := rl.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.log.Warn("Rate limiter unavailable, failing open", "error", err)
		return true
	}
	if count == 1 {
		if err := rl.rdb.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			rl.log.Warn("Failed to set rate limit window", "error", err)
		}
	}
	return count <= int64(rl.limit)
}
