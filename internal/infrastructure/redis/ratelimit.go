package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Limiter is a Redis-backed fixed-window rate limiter implementing
// ratelimit.Limiter. It lets rate limits hold across replicas, unlike the
// in-process sliding window.
type Limiter struct {
	service *Service
	prefix  string
	window  time.Duration
	maxHits int
}

func NewLimiter(service *Service, prefix string, window time.Duration, maxHits int) *Limiter {
	return &Limiter{
		service: service,
		prefix:  prefix,
		window:  window,
		maxHits: maxHits,
	}
}

// Allow fails open on Redis errors; rate limiting is protection, not a
// correctness requirement.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", l.prefix, key, bucket)

	pipe := l.service.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("key", redisKey).Msg("Rate limit check failed")
		return true
	}

	return incr.Val() <= int64(l.maxHits)
}
