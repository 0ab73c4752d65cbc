package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fasttodo/fasttodo/internal/config"
)

type Service struct {
	client *redis.Client
}

// NewService connects to Redis when configured. Returns nil when REDIS_URL
// is unset or the connection fails; callers fall back to in-process state.
func NewService(cfg *config.Config) *Service {
	if cfg.RedisURL == "" {
		log.Warn().Msg("Redis URL not configured - service will be unavailable")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Error().
			Err(err).
			Str("addr", cfg.RedisURL).
			Msg("Failed to establish Redis connection")
		return nil
	}

	return &Service{
		client: client,
	}
}

// Ping verifies connectivity; /health reports it per component.
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
