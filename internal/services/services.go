package services

import (
	"github.com/rs/zerolog/log"

	"github.com/fasttodo/fasttodo/internal/auth"
	"github.com/fasttodo/fasttodo/internal/config"
	"github.com/fasttodo/fasttodo/internal/infrastructure/genai"
	"github.com/fasttodo/fasttodo/internal/infrastructure/openai"
	"github.com/fasttodo/fasttodo/internal/infrastructure/redis"
	"github.com/fasttodo/fasttodo/internal/store"
	"github.com/fasttodo/fasttodo/pkg/ratelimit"
)

// Services holds every initialized component, wired once at startup.
type Services struct {
	Config *config.Config

	Store  *store.MemoryStore
	Hasher *auth.Hasher
	Tokens *auth.TokenService
	Gate   *auth.Gate

	Redis     *redis.Service
	Assistant *openai.Service
	Live      *genai.Service

	AuthLimiter ratelimit.Limiter
	AILimiter   ratelimit.Limiter
}

// Initialize builds the service graph. Optional backends (Redis, the AI
// providers) degrade to nil or in-process fallbacks when unconfigured.
func Initialize(cfg *config.Config) *Services {
	log.Info().Msg("Initializing core services")

	memStore := store.NewMemoryStore()
	hasher := auth.NewHasher()
	tokens := auth.NewTokenService(cfg.SecretKey)
	gate := auth.NewGate(memStore, hasher)

	redisService := redis.NewService(cfg)
	assistant := openai.NewService(cfg)
	live := genai.NewService(cfg)

	return &Services{
		Config:      cfg,
		Store:       memStore,
		Hasher:      hasher,
		Tokens:      tokens,
		Gate:        gate,
		Redis:       redisService,
		Assistant:   assistant,
		Live:        live,
		AuthLimiter: newLimiter(redisService, "auth", cfg.AuthRateLimit),
		AILimiter:   newLimiter(redisService, "ai", cfg.AIRateLimit),
	}
}

// newLimiter prefers the Redis backend so limits hold across replicas, and
// falls back to the in-process sliding window.
func newLimiter(redisService *redis.Service, prefix string, limit config.RateLimit) ratelimit.Limiter {
	if redisService != nil {
		return redis.NewLimiter(redisService, prefix, limit.Window, limit.MaxHits)
	}
	return ratelimit.NewSlidingWindow(limit.Window, limit.MaxHits)
}
