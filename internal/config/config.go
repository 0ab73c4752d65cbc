package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RateLimit is a parsed "N/period" limit, e.g. "10/minute".
type RateLimit struct {
	MaxHits int
	Window  time.Duration
}

// Config holds every runtime setting. It is loaded once at startup and
// passed into the components that need it; nothing in this package is
// mutable after Load returns.
type Config struct {
	ServerAddr string

	SecretKey       []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CORSOrigins []string

	AuthRateLimit RateLimit
	AIRateLimit   RateLimit

	GeminiAPIKey      string
	GeminiVoiceModel  string
	GeminiEndpoint    string
	SystemInstruction string

	OpenAIKey   string
	OpenAIModel string

	RedisURL      string
	RedisPassword string
}

const defaultSystemInstruction = "You are a helpful voice assistant managing a todo list. " +
	"You can add, delete, update, and list tasks. Identify tasks by fuzzy name matching. Be concise."

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		ServerAddr: GetEnvOrDefault("SERVER_ADDR", ":8080"),

		SecretKey:       []byte(GetEnvOrDefault("SECRET_KEY", "your-256-bit-secret")),
		AccessTokenTTL:  time.Duration(parseEnvInt("ACCESS_TOKEN_EXPIRE_SECONDS", 900)) * time.Second,
		RefreshTokenTTL: time.Duration(parseEnvInt("REFRESH_TOKEN_EXPIRE_SECONDS", 604800)) * time.Second,

		CORSOrigins: splitOrigins(GetEnvOrDefault("CORS_ORIGINS", "http://localhost:5173")),

		AuthRateLimit: ParseRateLimit(GetEnvOrDefault("AUTH_RATE_LIMIT", "5/minute")),
		AIRateLimit:   ParseRateLimit(GetEnvOrDefault("AI_RATE_LIMIT", "10/minute")),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiVoiceModel: GetEnvOrDefault("GEMINI_VOICE_MODEL_ID", "models/gemini-2.0-flash-live-001"),
		GeminiEndpoint: GetEnvOrDefault("GEMINI_LIVE_ENDPOINT",
			"wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"),
		SystemInstruction: GetEnvOrDefault("AI_SYSTEM_INSTRUCTION", defaultSystemInstruction),

		OpenAIKey:   os.Getenv("OPENAI_KEY"),
		OpenAIModel: GetEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),

		RedisURL:      os.Getenv("REDIS_URL"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}
}

// OriginAllowed reports whether origin is trusted by the configured
// allow-list. An empty origin is never trusted.
func (c *Config) OriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range c.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ParseRateLimit parses limits of the form "10/minute". Unknown periods
// fall back to a one-minute window.
func ParseRateLimit(s string) RateLimit {
	parts := strings.SplitN(s, "/", 2)

	max, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || max <= 0 {
		log.Warn().Str("limit", s).Msg("Invalid rate limit, using 10/minute")
		return RateLimit{MaxHits: 10, Window: time.Minute}
	}

	window := time.Minute
	if len(parts) == 2 {
		switch strings.ToLower(strings.TrimSpace(parts[1])) {
		case "second":
			window = time.Second
		case "minute":
			window = time.Minute
		case "hour":
			window = time.Hour
		case "day":
			window = 24 * time.Hour
		}
	}

	return RateLimit{MaxHits: max, Window: window}
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// GetEnvOrDefault returns the value of an environment variable or a default value
func GetEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("Invalid integer environment variable")
		return defaultValue
	}

	return parsed
}
