package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fasttodo/fasttodo/pkg/httpext"
	"github.com/fasttodo/fasttodo/pkg/ratelimit"
)

// RateLimit rejects requests over the limit with 429. The key is the
// authenticated user when available, the client address otherwise.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if identity := GetIdentity(r); identity != nil {
				key = identity.UserID
			}

			if !limiter.Allow(r.Context(), key) {
				zerolog.Ctx(r.Context()).Warn().Str("key", key).Msg("Rate limit exceeded")
				httpext.JsonError(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
