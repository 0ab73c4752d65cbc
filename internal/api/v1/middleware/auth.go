package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fasttodo/fasttodo/internal/auth"
	"github.com/fasttodo/fasttodo/pkg/httpext"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the request-scoped authenticated principal.
type Identity struct {
	UserID   string
	Username string
}

// PublicRoutes are served without a bearer token. The WebSocket path is
// public here because its authentication happens in-band after the upgrade.
var PublicRoutes = []string{
	"/",
	"/docs",
	"/health",
	"/metrics",
	"/register",
	"/token",
	"/token/refresh",
	"/api/ai/voice/stream",
}

// RequireAuth validates the access token on every non-public request and
// binds the caller's identity into the request context.
func RequireAuth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(PublicRoutes))
	for _, p := range PublicRoutes {
		public[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := strings.TrimSuffix(r.URL.Path, "/")
			if path == "" {
				path = "/"
			}
			if _, ok := public[path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			// CORS preflight carries no credentials yet.
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := ExtractBearer(r)
			if tokenString == "" {
				httpext.JsonChallenge(w, "Missing token")
				return
			}

			claims, err := tokens.Parse(tokenString, auth.TokenTypeAccess)
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Access token rejected")
				if errors.Is(err, auth.ErrExpiredToken) {
					httpext.JsonChallenge(w, "Token has expired")
				} else {
					httpext.JsonChallenge(w, "Invalid token")
				}
				return
			}

			identity := &Identity{UserID: claims.SubjectID, Username: claims.Subject}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the authenticated identity from the request
// context, or nil on public routes.
func GetIdentity(r *http.Request) *Identity {
	if identity, ok := r.Context().Value(identityKey).(*Identity); ok {
		return identity
	}
	return nil
}
