package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fasttodo/fasttodo/internal/auth"
	"github.com/fasttodo/fasttodo/internal/config"
	"github.com/fasttodo/fasttodo/internal/infrastructure/genai"
	"github.com/fasttodo/fasttodo/internal/metrics"
	"github.com/fasttodo/fasttodo/internal/store"
	"github.com/fasttodo/fasttodo/pkg/ratelimit"
)

const authWait = 10 * time.Second

// UpstreamDialer opens live sessions. *genai.Service satisfies it through
// the adapter below; tests plug in fakes.
type UpstreamDialer interface {
	Connect(ctx context.Context, declarations []genai.FunctionDeclaration) (Upstream, error)
}

// GenaiDialer adapts genai.Service to the UpstreamDialer interface.
type GenaiDialer struct {
	Service *genai.Service
}

func (d GenaiDialer) Connect(ctx context.Context, declarations []genai.FunctionDeclaration) (Upstream, error) {
	session, err := d.Service.Connect(ctx, declarations)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Handler authenticates and serves the voice streaming WebSocket.
type Handler struct {
	tokens   *auth.TokenService
	users    store.CredentialStore
	dialer   UpstreamDialer
	limiter  ratelimit.Limiter
	upgrader websocket.Upgrader
}

// NewHandler wires the voice stream endpoint. dialer may be nil when the
// provider is unconfigured; connections then fail with a typed error.
// The limiter is keyed per user id and shared across all connections.
func NewHandler(cfg *config.Config, tokens *auth.TokenService, users store.CredentialStore, dialer UpstreamDialer, limiter ratelimit.Limiter) *Handler {
	return &Handler{
		tokens:  tokens,
		users:   users,
		dialer:  dialer,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			// A missing or untrusted origin is rejected before the
			// handshake completes; no close codes are owed to such peers.
			CheckOrigin: func(r *http.Request) bool {
				return cfg.OriginAllowed(r.Header.Get("Origin"))
			},
		},
	}
}

// HandleVoiceStream is the /api/ai/voice/stream endpoint. Identity comes
// from the access_token cookie when present and valid, otherwise from a
// first in-band auth message.
func (h *Handler) HandleVoiceStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("WebSocket upgrade rejected")
		return
	}
	defer conn.Close()

	user := h.authenticate(conn, r)
	if user == nil {
		return
	}

	// The limiter runs after identity is known but before the expensive
	// upstream session is opened, bounding abuse of a leaked token.
	if !h.limiter.Allow(r.Context(), user.ID) {
		log.Warn().Str("username", user.Username).Msg("WebSocket rate limit exceeded")
		h.reject(conn, "Rate limit exceeded. Try again later.", websocket.ClosePolicyViolation)
		return
	}

	if h.dialer == nil {
		h.reject(conn, "AI service not configured", websocket.ClosePolicyViolation)
		return
	}

	upstream, err := h.dialer.Connect(r.Context(), ToolDeclarations())
	if err != nil {
		log.Error().Err(err).Msg("Failed to open upstream live session")
		metrics.AIRequestsTotal.WithLabelValues("error").Inc()
		metrics.AIErrorsTotal.WithLabelValues("connection_error").Inc()
		h.reject(conn, "Failed to connect to AI service", websocket.CloseInternalServerErr)
		return
	}

	proxy := NewProxy(conn, upstream, user.ID, user.Username)
	defer proxy.Stop()

	log.Info().Str("username", user.Username).Msg("Voice stream session starting")
	proxy.Run(r.Context())
}

// authenticate resolves the caller, first via cookie, then via the first
// in-band message. Returns nil after closing the socket on failure.
func (h *Handler) authenticate(conn *websocket.Conn, r *http.Request) *store.User {
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		if user := h.resolveToken(r.Context(), cookie.Value); user != nil {
			log.Info().Str("username", user.Username).Msg("Voice stream authenticated via cookie")
			return user
		}
		// Invalid cookie falls through to message auth.
	}

	conn.SetReadDeadline(time.Now().Add(authWait))

	var msg clientMessage
	if err := conn.ReadJSON(&msg); err != nil {
		h.reject(conn, "Authentication timeout", websocket.ClosePolicyViolation)
		return nil
	}
	conn.SetReadDeadline(time.Time{})

	if msg.Type != "auth" || msg.Token == "" {
		h.reject(conn, "First message must be auth", websocket.ClosePolicyViolation)
		return nil
	}

	user := h.resolveToken(r.Context(), msg.Token)
	if user == nil {
		h.reject(conn, "Invalid token", websocket.ClosePolicyViolation)
		return nil
	}

	log.Info().Str("username", user.Username).Msg("Voice stream authenticated via message")
	return user
}

func (h *Handler) resolveToken(ctx context.Context, token string) *store.User {
	claims, err := h.tokens.Parse(token, auth.TokenTypeAccess)
	if err != nil {
		return nil
	}

	user, err := h.users.FindByUsername(ctx, claims.Subject)
	if err != nil || user.Disabled {
		return nil
	}
	return user
}

func (h *Handler) reject(conn *websocket.Conn, message string, closeCode int) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(errorMessage{Type: "error", Message: message})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCode, ""), time.Now().Add(writeWait))
}
