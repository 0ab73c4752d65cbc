package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fasttodo/fasttodo/internal/auth"
	"github.com/fasttodo/fasttodo/internal/config"
	"github.com/fasttodo/fasttodo/internal/metrics"
	"github.com/fasttodo/fasttodo/internal/store"
	"github.com/fasttodo/fasttodo/pkg/httpext"
)

var validate = validator.New()

// AuthHandler serves login, refresh, and registration.
type AuthHandler struct {
	cfg    *config.Config
	gate   *auth.Gate
	tokens *auth.TokenService
	hasher *auth.Hasher
	users  store.CredentialStore
}

func NewAuthHandler(cfg *config.Config, gate *auth.Gate, tokens *auth.TokenService, hasher *auth.Hasher, users store.CredentialStore) *AuthHandler {
	return &AuthHandler{cfg: cfg, gate: gate, tokens: tokens, hasher: hasher, users: users}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Login verifies credentials, mints an access/refresh pair sharing one
// session id, and opportunistically persists a rehashed digest.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	req, ok := decodeLogin(w, r)
	if !ok {
		return
	}

	user, rehash, err := h.gate.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			httpext.JsonChallenge(w, "Incorrect username or password")
			return
		}
		logger.Error().Err(err).Msg("Credential lookup failed")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if user.Disabled {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		httpext.JsonChallenge(w, "Incorrect username or password")
		return
	}

	sessionID := uuid.New().String()

	accessToken, err := h.tokens.Issue(user.Username, user.ID, sessionID, auth.TokenTypeAccess, h.cfg.AccessTokenTTL)
	if err != nil {
		httpext.JsonError(w, "Error creating token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.tokens.Issue(user.Username, user.ID, sessionID, auth.TokenTypeRefresh, h.cfg.RefreshTokenTTL)
	if err != nil {
		httpext.JsonError(w, "Error creating token", http.StatusInternalServerError)
		return
	}

	// Transparent hash migration is best-effort: a persistence failure is
	// logged and never fails the login.
	if rehash != "" {
		if err := h.users.UpdatePasswordHash(r.Context(), user.ID, rehash); err != nil {
			logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to persist rehashed password")
		} else {
			logger.Info().Str("user_id", user.ID).Msg("Password hash upgraded to primary algorithm")
		}
	}

	setTokenCookie(w, "access_token", accessToken, int(h.cfg.AccessTokenTTL.Seconds()))
	setTokenCookie(w, "refresh_token", refreshToken, int(h.cfg.RefreshTokenTTL.Seconds()))

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	logger.Info().Str("user_id", user.ID).Str("sid", sessionID).Msg("Login succeeded")

	httpext.JsonResponse(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		RefreshToken: refreshToken,
	})
}

// Refresh reissues the access token. The session id from the refresh
// token's claims is reused verbatim so a session stays correlatable across
// renewals; the refresh token itself is not rotated.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	tokenString := refreshTokenFrom(r)
	if tokenString == "" {
		httpext.JsonChallenge(w, "Missing refresh token")
		return
	}

	claims, err := h.tokens.Parse(tokenString, auth.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			httpext.JsonChallenge(w, "Refresh token has expired")
		} else {
			httpext.JsonChallenge(w, "Invalid refresh token")
		}
		return
	}

	user, err := h.users.FindByUsername(r.Context(), claims.Subject)
	if err != nil || user.Disabled {
		httpext.JsonChallenge(w, "Invalid refresh token")
		return
	}

	accessToken, err := h.tokens.Issue(user.Username, user.ID, claims.SessionID, auth.TokenTypeAccess, h.cfg.AccessTokenTTL)
	if err != nil {
		httpext.JsonError(w, "Error creating token", http.StatusInternalServerError)
		return
	}

	setTokenCookie(w, "access_token", accessToken, int(h.cfg.AccessTokenTTL.Seconds()))
	logger.Info().Str("user_id", user.ID).Str("sid", claims.SessionID).Msg("Access token refreshed")

	httpext.JsonResponse(w, http.StatusOK, tokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
	})
}

// Register creates a user with a primary-algorithm digest.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpext.JsonError(w, "Validation failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	digest, err := h.hasher.Hash(req.Password)
	if err != nil {
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user := &store.User{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: digest,
	}
	if err := h.users.Insert(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			httpext.JsonError(w, "Username already taken", http.StatusConflict)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("User insert failed")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	metrics.RegistrationsTotal.Inc()
	httpext.JsonResponse(w, http.StatusCreated, user)
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (loginRequest, bool) {
	var req loginRequest

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
			return req, false
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
			return req, false
		}
	}

	if err := validate.Struct(req); err != nil {
		httpext.JsonError(w, "Username and password are required", http.StatusUnprocessableEntity)
		return req, false
	}
	return req, true
}

func refreshTokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie("refresh_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
		return body.RefreshToken
	}
	return ""
}

func setTokenCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
