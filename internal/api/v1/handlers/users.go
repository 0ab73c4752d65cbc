package handlers

import (
	"net/http"

	"github.com/fasttodo/fasttodo/internal/api/v1/middleware"
	"github.com/fasttodo/fasttodo/internal/store"
	"github.com/fasttodo/fasttodo/pkg/httpext"
)

// UserHandler serves the authenticated user's own profile.
type UserHandler struct {
	users store.CredentialStore
}

func NewUserHandler(users store.CredentialStore) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httpext.JsonChallenge(w, "Missing token")
		return
	}

	user, err := h.users.FindByUsername(r.Context(), identity.Username)
	if err != nil {
		httpext.JsonChallenge(w, "Invalid token")
		return
	}
	httpext.JsonResponse(w, http.StatusOK, user)
}
