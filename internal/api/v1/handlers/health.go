package handlers

import (
	"net/http"

	"github.com/fasttodo/fasttodo/internal/store"
	"github.com/fasttodo/fasttodo/pkg/httpext"
)

// HealthHandler reports service health per backend component.
type HealthHandler struct {
	checks map[string]store.Pinger
}

func NewHealthHandler(checks map[string]store.Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	failures := map[string]string{}
	for name, pinger := range h.checks {
		if err := pinger.Ping(r.Context()); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		httpext.JsonResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": "Error",
			"errors": failures,
		})
		return
	}
	httpext.JsonResponse(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Root is the unauthenticated landing route.
func Root(w http.ResponseWriter, _ *http.Request) {
	httpext.JsonResponse(w, http.StatusOK, map[string]string{"Hello": "World"})
}
