package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fasttodo/fasttodo/internal/auth"
)

func authedHandler(t *testing.T, captured **Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			*captured = GetIdentity(r)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenService([]byte("test-secret"))
	wrap := RequireAuth(tokens)

	t.Run("public routes bypass", func(t *testing.T) {
		for _, path := range []string{"/", "/health", "/token", "/token/refresh", "/register", "/api/ai/voice/stream"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			wrap(authedHandler(t, nil)).ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("Path %s: got status %d, want 200", path, rec.Code)
			}
		}
	})

	t.Run("preflight bypasses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
		rec := httptest.NewRecorder()
		wrap(authedHandler(t, nil)).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Got status %d, want 200", rec.Code)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
		rec := httptest.NewRecorder()
		wrap(authedHandler(t, nil)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Got status %d, want 401", rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Error("Expected a WWW-Authenticate challenge")
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		wrap(authedHandler(t, nil)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Got status %d, want 401", rec.Code)
		}
	})

	t.Run("refresh token rejected on API routes", func(t *testing.T) {
		token, err := tokens.Issue("alice", "user-1", "sess-1", auth.TokenTypeRefresh, time.Hour)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		wrap(authedHandler(t, nil)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Got status %d, want 401", rec.Code)
		}
	})

	t.Run("valid token binds identity", func(t *testing.T) {
		token, err := tokens.Issue("alice", "user-1", "sess-1", auth.TokenTypeAccess, time.Minute)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		var identity *Identity
		req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		wrap(authedHandler(t, &identity)).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Got status %d, want 200", rec.Code)
		}
		if identity == nil {
			t.Fatal("Expected identity in request context")
		}
		if identity.UserID != "user-1" || identity.Username != "alice" {
			t.Errorf("Got identity %+v, want user-1/alice", identity)
		}
	})
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", ""},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		if got := ExtractBearer(req); got != c.want {
			t.Errorf("ExtractBearer(%q): got %q, want %q", c.header, got, c.want)
		}
	}
}
